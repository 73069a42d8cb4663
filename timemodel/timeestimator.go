// Package timemodel provides performance models for the execution time of
// leaf operations.
package timemodel

import "fmt"

// A TimeEstimatorInput represents the input of a time estimator.
type TimeEstimatorInput struct {
	Name              string
	Kind              string
	InputShape        []int
	OutputShape       []int
	RecordedTimeInSec float64
	Flops             int64
	MemoryBytes       int64
}

// A TimeEstimatorOutput represents the output of a time estimator.
type TimeEstimatorOutput struct {
	// The estimated execution time in seconds.
	TimeInSec float64
}

// TimeEstimator estimates the execution time of a leaf operation.
type TimeEstimator interface {
	// Estimate estimates the execution time of a leaf operation.
	Estimate(input TimeEstimatorInput) (TimeEstimatorOutput, error)
}

// A AlwaysOneTimeEstimator always returns 1 as the estimated execution time.
type AlwaysOneTimeEstimator struct{}

// Estimate always returns 1 as the estimated execution time.
func (e *AlwaysOneTimeEstimator) Estimate(
	input TimeEstimatorInput,
) (TimeEstimatorOutput, error) {
	return TimeEstimatorOutput{
		TimeInSec: 1,
	}, nil
}

// A RecordedTimeEstimator estimates the execution time of a leaf operation
// as the time measured while profiling it.
type RecordedTimeEstimator struct{}

// Estimate returns the recorded time.
func (e *RecordedTimeEstimator) Estimate(
	input TimeEstimatorInput,
) (TimeEstimatorOutput, error) {
	return TimeEstimatorOutput{
		TimeInSec: input.RecordedTimeInSec,
	}, nil
}

// A RooflineTimeEstimator estimates the execution time of a leaf operation
// on a device bounded either by its compute throughput or by its memory
// bandwidth, plus a fixed launch overhead.
type RooflineTimeEstimator struct {
	PeakFlopsPerSec      float64
	BandwidthBytesPerSec float64
	LaunchOverheadInSec  float64
}

// Estimate returns the larger of the compute time and the memory time.
func (e *RooflineTimeEstimator) Estimate(
	input TimeEstimatorInput,
) (TimeEstimatorOutput, error) {
	if e.PeakFlopsPerSec <= 0 || e.BandwidthBytesPerSec <= 0 {
		return TimeEstimatorOutput{}, fmt.Errorf(
			"roofline estimator needs positive peak flops and bandwidth")
	}

	computeTime := float64(input.Flops) / e.PeakFlopsPerSec
	memoryTime := float64(input.MemoryBytes) / e.BandwidthBytesPerSec

	t := computeTime
	if memoryTime > t {
		t = memoryTime
	}

	return TimeEstimatorOutput{
		TimeInSec: t + e.LaunchOverheadInSec,
	}, nil
}
