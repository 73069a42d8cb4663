package timemodel

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Time Estimators", func() {
	input := TimeEstimatorInput{
		Name:              "features.conv",
		Kind:              "Conv2d",
		RecordedTimeInSec: 0.002,
		Flops:             2e9,
		MemoryBytes:       1e8,
	}

	It("should always return one", func() {
		out, err := (&AlwaysOneTimeEstimator{}).Estimate(input)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.TimeInSec).To(Equal(1.0))
	})

	It("should return the recorded time", func() {
		out, err := (&RecordedTimeEstimator{}).Estimate(input)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.TimeInSec).To(Equal(0.002))
	})

	It("should be compute bound when flops dominate", func() {
		e := &RooflineTimeEstimator{
			PeakFlopsPerSec:      1e12,
			BandwidthBytesPerSec: 1e12,
			LaunchOverheadInSec:  1e-6,
		}

		out, err := e.Estimate(input)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.TimeInSec).To(BeNumerically("~", 2e-3+1e-6, 1e-12))
	})

	It("should be memory bound when bytes dominate", func() {
		e := &RooflineTimeEstimator{
			PeakFlopsPerSec:      1e15,
			BandwidthBytesPerSec: 1e10,
		}

		out, err := e.Estimate(input)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.TimeInSec).To(BeNumerically("~", 1e-2, 1e-12))
	})

	It("should reject a device without throughput", func() {
		_, err := (&RooflineTimeEstimator{}).Estimate(input)

		Expect(err).To(HaveOccurred())
	})
})
