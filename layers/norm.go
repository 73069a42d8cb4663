package layers

import (
	"fmt"
	"math"

	"github.com/sarchlab/nodestat"
)

// A BatchNorm2d normalizes each channel with its running statistics, as a
// batch normalization layer does at inference time.
type BatchNorm2d struct {
	NumFeatures int
	Eps         float32

	Weight      *nodestat.Tensor
	Bias        *nodestat.Tensor
	RunningMean *nodestat.Tensor
	RunningVar  *nodestat.Tensor
}

// NewBatchNorm2d creates a batch normalization with identity statistics.
func NewBatchNorm2d(numFeatures int) *BatchNorm2d {
	return &BatchNorm2d{
		NumFeatures: numFeatures,
		Eps:         1e-5,
		Weight:      fillTensor(1, numFeatures),
		Bias:        fillTensor(0, numFeatures),
		RunningMean: fillTensor(0, numFeatures),
		RunningVar:  fillTensor(1, numFeatures),
	}
}

// Kind returns KindBatchNorm2d.
func (bn *BatchNorm2d) Kind() nodestat.Kind {
	return nodestat.KindBatchNorm2d
}

// Parameters returns the affine weight and bias. Running statistics are
// not trainable and are not included.
func (bn *BatchNorm2d) Parameters() []*nodestat.Tensor {
	return []*nodestat.Tensor{bn.Weight, bn.Bias}
}

// Invoke normalizes the input.
func (bn *BatchNorm2d) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := input4D(bn.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	n, ch, h, w := in.Shape[0], in.Shape[1], in.Shape[2], in.Shape[3]
	if ch != bn.NumFeatures {
		return nil, fmt.Errorf("batchnorm2d expects %d channels, got %d",
			bn.NumFeatures, ch)
	}

	out := newOutput(in, in.Shape...)
	plane := h * w
	for b := 0; b < n; b++ {
		for c := 0; c < ch; c++ {
			std := float32(math.Sqrt(float64(bn.RunningVar.Data[c] + bn.Eps)))
			scale := bn.Weight.Data[c] / std
			shift := bn.Bias.Data[c] - bn.RunningMean.Data[c]*scale

			base := (b*ch + c) * plane
			for i := 0; i < plane; i++ {
				out.Data[base+i] = in.Data[base+i]*scale + shift
			}
		}
	}

	return out, nil
}
