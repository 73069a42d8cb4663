package layers

import (
	"fmt"
	"math"

	"github.com/sarchlab/nodestat"
)

func mapElements(
	in *nodestat.Tensor,
	f func(i int, v float32) float32,
) *nodestat.Tensor {
	out := newOutput(in, in.Shape...)
	for i, v := range in.Data {
		out.Data[i] = f(i, v)
	}

	return out
}

// A ReLU clamps negative values to zero.
type ReLU struct{}

// NewReLU creates a ReLU.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Kind returns KindReLU.
func (r *ReLU) Kind() nodestat.Kind { return nodestat.KindReLU }

// Parameters returns nil.
func (r *ReLU) Parameters() []*nodestat.Tensor { return nil }

// Invoke applies the activation.
func (r *ReLU) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := singleInput(r.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	return mapElements(in, func(_ int, v float32) float32 {
		if v < 0 {
			return 0
		}
		return v
	}), nil
}

// A LeakyReLU scales negative values by a fixed slope.
type LeakyReLU struct {
	Slope float32
}

// NewLeakyReLU creates a LeakyReLU.
func NewLeakyReLU(slope float32) *LeakyReLU {
	return &LeakyReLU{Slope: slope}
}

// Kind returns KindLeakyReLU.
func (r *LeakyReLU) Kind() nodestat.Kind { return nodestat.KindLeakyReLU }

// Parameters returns nil.
func (r *LeakyReLU) Parameters() []*nodestat.Tensor { return nil }

// Invoke applies the activation.
func (r *LeakyReLU) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := singleInput(r.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	return mapElements(in, func(_ int, v float32) float32 {
		if v < 0 {
			return v * r.Slope
		}
		return v
	}), nil
}

// A PReLU scales negative values by a learned slope, either shared or one
// per channel.
type PReLU struct {
	Weight *nodestat.Tensor
}

// NewPReLU creates a PReLU with numParameters slopes initialized to 0.25.
// Use 1 for a shared slope or the channel count for per-channel slopes.
func NewPReLU(numParameters int) *PReLU {
	return &PReLU{Weight: fillTensor(0.25, numParameters)}
}

// Kind returns KindPReLU.
func (r *PReLU) Kind() nodestat.Kind { return nodestat.KindPReLU }

// Parameters returns the slopes.
func (r *PReLU) Parameters() []*nodestat.Tensor {
	return []*nodestat.Tensor{r.Weight}
}

// Invoke applies the activation.
func (r *PReLU) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := singleInput(r.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	slopes := r.Weight.NumElements()
	channels := in.Dim(1)
	if slopes != 1 && slopes != channels {
		return nil, fmt.Errorf("prelu has %d slopes for %d channels",
			slopes, channels)
	}

	plane := 1
	if len(in.Shape) > 2 {
		plane = nodestat.NumElements(in.Shape[2:])
	}

	return mapElements(in, func(i int, v float32) float32 {
		if v >= 0 {
			return v
		}

		if slopes == 1 {
			return v * r.Weight.Data[0]
		}
		return v * r.Weight.Data[(i/plane)%channels]
	}), nil
}

// A Sigmoid applies the logistic function.
type Sigmoid struct{}

// NewSigmoid creates a Sigmoid.
func NewSigmoid() *Sigmoid {
	return &Sigmoid{}
}

// Kind returns KindSigmoid.
func (s *Sigmoid) Kind() nodestat.Kind { return nodestat.KindSigmoid }

// Parameters returns nil.
func (s *Sigmoid) Parameters() []*nodestat.Tensor { return nil }

// Invoke applies the activation.
func (s *Sigmoid) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := singleInput(s.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	return mapElements(in, func(_ int, v float32) float32 {
		return float32(1 / (1 + math.Exp(-float64(v))))
	}), nil
}

// A Tanh applies the hyperbolic tangent.
type Tanh struct{}

// NewTanh creates a Tanh.
func NewTanh() *Tanh {
	return &Tanh{}
}

// Kind returns KindTanh.
func (t *Tanh) Kind() nodestat.Kind { return nodestat.KindTanh }

// Parameters returns nil.
func (t *Tanh) Parameters() []*nodestat.Tensor { return nil }

// Invoke applies the activation.
func (t *Tanh) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := singleInput(t.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	return mapElements(in, func(_ int, v float32) float32 {
		return float32(math.Tanh(float64(v)))
	}), nil
}
