package layers

import (
	"fmt"
	"math/rand"

	"github.com/sarchlab/nodestat"
)

// A Linear applies y = xW^T + b to [N, InFeatures] inputs.
type Linear struct {
	InFeatures  int
	OutFeatures int

	// Weight has shape [OutFeatures, InFeatures]. Bias has shape
	// [OutFeatures] or is nil.
	Weight *nodestat.Tensor
	Bias   *nodestat.Tensor
}

// NewLinear creates a linear layer with randomly initialized weights.
func NewLinear(inFeatures, outFeatures int, opts ...Option) *Linear {
	o := applyOptions(opts)
	rng := rand.New(rand.NewSource(o.seed))

	l := &Linear{
		InFeatures:  inFeatures,
		OutFeatures: outFeatures,
		Weight:      uniformTensor(rng, inFeatures, outFeatures, inFeatures),
	}

	if o.bias {
		l.Bias = uniformTensor(rng, inFeatures, outFeatures)
	}

	return l
}

// Kind returns KindLinear.
func (l *Linear) Kind() nodestat.Kind { return nodestat.KindLinear }

// Parameters returns the weight and, if present, the bias.
func (l *Linear) Parameters() []*nodestat.Tensor {
	if l.Bias == nil {
		return []*nodestat.Tensor{l.Weight}
	}

	return []*nodestat.Tensor{l.Weight, l.Bias}
}

// Invoke applies the layer.
func (l *Linear) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := singleInput(l.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	if len(in.Shape) != 2 || in.Shape[1] != l.InFeatures {
		return nil, fmt.Errorf("linear expects shape [N %d], got %v",
			l.InFeatures, in.Shape)
	}

	n := in.Shape[0]
	out := newOutput(in, n, l.OutFeatures)
	for b := 0; b < n; b++ {
		row := in.Data[b*l.InFeatures : (b+1)*l.InFeatures]
		for o := 0; o < l.OutFeatures; o++ {
			var sum float32
			if l.Bias != nil {
				sum = l.Bias.Data[o]
			}

			weights := l.Weight.Data[o*l.InFeatures : (o+1)*l.InFeatures]
			for i, v := range row {
				sum += v * weights[i]
			}
			out.Data[b*l.OutFeatures+o] = sum
		}
	}

	return out, nil
}

// A Flatten reshapes [N, ...] inputs into [N, M].
type Flatten struct{}

// NewFlatten creates a Flatten.
func NewFlatten() *Flatten {
	return &Flatten{}
}

// Kind returns KindFlatten.
func (f *Flatten) Kind() nodestat.Kind { return nodestat.KindFlatten }

// Parameters returns nil.
func (f *Flatten) Parameters() []*nodestat.Tensor { return nil }

// Invoke reshapes the input. The data is copied.
func (f *Flatten) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := singleInput(f.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	if len(in.Shape) < 1 {
		return nil, fmt.Errorf("flatten expects a batch dimension")
	}

	out := newOutput(in, in.Shape[0], nodestat.NumElements(in.Shape[1:]))
	copy(out.Data, in.Data)

	return out, nil
}
