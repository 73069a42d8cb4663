// Package layers provides leaf operations for building graphs: convolution,
// normalization, activations, pooling, elementwise combination, linear
// layers and pixel rearrangement. All operations work on NCHW tensors and
// implement nodestat.LeafOperation.
package layers

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sarchlab/nodestat"
)

// An Option configures the construction of a layer.
type Option func(*options)

type options struct {
	stride  int
	padding int
	groups  int
	bias    bool
	seed    int64
}

func defaultOptions() options {
	return options{
		stride:  1,
		padding: 0,
		groups:  1,
		bias:    true,
		seed:    1,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithStride sets the stride of a convolution.
func WithStride(stride int) Option {
	return func(o *options) { o.stride = stride }
}

// WithPadding sets the zero padding of a convolution.
func WithPadding(padding int) Option {
	return func(o *options) { o.padding = padding }
}

// WithGroups sets the number of groups of a convolution.
func WithGroups(groups int) Option {
	return func(o *options) { o.groups = groups }
}

// WithoutBias removes the bias term of a convolution or linear layer.
func WithoutBias() Option {
	return func(o *options) { o.bias = false }
}

// WithSeed sets the seed used to initialize weights.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// uniformTensor fills a tensor with values in [-1/sqrt(fanIn), 1/sqrt(fanIn)).
func uniformTensor(rng *rand.Rand, fanIn int, shape ...int) *nodestat.Tensor {
	t := nodestat.NewTensor(shape...)
	bound := float32(1 / math.Sqrt(float64(fanIn)))
	for i := range t.Data {
		t.Data[i] = (rng.Float32()*2 - 1) * bound
	}

	return t
}

func fillTensor(value float32, shape ...int) *nodestat.Tensor {
	t := nodestat.NewTensor(shape...)
	for i := range t.Data {
		t.Data[i] = value
	}

	return t
}

func singleInput(kind nodestat.Kind, inputs []*nodestat.Tensor) (*nodestat.Tensor, error) {
	if len(inputs) != 1 || inputs[0] == nil {
		return nil, fmt.Errorf("%s expects 1 input, got %d", kind, len(inputs))
	}

	return inputs[0], nil
}

func input4D(kind nodestat.Kind, inputs []*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := singleInput(kind, inputs)
	if err != nil {
		return nil, err
	}

	if len(in.Shape) != 4 {
		return nil, fmt.Errorf("%s expects a 4D input, got shape %v", kind, in.Shape)
	}

	return in, nil
}

// newOutput creates an output tensor that keeps the dtype of the input.
func newOutput(in *nodestat.Tensor, shape ...int) *nodestat.Tensor {
	out := nodestat.NewTensor(shape...)
	out.DType = in.DType

	return out
}
