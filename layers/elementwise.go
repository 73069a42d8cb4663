package layers

import (
	"fmt"

	"github.com/sarchlab/nodestat"
)

// An Add sums two or more tensors of the same shape.
type Add struct{}

// NewAdd creates an Add.
func NewAdd() *Add {
	return &Add{}
}

// Kind returns KindAdd.
func (a *Add) Kind() nodestat.Kind { return nodestat.KindAdd }

// Parameters returns nil.
func (a *Add) Parameters() []*nodestat.Tensor { return nil }

// Invoke sums the inputs.
func (a *Add) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	if len(inputs) < 2 {
		return nil, fmt.Errorf("add expects at least 2 inputs, got %d",
			len(inputs))
	}

	first := inputs[0]
	for _, in := range inputs[1:] {
		if in == nil || first == nil || !sameShape(first.Shape, in.Shape) {
			return nil, fmt.Errorf("add inputs have different shapes")
		}
	}

	out := newOutput(first, first.Shape...)
	for _, in := range inputs {
		for i, v := range in.Data {
			out.Data[i] += v
		}
	}

	return out, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// Residual creates a composite that evaluates body on its input and adds
// the input back to the result: out = x + body(x). The sum is computed by
// an Add leaf named "add" so that it is profiled like any other leaf.
func Residual(name string, body *nodestat.Node) *nodestat.Node {
	if body.Name == "" {
		body.Name = "body"
	}

	add := nodestat.NewLeaf("add", NewAdd())

	return nodestat.NewComposite(name,
		func(children []*nodestat.Node, inputs []*nodestat.Tensor) (*nodestat.Tensor, error) {
			y, err := children[0].Forward(inputs...)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, children[0].Name, err)
			}

			args := append(append([]*nodestat.Tensor{}, inputs...), y)

			return children[1].Forward(args...)
		},
		body, add)
}
