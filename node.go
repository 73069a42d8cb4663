package nodestat

import (
	"errors"
	"fmt"
	"strconv"
)

// A Kind identifies the concrete operation type of a leaf, e.g. "Conv2d".
type Kind string

// Kind constants for the operations shipped with the layers package.
const (
	KindConv2d       Kind = "Conv2d"
	KindBatchNorm2d  Kind = "BatchNorm2d"
	KindReLU         Kind = "ReLU"
	KindLeakyReLU    Kind = "LeakyReLU"
	KindPReLU        Kind = "PReLU"
	KindSigmoid      Kind = "Sigmoid"
	KindTanh         Kind = "Tanh"
	KindMaxPool2d    Kind = "MaxPool2d"
	KindAvgPool2d    Kind = "AvgPool2d"
	KindAdd          Kind = "Add"
	KindLinear       Kind = "Linear"
	KindFlatten      Kind = "Flatten"
	KindPixelShuffle Kind = "PixelShuffle"
	KindUpsample     Kind = "Upsample"

	// KindComposite is reported for nodes that have children.
	KindComposite Kind = "Composite"
)

// A LeafOperation is the computation carried by a leaf node.
type LeafOperation interface {
	// Kind returns the concrete operation type.
	Kind() Kind

	// Invoke computes the output of the operation. It must not modify its
	// inputs.
	Invoke(inputs ...*Tensor) (*Tensor, error)

	// Parameters returns the trainable parameters owned directly by the
	// operation.
	Parameters() []*Tensor
}

// An EvalFunc evaluates a composite node by invoking its children.
type EvalFunc func(children []*Node, inputs []*Tensor) (*Tensor, error)

// ErrNoOperation is returned when a leaf without an operation is invoked.
var ErrNoOperation = errors.New("leaf node has no operation")

// A Node is an element of a graph. A node with children is a composite
// and delegates to them; a node without children is a leaf and runs Op.
type Node struct {
	Name     string
	Op       LeafOperation
	Eval     EvalFunc
	Children []*Node
}

// NewLeaf creates a leaf node.
func NewLeaf(name string, op LeafOperation) *Node {
	return &Node{Name: name, Op: op}
}

// NewSequential creates a composite node that feeds the output of each
// child to the next one.
func NewSequential(name string, children ...*Node) *Node {
	return &Node{Name: name, Children: children}
}

// NewComposite creates a composite node with a custom evaluation order.
func NewComposite(name string, eval EvalFunc, children ...*Node) *Node {
	return &Node{Name: name, Eval: eval, Children: children}
}

// IsLeaf returns true if the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Kind returns the operation kind of a leaf, or KindComposite.
func (n *Node) Kind() Kind {
	if !n.IsLeaf() {
		return KindComposite
	}

	if n.Op == nil {
		return ""
	}

	return n.Op.Kind()
}

// ChildName returns the path segment of the i-th child. Unnamed children
// are named by their index.
func (n *Node) ChildName(i int) string {
	if n.Children[i].Name != "" {
		return n.Children[i].Name
	}

	return strconv.Itoa(i)
}

// Forward evaluates the node on the given inputs.
func (n *Node) Forward(inputs ...*Tensor) (*Tensor, error) {
	if n.IsLeaf() {
		if n.Op == nil {
			return nil, fmt.Errorf("%s: %w", n.Name, ErrNoOperation)
		}

		return n.Op.Invoke(inputs...)
	}

	if n.Eval != nil {
		return n.Eval(n.Children, inputs)
	}

	return n.forwardSequential(inputs)
}

func (n *Node) forwardSequential(inputs []*Tensor) (*Tensor, error) {
	var out *Tensor
	for i, child := range n.Children {
		var err error

		out, err = child.Forward(inputs...)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", n.Name, n.ChildName(i), err)
		}

		inputs = []*Tensor{out}
	}

	return out, nil
}
