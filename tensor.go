// Package nodestat provides the data model for profiling a tree of
// operation nodes: tensors, nodes, per-leaf records and reports.
package nodestat

import (
	"fmt"
	"math/rand"
)

// A DType represents the element type a tensor is stored as.
type DType int

// DType constants
const (
	Float32 DType = iota
	Float16
	Float64
	Int8
)

// ElemBytes returns the number of bytes of one element.
func (d DType) ElemBytes() int {
	switch d {
	case Float16:
		return 2
	case Float64:
		return 8
	case Int8:
		return 1
	default:
		return 4
	}
}

// String returns the name of the element type.
func (d DType) String() string {
	switch d {
	case Float16:
		return "float16"
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	default:
		return "float32"
	}
}

// ParseDType converts a name such as "float16" into a DType.
func ParseDType(name string) (DType, error) {
	switch name {
	case "", "float32":
		return Float32, nil
	case "float16":
		return Float16, nil
	case "float64":
		return Float64, nil
	case "int8":
		return Int8, nil
	}

	return Float32, fmt.Errorf("unknown dtype %q", name)
}

// A Tensor is a dense NCHW-style array. Values are always computed in
// float32; DType only describes the precision the tensor is accounted for.
type Tensor struct {
	Shape []int
	DType DType
	Data  []float32
}

// NewTensor creates a zero-filled float32 tensor of the given shape.
func NewTensor(shape ...int) *Tensor {
	return &Tensor{
		Shape: append([]int(nil), shape...),
		DType: Float32,
		Data:  make([]float32, NumElements(shape)),
	}
}

// RandTensor creates a tensor with values uniformly drawn from [0, 1).
func RandTensor(rng *rand.Rand, shape ...int) *Tensor {
	t := NewTensor(shape...)
	for i := range t.Data {
		t.Data[i] = rng.Float32()
	}

	return t
}

// NumElements returns the number of elements of the tensor.
func (t *Tensor) NumElements() int {
	return NumElements(t.Shape)
}

// ElemBytes returns the byte width of one element of the tensor.
func (t *Tensor) ElemBytes() int {
	return t.DType.ElemBytes()
}

// Dim returns the size of dimension i, or 0 if the tensor has fewer
// dimensions.
func (t *Tensor) Dim(i int) int {
	if i < 0 || i >= len(t.Shape) {
		return 0
	}

	return t.Shape[i]
}

// SampleShape returns the shape without the leading batch dimension.
func (t *Tensor) SampleShape() []int {
	if len(t.Shape) == 0 {
		return []int{}
	}

	return append([]int{}, t.Shape[1:]...)
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Shape: append([]int(nil), t.Shape...),
		DType: t.DType,
		Data:  append([]float32(nil), t.Data...),
	}
}

// NumElements returns the product of the dimensions of a shape.
func NumElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}

	return n
}
