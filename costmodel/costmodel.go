// Package costmodel estimates the arithmetic and memory cost of leaf
// operations from their inputs and output.
package costmodel

import "github.com/sarchlab/nodestat"

// UnknownLabel is the FLOP label reported for operations the model does
// not recognize.
const UnknownLabel = "unknown"

// A Provider estimates the cost of running a leaf operation. All counts
// are per sample: the batch dimension is excluded.
type Provider interface {
	// MultiplyAdds returns the number of multiply-add operations.
	MultiplyAdds(
		op nodestat.LeafOperation,
		inputs []*nodestat.Tensor,
		output *nodestat.Tensor,
	) (int64, error)

	// Flops returns the number of floating-point operations and a label
	// naming the operation type.
	Flops(
		op nodestat.LeafOperation,
		inputs []*nodestat.Tensor,
		output *nodestat.Tensor,
	) (int64, string, error)

	// MemoryAccess returns the number of elements read and written. The
	// caller scales them by the element byte width.
	MemoryAccess(
		op nodestat.LeafOperation,
		inputs []*nodestat.Tensor,
		output *nodestat.Tensor,
	) (read, write int64, err error)
}

// A Default is a Provider that covers the operations of the layers
// package. Operations it does not recognize cost nothing and are labeled
// UnknownLabel.
type Default struct{}

// NewDefault creates a Default provider.
func NewDefault() *Default {
	return &Default{}
}

// MultiplyAdds returns the number of multiply-add operations.
func (d *Default) MultiplyAdds(
	op nodestat.LeafOperation,
	inputs []*nodestat.Tensor,
	output *nodestat.Tensor,
) (int64, error) {
	c, _ := estimate(op, inputs, output)
	return c.madd, nil
}

// Flops returns the number of floating-point operations and the kind of
// the operation, or UnknownLabel.
func (d *Default) Flops(
	op nodestat.LeafOperation,
	inputs []*nodestat.Tensor,
	output *nodestat.Tensor,
) (int64, string, error) {
	c, ok := estimate(op, inputs, output)
	if !ok {
		return 0, UnknownLabel, nil
	}

	return c.flops, string(op.Kind()), nil
}

// MemoryAccess returns the number of elements read and written.
func (d *Default) MemoryAccess(
	op nodestat.LeafOperation,
	inputs []*nodestat.Tensor,
	output *nodestat.Tensor,
) (int64, int64, error) {
	c, _ := estimate(op, inputs, output)
	return c.read, c.write, nil
}
