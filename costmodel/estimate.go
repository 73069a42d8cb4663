package costmodel

import (
	"github.com/sarchlab/nodestat"
	"github.com/sarchlab/nodestat/layers"
)

type cost struct {
	madd  int64
	flops int64
	read  int64
	write int64
}

// sampleElements returns the number of elements of one sample of t.
func sampleElements(t *nodestat.Tensor) int64 {
	if t == nil || len(t.Shape) == 0 {
		return 0
	}

	return int64(nodestat.NumElements(t.Shape[1:]))
}

func paramElements(op nodestat.LeafOperation) int64 {
	var n int64
	for _, p := range op.Parameters() {
		if p != nil {
			n += int64(p.NumElements())
		}
	}

	return n
}

// estimate returns the cost of op. The second result is false when op is
// not recognized.
func estimate(
	op nodestat.LeafOperation,
	inputs []*nodestat.Tensor,
	output *nodestat.Tensor,
) (cost, bool) {
	if op == nil || len(inputs) == 0 || inputs[0] == nil || output == nil {
		return cost{}, false
	}

	in := inputs[0]

	switch op := op.(type) {
	case *layers.Conv2d:
		return conv2dCost(op, in, output), true
	case *layers.BatchNorm2d:
		return batchNormCost(op, in, output), true
	case *layers.Linear:
		return linearCost(op, in, output), true
	case *layers.MaxPool2d:
		return maxPoolCost(op.KernelSize, in, output), true
	case *layers.AvgPool2d:
		return avgPoolCost(op.KernelSize, in, output), true
	case *layers.PReLU:
		c := elementwiseCost(1, in, output)
		c.read += paramElements(op)
		return c, true
	}

	return estimateByKind(op.Kind(), inputs, output)
}

// estimateByKind covers operations whose cost only depends on the shapes
// of their tensors.
func estimateByKind(
	kind nodestat.Kind,
	inputs []*nodestat.Tensor,
	output *nodestat.Tensor,
) (cost, bool) {
	in := inputs[0]

	switch kind {
	case nodestat.KindReLU, nodestat.KindLeakyReLU:
		return elementwiseCost(1, in, output), true
	case nodestat.KindSigmoid:
		// exp, add, div
		return elementwiseCost(3, in, output), true
	case nodestat.KindTanh:
		// two exps, sub, add, div
		return elementwiseCost(5, in, output), true
	case nodestat.KindAdd:
		return addCost(inputs, output), true
	case nodestat.KindFlatten, nodestat.KindPixelShuffle:
		return cost{
			read:  sampleElements(in),
			write: sampleElements(output),
		}, true
	case nodestat.KindUpsample:
		return cost{
			flops: sampleElements(output),
			read:  sampleElements(in),
			write: sampleElements(output),
		}, true
	}

	return cost{}, false
}

func conv2dCost(c *layers.Conv2d, in, out *nodestat.Tensor) cost {
	outElems := sampleElements(out)
	k := int64(c.KernelSize)
	inPerGroup := int64(c.InChannels / c.Groups)

	kernelMul := k * k * inPerGroup
	kernelAdd := kernelMul - 1
	if c.Bias != nil {
		kernelAdd++
	}

	flops := kernelMul * outElems
	if c.Bias != nil {
		flops += outElems
	}

	return cost{
		madd:  (kernelMul + kernelAdd) * outElems,
		flops: flops,
		read:  sampleElements(in) + paramElements(c),
		write: outElems,
	}
}

func batchNormCost(bn *layers.BatchNorm2d, in, out *nodestat.Tensor) cost {
	n := sampleElements(in)

	// sub mean, div std, mul weight, add bias
	return cost{
		madd:  4 * n,
		flops: 2 * n,
		read:  n + 4*int64(bn.NumFeatures),
		write: sampleElements(out),
	}
}

func linearCost(l *layers.Linear, in, out *nodestat.Tensor) cost {
	inFeatures := int64(l.InFeatures)
	outElems := sampleElements(out)

	flops := inFeatures * outElems
	if l.Bias != nil {
		flops += outElems
	}

	return cost{
		madd:  (2*inFeatures - 1) * outElems,
		flops: flops,
		read:  sampleElements(in) + paramElements(l),
		write: outElems,
	}
}

func maxPoolCost(k int, in, out *nodestat.Tensor) cost {
	outElems := sampleElements(out)

	return cost{
		madd:  int64(k*k-1) * outElems,
		flops: sampleElements(in),
		read:  sampleElements(in),
		write: outElems,
	}
}

func avgPoolCost(k int, in, out *nodestat.Tensor) cost {
	outElems := sampleElements(out)

	return cost{
		madd:  int64(k*k) * outElems,
		flops: sampleElements(in),
		read:  sampleElements(in),
		write: outElems,
	}
}

func elementwiseCost(opsPerElement int64, in, out *nodestat.Tensor) cost {
	n := sampleElements(in)

	return cost{
		madd:  opsPerElement * n,
		flops: opsPerElement * n,
		read:  n,
		write: sampleElements(out),
	}
}

func addCost(inputs []*nodestat.Tensor, out *nodestat.Tensor) cost {
	outElems := sampleElements(out)
	c := cost{write: outElems}
	for _, in := range inputs {
		c.read += sampleElements(in)
	}

	if len(inputs) > 1 {
		c.madd = int64(len(inputs)-1) * outElems
		c.flops = c.madd
	}

	return c
}
