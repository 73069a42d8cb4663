package layers

import (
	"fmt"
	"math/rand"

	"github.com/sarchlab/nodestat"
)

// A Conv2d is a 2D convolution with square kernels.
type Conv2d struct {
	InChannels  int
	OutChannels int
	KernelSize  int
	Stride      int
	Padding     int
	Groups      int

	// Weight has shape [OutChannels, InChannels/Groups, KernelSize,
	// KernelSize]. Bias has shape [OutChannels] or is nil.
	Weight *nodestat.Tensor
	Bias   *nodestat.Tensor
}

// NewConv2d creates a convolution with randomly initialized weights.
func NewConv2d(inChannels, outChannels, kernelSize int, opts ...Option) *Conv2d {
	o := applyOptions(opts)
	if inChannels%o.groups != 0 || outChannels%o.groups != 0 {
		panic(fmt.Sprintf("channels %d->%d are not divisible by %d groups",
			inChannels, outChannels, o.groups))
	}

	rng := rand.New(rand.NewSource(o.seed))
	fanIn := inChannels / o.groups * kernelSize * kernelSize

	c := &Conv2d{
		InChannels:  inChannels,
		OutChannels: outChannels,
		KernelSize:  kernelSize,
		Stride:      o.stride,
		Padding:     o.padding,
		Groups:      o.groups,
		Weight: uniformTensor(rng, fanIn,
			outChannels, inChannels/o.groups, kernelSize, kernelSize),
	}

	if o.bias {
		c.Bias = uniformTensor(rng, fanIn, outChannels)
	}

	return c
}

// Kind returns KindConv2d.
func (c *Conv2d) Kind() nodestat.Kind {
	return nodestat.KindConv2d
}

// Parameters returns the weight and, if present, the bias.
func (c *Conv2d) Parameters() []*nodestat.Tensor {
	if c.Bias == nil {
		return []*nodestat.Tensor{c.Weight}
	}

	return []*nodestat.Tensor{c.Weight, c.Bias}
}

// OutputSize returns the spatial output size for an input of size in.
func (c *Conv2d) OutputSize(in int) int {
	return (in+2*c.Padding-c.KernelSize)/c.Stride + 1
}

// Invoke convolves the input.
func (c *Conv2d) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := input4D(c.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	n, ch, h, w := in.Shape[0], in.Shape[1], in.Shape[2], in.Shape[3]
	if ch != c.InChannels {
		return nil, fmt.Errorf("conv2d expects %d input channels, got %d",
			c.InChannels, ch)
	}

	oh, ow := c.OutputSize(h), c.OutputSize(w)
	if oh <= 0 || ow <= 0 {
		return nil, fmt.Errorf("conv2d input %dx%d is smaller than kernel %d",
			h, w, c.KernelSize)
	}

	out := newOutput(in, n, c.OutChannels, oh, ow)
	inPerGroup := c.InChannels / c.Groups
	outPerGroup := c.OutChannels / c.Groups
	k := c.KernelSize

	for b := 0; b < n; b++ {
		for oc := 0; oc < c.OutChannels; oc++ {
			g := oc / outPerGroup
			var bias float32
			if c.Bias != nil {
				bias = c.Bias.Data[oc]
			}

			for y := 0; y < oh; y++ {
				for x := 0; x < ow; x++ {
					sum := bias
					for ic := 0; ic < inPerGroup; ic++ {
						inC := g*inPerGroup + ic
						for ky := 0; ky < k; ky++ {
							iy := y*c.Stride - c.Padding + ky
							if iy < 0 || iy >= h {
								continue
							}

							for kx := 0; kx < k; kx++ {
								ix := x*c.Stride - c.Padding + kx
								if ix < 0 || ix >= w {
									continue
								}

								v := in.Data[((b*ch+inC)*h+iy)*w+ix]
								wt := c.Weight.Data[((oc*inPerGroup+ic)*k+ky)*k+kx]
								sum += v * wt
							}
						}
					}
					out.Data[((b*c.OutChannels+oc)*oh+y)*ow+x] = sum
				}
			}
		}
	}

	return out, nil
}
