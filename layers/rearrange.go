package layers

import (
	"fmt"

	"github.com/sarchlab/nodestat"
)

// A PixelShuffle rearranges [N, C*r*r, H, W] into [N, C, H*r, W*r].
type PixelShuffle struct {
	Factor int
}

// NewPixelShuffle creates a PixelShuffle with upscale factor r.
func NewPixelShuffle(factor int) *PixelShuffle {
	return &PixelShuffle{Factor: factor}
}

// Kind returns KindPixelShuffle.
func (p *PixelShuffle) Kind() nodestat.Kind { return nodestat.KindPixelShuffle }

// Parameters returns nil.
func (p *PixelShuffle) Parameters() []*nodestat.Tensor { return nil }

// Invoke rearranges the input.
func (p *PixelShuffle) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := input4D(p.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	r := p.Factor
	n, ch, h, w := in.Shape[0], in.Shape[1], in.Shape[2], in.Shape[3]
	if ch%(r*r) != 0 {
		return nil, fmt.Errorf("pixel shuffle needs channels divisible by %d, got %d",
			r*r, ch)
	}

	oc := ch / (r * r)
	oh, ow := h*r, w*r
	out := newOutput(in, n, oc, oh, ow)
	for b := 0; b < n; b++ {
		for c := 0; c < ch; c++ {
			dstC := c / (r * r)
			dy := (c % (r * r)) / r
			dx := c % r
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					src := ((b*ch+c)*h+y)*w + x
					dst := ((b*oc+dstC)*oh+y*r+dy)*ow + x*r + dx
					out.Data[dst] = in.Data[src]
				}
			}
		}
	}

	return out, nil
}

// An Upsample enlarges the spatial dimensions by an integer factor using
// nearest-neighbour interpolation.
type Upsample struct {
	Factor int
}

// NewUpsample creates an Upsample.
func NewUpsample(factor int) *Upsample {
	return &Upsample{Factor: factor}
}

// Kind returns KindUpsample.
func (u *Upsample) Kind() nodestat.Kind { return nodestat.KindUpsample }

// Parameters returns nil.
func (u *Upsample) Parameters() []*nodestat.Tensor { return nil }

// Invoke upsamples the input.
func (u *Upsample) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := input4D(u.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	r := u.Factor
	n, ch, h, w := in.Shape[0], in.Shape[1], in.Shape[2], in.Shape[3]
	oh, ow := h*r, w*r
	out := newOutput(in, n, ch, oh, ow)
	for b := 0; b < n; b++ {
		for c := 0; c < ch; c++ {
			for y := 0; y < oh; y++ {
				for x := 0; x < ow; x++ {
					src := ((b*ch+c)*h+y/r)*w + x/r
					out.Data[((b*ch+c)*oh+y)*ow+x] = in.Data[src]
				}
			}
		}
	}

	return out, nil
}
