package layers

import (
	"fmt"
	"math"

	"github.com/sarchlab/nodestat"
)

// A MaxPool2d takes the maximum over square windows.
type MaxPool2d struct {
	KernelSize int
	Stride     int
}

// NewMaxPool2d creates a max pooling. A stride of 0 means the kernel size.
func NewMaxPool2d(kernelSize, stride int) *MaxPool2d {
	if stride == 0 {
		stride = kernelSize
	}

	return &MaxPool2d{KernelSize: kernelSize, Stride: stride}
}

// Kind returns KindMaxPool2d.
func (p *MaxPool2d) Kind() nodestat.Kind { return nodestat.KindMaxPool2d }

// Parameters returns nil.
func (p *MaxPool2d) Parameters() []*nodestat.Tensor { return nil }

// Invoke pools the input.
func (p *MaxPool2d) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := input4D(p.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	return pool(in, p.KernelSize, p.Stride, func(window []float32) float32 {
		m := float32(math.Inf(-1))
		for _, v := range window {
			if v > m {
				m = v
			}
		}
		return m
	})
}

// An AvgPool2d averages over square windows.
type AvgPool2d struct {
	KernelSize int
	Stride     int
}

// NewAvgPool2d creates an average pooling. A stride of 0 means the kernel
// size.
func NewAvgPool2d(kernelSize, stride int) *AvgPool2d {
	if stride == 0 {
		stride = kernelSize
	}

	return &AvgPool2d{KernelSize: kernelSize, Stride: stride}
}

// Kind returns KindAvgPool2d.
func (p *AvgPool2d) Kind() nodestat.Kind { return nodestat.KindAvgPool2d }

// Parameters returns nil.
func (p *AvgPool2d) Parameters() []*nodestat.Tensor { return nil }

// Invoke pools the input.
func (p *AvgPool2d) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	in, err := input4D(p.Kind(), inputs)
	if err != nil {
		return nil, err
	}

	return pool(in, p.KernelSize, p.Stride, func(window []float32) float32 {
		var sum float32
		for _, v := range window {
			sum += v
		}
		return sum / float32(len(window))
	})
}

func pool(
	in *nodestat.Tensor,
	k, stride int,
	reduce func(window []float32) float32,
) (*nodestat.Tensor, error) {
	n, ch, h, w := in.Shape[0], in.Shape[1], in.Shape[2], in.Shape[3]
	oh := (h-k)/stride + 1
	ow := (w-k)/stride + 1
	if h < k || w < k {
		return nil, fmt.Errorf("pooling input %dx%d is smaller than kernel %d",
			h, w, k)
	}

	out := newOutput(in, n, ch, oh, ow)
	window := make([]float32, 0, k*k)
	for b := 0; b < n; b++ {
		for c := 0; c < ch; c++ {
			base := (b*ch + c) * h * w
			for y := 0; y < oh; y++ {
				for x := 0; x < ow; x++ {
					window = window[:0]
					for ky := 0; ky < k; ky++ {
						row := base + (y*stride+ky)*w + x*stride
						window = append(window, in.Data[row:row+k]...)
					}
					out.Data[((b*ch+c)*oh+y)*ow+x] = reduce(window)
				}
			}
		}
	}

	return out, nil
}
