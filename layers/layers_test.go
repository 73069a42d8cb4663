package layers

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nodestat"
)

func tensorOf(shape []int, data ...float32) *nodestat.Tensor {
	t := nodestat.NewTensor(shape...)
	copy(t.Data, data)

	return t
}

var _ = Describe("Activations", func() {
	var x *nodestat.Tensor

	BeforeEach(func() {
		x = tensorOf([]int{1, 2, 1, 2}, -2, 1, -4, 3)
	})

	It("should clamp negatives with ReLU", func() {
		out, err := NewReLU().Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Data).To(Equal([]float32{0, 1, 0, 3}))
		Expect(x.Data).To(Equal([]float32{-2, 1, -4, 3}))
	})

	It("should scale negatives with LeakyReLU", func() {
		out, err := NewLeakyReLU(0.5).Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Data).To(Equal([]float32{-1, 1, -2, 3}))
	})

	It("should use per-channel slopes with PReLU", func() {
		prelu := NewPReLU(2)
		prelu.Weight.Data[1] = 0.5

		out, err := prelu.Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Data).To(Equal([]float32{-0.5, 1, -2, 3}))
		Expect(prelu.Parameters()).To(HaveLen(1))
	})

	It("should reject a PReLU slope count mismatch", func() {
		_, err := NewPReLU(3).Invoke(x)

		Expect(err).To(HaveOccurred())
	})

	It("should squash with Sigmoid and Tanh", func() {
		zero := nodestat.NewTensor(1, 1)

		s, err := NewSigmoid().Invoke(zero)
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Data[0]).To(BeNumerically("~", 0.5, 1e-6))

		t, err := NewTanh().Invoke(zero)
		Expect(err).ToNot(HaveOccurred())
		Expect(t.Data[0]).To(BeNumerically("~", 0, 1e-6))
	})

	It("should reject more than one input", func() {
		_, err := NewReLU().Invoke(x, x)

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("BatchNorm2d", func() {
	It("should be close to identity with default statistics", func() {
		bn := NewBatchNorm2d(2)
		x := tensorOf([]int{1, 2, 1, 1}, 1, -1)

		out, err := bn.Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Data[0]).To(BeNumerically("~", 1, 1e-4))
		Expect(out.Data[1]).To(BeNumerically("~", -1, 1e-4))
		Expect(bn.Parameters()).To(HaveLen(2))
	})

	It("should reject a channel mismatch", func() {
		_, err := NewBatchNorm2d(3).Invoke(nodestat.NewTensor(1, 2, 1, 1))

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Pooling", func() {
	var x *nodestat.Tensor

	BeforeEach(func() {
		x = tensorOf([]int{1, 1, 2, 4},
			1, 2, 5, 6,
			3, 4, 7, 8)
	})

	It("should take window maxima", func() {
		out, err := NewMaxPool2d(2, 0).Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Shape).To(Equal([]int{1, 1, 1, 2}))
		Expect(out.Data).To(Equal([]float32{4, 8}))
	})

	It("should take window averages", func() {
		out, err := NewAvgPool2d(2, 2).Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Data).To(Equal([]float32{2.5, 6.5}))
	})

	It("should reject inputs smaller than the kernel", func() {
		_, err := NewMaxPool2d(3, 1).Invoke(x)

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Linear", func() {
	It("should apply the weights and bias", func() {
		l := NewLinear(2, 1)
		copy(l.Weight.Data, []float32{2, 3})
		l.Bias.Data[0] = 1

		out, err := l.Invoke(tensorOf([]int{2, 2}, 1, 1, 2, 0))

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Shape).To(Equal([]int{2, 1}))
		Expect(out.Data).To(Equal([]float32{6, 5}))
	})

	It("should reject a feature mismatch", func() {
		_, err := NewLinear(3, 1).Invoke(nodestat.NewTensor(1, 2))

		Expect(err).To(HaveOccurred())
	})

	It("should flatten all but the batch dimension", func() {
		out, err := NewFlatten().Invoke(nodestat.NewTensor(2, 3, 4, 4))

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Shape).To(Equal([]int{2, 48}))
	})
})

var _ = Describe("Rearrangement", func() {
	It("should shuffle channels into space", func() {
		x := tensorOf([]int{1, 4, 1, 1}, 1, 2, 3, 4)

		out, err := NewPixelShuffle(2).Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Shape).To(Equal([]int{1, 1, 2, 2}))
		Expect(out.Data).To(Equal([]float32{1, 2, 3, 4}))
	})

	It("should reject channels not divisible by the factor squared", func() {
		_, err := NewPixelShuffle(2).Invoke(nodestat.NewTensor(1, 3, 1, 1))

		Expect(err).To(HaveOccurred())
	})

	It("should repeat pixels when upsampling", func() {
		x := tensorOf([]int{1, 1, 1, 2}, 1, 2)

		out, err := NewUpsample(2).Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Shape).To(Equal([]int{1, 1, 2, 4}))
		Expect(out.Data).To(Equal([]float32{1, 1, 2, 2, 1, 1, 2, 2}))
	})
})

var _ = Describe("Add", func() {
	It("should sum all inputs", func() {
		a := tensorOf([]int{1, 2}, 1, 2)
		b := tensorOf([]int{1, 2}, 3, 4)
		c := tensorOf([]int{1, 2}, 5, 6)

		out, err := NewAdd().Invoke(a, b, c)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Data).To(Equal([]float32{9, 12}))
	})

	It("should reject a single input", func() {
		_, err := NewAdd().Invoke(nodestat.NewTensor(1))

		Expect(err).To(HaveOccurred())
	})

	It("should reject mismatched shapes", func() {
		_, err := NewAdd().Invoke(nodestat.NewTensor(1, 2), nodestat.NewTensor(2, 1))

		Expect(err).To(HaveOccurred())
	})

	It("should add the input back in a residual block", func() {
		body := nodestat.NewSequential("", nodestat.NewLeaf("relu", NewReLU()))
		block := Residual("block", body)
		x := tensorOf([]int{1, 2}, -1, 2)

		out, err := block.Forward(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Data).To(Equal([]float32{-1, 4}))
		Expect(block.Children).To(HaveLen(2))
		Expect(block.ChildName(0)).To(Equal("body"))
		Expect(block.Children[1].Kind()).To(Equal(nodestat.KindAdd))
	})
})
