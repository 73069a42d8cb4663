package layers

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nodestat"
)

var _ = Describe("Conv2d", func() {
	It("should keep the spatial size with same padding", func() {
		conv := NewConv2d(3, 8, 3, WithPadding(1))
		x := nodestat.RandTensor(rand.New(rand.NewSource(1)), 1, 3, 32, 32)

		out, err := conv.Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Shape).To(Equal([]int{1, 8, 32, 32}))
		Expect(conv.Weight.Shape).To(Equal([]int{8, 3, 3, 3}))
		Expect(conv.Parameters()).To(HaveLen(2))
	})

	It("should compute a known convolution", func() {
		conv := NewConv2d(1, 1, 2, WithoutBias())
		copy(conv.Weight.Data, []float32{1, 0, 0, 1})

		x := nodestat.NewTensor(1, 1, 3, 3)
		copy(x.Data, []float32{
			1, 2, 3,
			4, 5, 6,
			7, 8, 9,
		})

		out, err := conv.Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Shape).To(Equal([]int{1, 1, 2, 2}))
		Expect(out.Data).To(Equal([]float32{6, 8, 12, 14}))
		Expect(conv.Parameters()).To(HaveLen(1))
	})

	It("should downsample with a stride", func() {
		conv := NewConv2d(2, 4, 3, WithStride(2), WithPadding(1))
		x := nodestat.NewTensor(2, 2, 8, 8)

		out, err := conv.Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Shape).To(Equal([]int{2, 4, 4, 4}))
	})

	It("should support grouped convolution", func() {
		conv := NewConv2d(4, 4, 1, WithGroups(4), WithoutBias())
		for i := range conv.Weight.Data {
			conv.Weight.Data[i] = float32(i + 1)
		}

		x := nodestat.NewTensor(1, 4, 1, 1)
		copy(x.Data, []float32{1, 1, 1, 1})

		out, err := conv.Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(conv.Weight.Shape).To(Equal([]int{4, 1, 1, 1}))
		Expect(out.Data).To(Equal([]float32{1, 2, 3, 4}))
	})

	It("should reject a channel mismatch", func() {
		conv := NewConv2d(3, 8, 3)

		_, err := conv.Invoke(nodestat.NewTensor(1, 4, 8, 8))

		Expect(err).To(HaveOccurred())
	})

	It("should reject non-4D inputs", func() {
		conv := NewConv2d(3, 8, 3)

		_, err := conv.Invoke(nodestat.NewTensor(3, 8, 8))

		Expect(err).To(HaveOccurred())
	})

	It("should keep the dtype of the input", func() {
		conv := NewConv2d(1, 1, 1)
		x := nodestat.NewTensor(1, 1, 2, 2)
		x.DType = nodestat.Float16

		out, err := conv.Invoke(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.DType).To(Equal(nodestat.Float16))
	})
})
