package nodestat_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nodestat"
)

type scaleOp struct {
	factor float32
	calls  int
}

func (s *scaleOp) Kind() nodestat.Kind { return "Scale" }

func (s *scaleOp) Parameters() []*nodestat.Tensor { return nil }

func (s *scaleOp) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	s.calls++

	out := inputs[0].Clone()
	for i := range out.Data {
		out.Data[i] *= s.factor
	}

	return out, nil
}

type failingOp struct{}

func (f failingOp) Kind() nodestat.Kind { return "Fail" }

func (f failingOp) Parameters() []*nodestat.Tensor { return nil }

func (f failingOp) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	return nil, errors.New("boom")
}

var _ = Describe("Node", func() {
	It("should report leaf and composite kinds", func() {
		leaf := nodestat.NewLeaf("scale", &scaleOp{factor: 2})
		seq := nodestat.NewSequential("seq", leaf)

		Expect(leaf.IsLeaf()).To(BeTrue())
		Expect(leaf.Kind()).To(Equal(nodestat.Kind("Scale")))
		Expect(seq.IsLeaf()).To(BeFalse())
		Expect(seq.Kind()).To(Equal(nodestat.KindComposite))
		Expect(nodestat.NewLeaf("empty", nil).Kind()).To(Equal(nodestat.Kind("")))
	})

	It("should name unnamed children by index", func() {
		seq := nodestat.NewSequential("seq",
			nodestat.NewLeaf("", &scaleOp{factor: 1}),
			nodestat.NewLeaf("named", &scaleOp{factor: 1}))

		Expect(seq.ChildName(0)).To(Equal("0"))
		Expect(seq.ChildName(1)).To(Equal("named"))
	})

	It("should chain sequential children", func() {
		a := &scaleOp{factor: 2}
		b := &scaleOp{factor: 3}
		seq := nodestat.NewSequential("seq",
			nodestat.NewLeaf("a", a), nodestat.NewLeaf("b", b))

		x := nodestat.NewTensor(2)
		x.Data[0] = 1
		x.Data[1] = 2

		out, err := seq.Forward(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Data).To(Equal([]float32{6, 12}))
		Expect(x.Data).To(Equal([]float32{1, 2}))
		Expect(a.calls).To(Equal(1))
		Expect(b.calls).To(Equal(1))
	})

	It("should use the custom evaluation of a composite", func() {
		comp := nodestat.NewComposite("twice",
			func(children []*nodestat.Node, inputs []*nodestat.Tensor) (*nodestat.Tensor, error) {
				y, err := children[0].Forward(inputs...)
				if err != nil {
					return nil, err
				}

				return children[0].Forward(y)
			},
			nodestat.NewLeaf("scale", &scaleOp{factor: 2}))

		x := nodestat.NewTensor(1)
		x.Data[0] = 1

		out, err := comp.Forward(x)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.Data).To(Equal([]float32{4}))
	})

	It("should wrap errors with the child path", func() {
		seq := nodestat.NewSequential("net",
			nodestat.NewSequential("block", nodestat.NewLeaf("bad", failingOp{})))

		_, err := seq.Forward(nodestat.NewTensor(1))

		Expect(err).To(MatchError("net.block: block.bad: boom"))
	})

	It("should fail on a leaf without operation", func() {
		_, err := nodestat.NewLeaf("empty", nil).Forward(nodestat.NewTensor(1))

		Expect(errors.Is(err, nodestat.ErrNoOperation)).To(BeTrue())
	})
})
