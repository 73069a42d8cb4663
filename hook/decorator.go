package hook

import (
	"fmt"
	"time"

	"github.com/sarchlab/nodestat"
	"gitlab.com/akita/akita/v3/sim"
)

const bytesPerMiB = 1024 * 1024

// activationElemBytes is the byte width assumed for output activations
// when computing inference memory.
const activationElemBytes = 4

// A LeafEvent describes one invocation of an instrumented leaf. At
// HookPosLeafStart the record is the one left by the previous call.
type LeafEvent struct {
	Path   string
	Kind   nodestat.Kind
	Node   *nodestat.Node
	Record nodestat.Record
}

// A decoratedOp replaces the operation of a leaf while the leaf is
// instrumented. It forwards every call to the original operation.
type decoratedOp struct {
	inner  nodestat.LeafOperation
	node   *nodestat.Node
	path   string
	record *nodestat.Record
	engine *Engine
}

func (d *decoratedOp) Kind() nodestat.Kind {
	return d.inner.Kind()
}

func (d *decoratedOp) Parameters() []*nodestat.Tensor {
	return d.inner.Parameters()
}

// Unwrap returns the original operation.
func (d *decoratedOp) Unwrap() nodestat.LeafOperation {
	return d.inner
}

// Invoke times the original operation and records its figures. The output
// and error of the original operation are returned unchanged.
func (d *decoratedOp) Invoke(inputs ...*nodestat.Tensor) (*nodestat.Tensor, error) {
	d.engine.invokeHook(HookPosLeafStart, d)

	start := time.Now()
	output, err := d.inner.Invoke(inputs...)
	duration := time.Since(start).Seconds()

	d.engine.measure(d, inputs, output, duration)
	d.engine.invokeHook(HookPosLeafEnd, d)

	return output, err
}

func (e *Engine) invokeHook(pos *sim.HookPos, d *decoratedOp) {
	if e.NumHooks() == 0 {
		return
	}

	e.mu.Lock()
	rec := d.record.Clone()
	e.mu.Unlock()

	e.InvokeHook(sim.HookCtx{
		Domain: e,
		Pos:    pos,
		Item: LeafEvent{
			Path:   d.path,
			Kind:   d.inner.Kind(),
			Node:   d.node,
			Record: rec,
		},
	})
}

// A measurement holds the figures of one call before they are stored.
type measurement struct {
	duration       float64
	inputShape     []int
	outputShape    []int
	parameterCount int64
	inferenceMB    float64
	hasInput       bool
	hasOutput      bool

	madd       int64
	flops      int64
	convFlops  int64
	readBytes  int64
	writeBytes int64

	maddErr  error
	flopsErr error
	memErr   error
}

func (e *Engine) measure(
	d *decoratedOp,
	inputs []*nodestat.Tensor,
	output *nodestat.Tensor,
	duration float64,
) {
	m := measurement{
		duration:       duration,
		inputShape:     []int{},
		outputShape:    []int{},
		parameterCount: countParameters(d.inner),
	}

	if output != nil {
		m.hasOutput = true
		m.outputShape = output.SampleShape()
		m.inferenceMB = float64(nodestat.NumElements(m.outputShape)) *
			activationElemBytes / bytesPerMiB
	}

	usable := usableInputs(inputs)
	if len(usable) > 0 {
		m.hasInput = true
		m.inputShape = usable[0].SampleShape()
	}

	if m.hasInput && m.hasOutput {
		e.estimateCost(d, usable, output, &m)
	}

	e.store(d, &m)
	e.logCostFailures(d, &m)
}

func (e *Engine) estimateCost(
	d *decoratedOp,
	inputs []*nodestat.Tensor,
	output *nodestat.Tensor,
	m *measurement,
) {
	itemSize := int64(inputs[0].ElemBytes())

	m.maddErr = guard(func() error {
		var err error
		m.madd, err = e.costModel.MultiplyAdds(d.inner, inputs, output)
		return err
	})

	m.flopsErr = guard(func() error {
		flops, label, err := e.costModel.Flops(d.inner, inputs, output)
		if err != nil {
			return err
		}

		m.flops = flops
		if label == string(nodestat.KindConv2d) {
			m.convFlops = flops
		}

		return nil
	})

	m.memErr = guard(func() error {
		read, write, err := e.costModel.MemoryAccess(d.inner, inputs, output)
		if err != nil {
			return err
		}

		m.readBytes = read * itemSize
		m.writeBytes = write * itemSize

		return nil
	})
}

// store writes a measurement into the record of the leaf. Cost figures
// whose estimation failed keep their previous values.
func (e *Engine) store(d *decoratedOp, m *measurement) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := d.record
	rec.DurationSeconds = m.duration
	rec.InputShape = m.inputShape
	rec.ParameterCount = m.parameterCount

	if !m.hasOutput {
		return
	}

	rec.OutputShape = m.outputShape
	rec.InferenceMemoryMB = m.inferenceMB

	if !m.hasInput {
		rec.MultiplyAdds = 0
		rec.Flops = 0
		rec.ConvFlops = 0
		rec.MemoryReadBytes = 0
		rec.MemoryWriteBytes = 0
		return
	}

	if m.maddErr == nil {
		rec.MultiplyAdds = m.madd
	}

	if m.flopsErr == nil {
		rec.Flops = m.flops
		rec.ConvFlops = m.convFlops
	}

	if m.memErr == nil {
		rec.MemoryReadBytes = m.readBytes
		rec.MemoryWriteBytes = m.writeBytes
	}
}

func (e *Engine) logCostFailures(d *decoratedOp, m *measurement) {
	failures := []struct {
		metric string
		err    error
	}{
		{"multiply_adds", m.maddErr},
		{"flops", m.flopsErr},
		{"memory", m.memErr},
	}

	for _, f := range failures {
		if f.err == nil {
			continue
		}

		e.logger.Warn("cost model failed",
			"path", d.path,
			"kind", d.inner.Kind(),
			"metric", f.metric,
			"error", f.err)
	}
}

// guard runs f and converts a panic into an error.
func guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cost model panic: %v", r)
		}
	}()

	return f()
}

func usableInputs(inputs []*nodestat.Tensor) []*nodestat.Tensor {
	usable := make([]*nodestat.Tensor, 0, len(inputs))
	for _, in := range inputs {
		if in != nil {
			usable = append(usable, in)
		}
	}

	return usable
}

func countParameters(op nodestat.LeafOperation) int64 {
	var n int64
	for _, p := range op.Parameters() {
		if p != nil {
			n += int64(p.NumElements())
		}
	}

	return n
}
