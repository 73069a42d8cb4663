// Package hook instruments the leaves of a graph so that every invocation
// records its latency, shapes, parameter count, activation memory and
// arithmetic cost, without changing what the graph computes.
package hook

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/sarchlab/nodestat"
	"github.com/sarchlab/nodestat/costmodel"
	"github.com/sarchlab/nodestat/registry"
	"gitlab.com/akita/akita/v3/sim"
)

// Hook positions invoked around every instrumented leaf call. The hook
// item is a LeafEvent.
var (
	HookPosLeafStart = &sim.HookPos{Name: "LeafStart"}
	HookPosLeafEnd   = &sim.HookPos{Name: "LeafEnd"}
)

// installMu serializes leaf substitution across engines that may share a
// graph.
var installMu sync.Mutex

// An installation groups the decorators installed for one kind.
type installation struct {
	kind       nodestat.Kind
	decorators []*decoratedOp
}

// An Engine instruments one graph at a time.
type Engine struct {
	sim.HookableBase

	mu        sync.Mutex
	costModel costmodel.Provider
	logger    *slog.Logger
	batchSize int
	dtype     nodestat.DType
	rng       *rand.Rand

	graph    *nodestat.Node
	records  map[*nodestat.Node]*nodestat.Record
	installs map[nodestat.Kind]*installation
	kinds    []nodestat.Kind
}

// An Option configures an Engine.
type Option func(*Engine)

// WithCostModel sets the cost model provider. The default is
// costmodel.Default.
func WithCostModel(p costmodel.Provider) Option {
	return func(e *Engine) { e.costModel = p }
}

// WithLogger sets the logger used for soft failures and installation
// messages.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithBatchSize sets the batch size of the warm-up input created by
// Attach.
func WithBatchSize(batchSize int) Option {
	return func(e *Engine) { e.batchSize = batchSize }
}

// WithDType sets the element type of the warm-up input created by Attach.
func WithDType(dtype nodestat.DType) Option {
	return func(e *Engine) { e.dtype = dtype }
}

// WithSeed sets the seed of the warm-up input created by Attach.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewSource(seed)) }
}

// NewEngine creates a new Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		costModel: costmodel.NewDefault(),
		logger:    slog.Default(),
		batchSize: 1,
		dtype:     nodestat.Float32,
		rng:       rand.New(rand.NewSource(1)),
		records:   make(map[*nodestat.Node]*nodestat.Record),
		installs:  make(map[nodestat.Kind]*installation),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Attach instruments every leaf of g and runs one forward pass on a random
// input of shape [batch, inputShape...] to populate the records. The
// input shape excludes the batch dimension.
func (e *Engine) Attach(g *nodestat.Node, inputShape []int) error {
	if len(inputShape) == 0 {
		return fmt.Errorf("input shape is empty")
	}

	for _, d := range inputShape {
		if d <= 0 {
			return fmt.Errorf("input shape %v has a non-positive dimension",
				inputShape)
		}
	}

	e.mu.Lock()
	shape := append([]int{e.batchSize}, inputShape...)
	x := nodestat.RandTensor(e.rng, shape...)
	x.DType = e.dtype
	e.mu.Unlock()

	_, err := e.AttachInputs(g, x)

	return err
}

// AttachInputs instruments every leaf of g and runs one forward pass on
// the given inputs. It returns the output of the pass. If the pass fails
// the graph stays instrumented; call Detach to restore it.
func (e *Engine) AttachInputs(
	g *nodestat.Node,
	inputs ...*nodestat.Tensor,
) (*nodestat.Tensor, error) {
	err := e.install(g)
	if err != nil {
		return nil, err
	}

	out, err := g.Forward(inputs...)
	if err != nil {
		return nil, fmt.Errorf("warm-up pass: %w", err)
	}

	return out, nil
}

func (e *Engine) install(g *nodestat.Node) error {
	installMu.Lock()
	defer installMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.graph != nil {
		return nodestat.ErrAlreadyInstrumented
	}

	leaves := registry.EnumerateLeaves(g)
	for _, leaf := range leaves {
		if _, ok := leaf.Node.Op.(*decoratedOp); ok {
			return fmt.Errorf("%s: %w", leaf.Path, nodestat.ErrAlreadyInstrumented)
		}
	}

	e.records = make(map[*nodestat.Node]*nodestat.Record, len(leaves))
	for _, leaf := range leaves {
		e.records[leaf.Node] = &nodestat.Record{}
	}

	for _, leaf := range leaves {
		if leaf.Node.Op == nil {
			e.logger.Warn("leaf has no operation", "path", leaf.Path)
			continue
		}

		e.decorate(leaf)
	}

	e.graph = g

	return nil
}

func (e *Engine) decorate(leaf registry.Leaf) {
	kind := leaf.Node.Op.Kind()

	inst, ok := e.installs[kind]
	if !ok {
		inst = &installation{kind: kind}
		e.installs[kind] = inst
		e.kinds = append(e.kinds, kind)
		e.logger.Debug("hook installed", "kind", kind)
	}

	d := &decoratedOp{
		inner:  leaf.Node.Op,
		node:   leaf.Node,
		path:   leaf.Path,
		record: e.records[leaf.Node],
		engine: e,
	}
	inst.decorators = append(inst.decorators, d)
	leaf.Node.Op = d
}

// Detach restores the original operations of every leaf the engine
// instrumented, in reverse installation order. Records are kept so that Report still works. Detach can be
// called any number of times.
func (e *Engine) Detach(g *nodestat.Node) {
	installMu.Lock()
	defer installMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if g != nil && e.graph != nil && g != e.graph {
		e.logger.Warn("detaching a graph that differs from the attached one",
			"attached", e.graph.Name, "given", g.Name)
	}

	for i := len(e.kinds) - 1; i >= 0; i-- {
		kind := e.kinds[i]
		inst := e.installs[kind]
		for j := len(inst.decorators) - 1; j >= 0; j-- {
			d := inst.decorators[j]
			if d.node.Op == d {
				d.node.Op = d.Unwrap()
			}
		}

		delete(e.installs, kind)
		e.logger.Debug("hook removed", "kind", kind)
	}

	e.kinds = nil
	e.graph = nil
}

// Leaves returns the leaves of g in depth-first order.
func (e *Engine) Leaves(g *nodestat.Node) []registry.Leaf {
	return registry.EnumerateLeaves(g)
}

// Report returns a snapshot of the records of every leaf of g.
func (e *Engine) Report(g *nodestat.Node) (nodestat.Report, error) {
	return registry.BuildReport(g, e)
}

// Record returns a copy of the record of a leaf.
func (e *Engine) Record(n *nodestat.Node) (nodestat.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.records[n]
	if !ok {
		return nodestat.Record{}, false
	}

	return r.Clone(), true
}

// InstalledKinds returns the kinds that currently have a hook installed,
// in installation order.
func (e *Engine) InstalledKinds() []nodestat.Kind {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]nodestat.Kind{}, e.kinds...)
}

// IsAttached returns true if the engine currently instruments a graph.
func (e *Engine) IsAttached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.graph != nil
}
