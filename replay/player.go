// Package replay provides a player that replays a profiling report on a
// discrete-event engine to estimate the end-to-end latency of a graph
// under a time model.
package replay

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/nodestat"
	"github.com/sarchlab/nodestat/timemodel"
	"gitlab.com/akita/akita/v3/sim"
)

// A playNextEvent triggers the player to continue to play the report.
type playNextEvent struct {
	time    sim.VTimeInSec
	handler *Player
}

// Time returns the time of the event.
func (e playNextEvent) Time() sim.VTimeInSec {
	return e.time
}

// Handler returns the handler of the event.
func (e playNextEvent) Handler() sim.Handler {
	return e.handler
}

// IsSecondary always returns false.
func (e playNextEvent) IsSecondary() bool {
	return false
}

// A layerCompletionEvent is triggered when a leaf finishes computing.
type layerCompletionEvent struct {
	time    sim.VTimeInSec
	handler *Player
	index   int
}

// Time returns the time of the event.
func (e layerCompletionEvent) Time() sim.VTimeInSec {
	return e.time
}

// Handler returns the handler of the event.
func (e layerCompletionEvent) Handler() sim.Handler {
	return e.handler
}

// IsSecondary always returns false.
func (e layerCompletionEvent) IsSecondary() bool {
	return false
}

// A LayerTiming is the simulated execution window of one leaf.
type LayerTiming struct {
	Path  string
	Start sim.VTimeInSec
	End   sim.VTimeInSec
}

// A Player replays the leaves of a report one after another.
type Player struct {
	sim.TimeTeller
	sim.EventScheduler
	timeEstimator timemodel.TimeEstimator

	name                string
	report              nodestat.Report
	computingLayerIndex int
	doingComputing      bool
	timings             []LayerTiming
}

// NewPlayer creates a new Player.
func NewPlayer(
	name string,
	tt sim.TimeTeller,
	es sim.EventScheduler,
	timeEstimator timemodel.TimeEstimator,
) *Player {
	return &Player{
		name:           name,
		TimeTeller:     tt,
		EventScheduler: es,
		timeEstimator:  timeEstimator,
	}
}

// Name returns the name of the player.
func (p *Player) Name() string {
	return p.name
}

// SetReport sets the report to replay.
func (p *Player) SetReport(r nodestat.Report) {
	p.report = r
	p.computingLayerIndex = 0
	p.doingComputing = false
	p.timings = make([]LayerTiming, 0, len(r.Entries))
}

// KickStart schedules the first playNextEvent. The caller should still run
// the engine.
func (p *Player) KickStart() {
	if len(p.report.Entries) == 0 {
		panic("Report is not set")
	}

	p.Schedule(playNextEvent{
		time:    p.CurrentTime(),
		handler: p,
	})
}

// Handle handles the events of the player.
func (p *Player) Handle(e sim.Event) error {
	switch e := e.(type) {
	case playNextEvent:
		return p.playNext()
	case layerCompletionEvent:
		p.completeLayer(e)
	default:
		panic("Player cannot handle this event type " +
			reflect.TypeOf(e).String())
	}

	return nil
}

// Finished returns true when every leaf has completed.
func (p *Player) Finished() bool {
	return len(p.timings) == len(p.report.Entries) && !p.doingComputing
}

// Timings returns the execution windows of the completed leaves.
func (p *Player) Timings() []LayerTiming {
	return append([]LayerTiming{}, p.timings...)
}

// playNext starts the next leaf if nothing is computing.
func (p *Player) playNext() error {
	if p.doingComputing {
		return nil
	}

	if p.computingLayerIndex >= len(p.report.Entries) {
		return nil
	}

	entry := p.report.Entries[p.computingLayerIndex]
	input := timemodel.TimeEstimatorInput{
		Name:              entry.Path,
		Kind:              string(entry.Kind),
		InputShape:        entry.InputShape,
		OutputShape:       entry.OutputShape,
		RecordedTimeInSec: entry.DurationSeconds,
		Flops:             entry.Flops,
		MemoryBytes:       entry.MemoryReadBytes + entry.MemoryWriteBytes,
	}

	output, err := p.timeEstimator.Estimate(input)
	if err != nil {
		return fmt.Errorf("estimating %s: %w", entry.Path, err)
	}

	now := p.CurrentTime()
	p.Schedule(layerCompletionEvent{
		time:    now + sim.VTimeInSec(output.TimeInSec),
		handler: p,
		index:   p.computingLayerIndex,
	})

	p.timings = append(p.timings, LayerTiming{
		Path:  entry.Path,
		Start: now,
	})

	p.doingComputing = true
	p.computingLayerIndex++

	return nil
}

func (p *Player) completeLayer(e layerCompletionEvent) {
	p.timings[e.index].End = p.CurrentTime()
	p.doingComputing = false

	p.Schedule(playNextEvent{
		time:    p.CurrentTime(),
		handler: p,
	})
}

// Simulate replays a report on engine and returns the execution window of
// every leaf. The end of the last window is the estimated latency.
func Simulate(
	engine *sim.SerialEngine,
	r nodestat.Report,
	timeEstimator timemodel.TimeEstimator,
) ([]LayerTiming, error) {
	if len(r.Entries) == 0 {
		return nil, nil
	}

	player := NewPlayer("Player", engine, engine, timeEstimator)
	player.SetReport(r)
	player.KickStart()

	err := engine.Run()
	if err != nil {
		return nil, err
	}

	if !player.Finished() {
		return nil, fmt.Errorf("replay stopped after %d of %d leaves",
			len(player.timings), len(r.Entries))
	}

	return player.Timings(), nil
}
