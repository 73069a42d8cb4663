package replay

import (
	"errors"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/nodestat"
	"github.com/sarchlab/nodestat/timemodel"
	"gitlab.com/akita/akita/v3/sim"
)

func sampleReport() nodestat.Report {
	return nodestat.NewReport([]nodestat.Entry{
		{
			Path: "features.conv",
			Kind: nodestat.KindConv2d,
			Record: nodestat.Record{
				InputShape:       []int{3, 32, 32},
				OutputShape:      []int{8, 32, 32},
				DurationSeconds:  0.002,
				Flops:            229376,
				MemoryReadBytes:  13184,
				MemoryWriteBytes: 32768,
			},
		},
		{
			Path: "features.relu",
			Kind: nodestat.KindReLU,
			Record: nodestat.Record{
				InputShape:      []int{8, 32, 32},
				OutputShape:     []int{8, 32, 32},
				DurationSeconds: 0.001,
			},
		},
	})
}

var _ = Describe("Player", func() {
	var (
		mockCtrl *gomock.Controller
		tt       *MockTimeTeller
		es       *MockEventScheduler
		te       *MockTimeEstimator
		player   *Player
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tt = NewMockTimeTeller(mockCtrl)
		es = NewMockEventScheduler(mockCtrl)
		te = NewMockTimeEstimator(mockCtrl)

		player = NewPlayer("Player", tt, es, te)
		player.SetReport(sampleReport())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should panic when kick started without a report", func() {
		player.SetReport(nodestat.Report{})

		Expect(func() { player.KickStart() }).To(Panic())
	})

	It("should schedule the first event on kick start", func() {
		tt.EXPECT().CurrentTime().Return(sim.VTimeInSec(0))
		es.EXPECT().Schedule(gomock.Any()).Do(func(e sim.Event) {
			Expect(e).To(BeAssignableToTypeOf(playNextEvent{}))
			Expect(e.Time()).To(Equal(sim.VTimeInSec(0)))
			Expect(e.Handler()).To(BeIdenticalTo(player))
		})

		player.KickStart()
	})

	It("should start the next leaf", func() {
		tt.EXPECT().CurrentTime().Return(sim.VTimeInSec(1)).AnyTimes()
		te.EXPECT().Estimate(gomock.Any()).
			DoAndReturn(func(in timemodel.TimeEstimatorInput) (timemodel.TimeEstimatorOutput, error) {
				Expect(in.Name).To(Equal("features.conv"))
				Expect(in.Kind).To(Equal("Conv2d"))
				Expect(in.RecordedTimeInSec).To(Equal(0.002))
				Expect(in.MemoryBytes).To(Equal(int64(13184 + 32768)))

				return timemodel.TimeEstimatorOutput{TimeInSec: 0.5}, nil
			})
		es.EXPECT().Schedule(gomock.Any()).Do(func(e sim.Event) {
			evt, ok := e.(layerCompletionEvent)
			Expect(ok).To(BeTrue())
			Expect(evt.Time()).To(Equal(sim.VTimeInSec(1.5)))
			Expect(evt.index).To(Equal(0))
		})

		err := player.Handle(playNextEvent{time: 1, handler: player})

		Expect(err).ToNot(HaveOccurred())
		Expect(player.doingComputing).To(BeTrue())
		Expect(player.Timings()).To(HaveLen(1))
		Expect(player.Timings()[0].Start).To(Equal(sim.VTimeInSec(1)))
	})

	It("should not start a leaf while computing", func() {
		player.doingComputing = true

		err := player.Handle(playNextEvent{time: 1, handler: player})

		Expect(err).ToNot(HaveOccurred())
		Expect(player.Timings()).To(BeEmpty())
	})

	It("should return estimation errors", func() {
		te.EXPECT().Estimate(gomock.Any()).
			Return(timemodel.TimeEstimatorOutput{}, errors.New("no model"))

		err := player.Handle(playNextEvent{time: 0, handler: player})

		Expect(err).To(MatchError(ContainSubstring("features.conv")))
	})

	It("should complete a leaf and continue", func() {
		player.timings = append(player.timings, LayerTiming{
			Path:  "features.conv",
			Start: 1,
		})
		player.computingLayerIndex = 1
		player.doingComputing = true

		tt.EXPECT().CurrentTime().Return(sim.VTimeInSec(1.5)).AnyTimes()
		es.EXPECT().Schedule(gomock.Any()).Do(func(e sim.Event) {
			Expect(e).To(BeAssignableToTypeOf(playNextEvent{}))
			Expect(e.Time()).To(Equal(sim.VTimeInSec(1.5)))
		})

		err := player.Handle(layerCompletionEvent{
			time:    1.5,
			handler: player,
			index:   0,
		})

		Expect(err).ToNot(HaveOccurred())
		Expect(player.doingComputing).To(BeFalse())
		Expect(player.Timings()[0].End).To(Equal(sim.VTimeInSec(1.5)))
		Expect(player.Finished()).To(BeFalse())
	})

	It("should finish after the last leaf", func() {
		player.computingLayerIndex = 2
		player.timings = []LayerTiming{
			{Path: "features.conv", Start: 0, End: 1},
			{Path: "features.relu", Start: 1, End: 2},
		}

		err := player.Handle(playNextEvent{time: 2, handler: player})

		Expect(err).ToNot(HaveOccurred())
		Expect(player.Finished()).To(BeTrue())
	})
})

var _ = Describe("Simulate", func() {
	It("should replay leaves back to back", func() {
		engine := sim.NewSerialEngine()

		timings, err := Simulate(engine, sampleReport(),
			&timemodel.RecordedTimeEstimator{})

		Expect(err).ToNot(HaveOccurred())
		Expect(timings).To(HaveLen(2))
		Expect(timings[0].Path).To(Equal("features.conv"))
		Expect(float64(timings[0].End)).To(BeNumerically("~", 0.002, 1e-12))
		Expect(timings[1].Start).To(Equal(timings[0].End))
		Expect(float64(timings[1].End)).To(BeNumerically("~", 0.003, 1e-12))
		Expect(float64(engine.CurrentTime())).To(BeNumerically("~", 0.003, 1e-12))
	})

	It("should return nothing for an empty report", func() {
		timings, err := Simulate(sim.NewSerialEngine(), nodestat.Report{},
			&timemodel.AlwaysOneTimeEstimator{})

		Expect(err).ToNot(HaveOccurred())
		Expect(timings).To(BeEmpty())
	})

	It("should stop on estimation errors", func() {
		_, err := Simulate(sim.NewSerialEngine(), sampleReport(),
			&timemodel.RooflineTimeEstimator{})

		Expect(err).To(HaveOccurred())
	})
})
