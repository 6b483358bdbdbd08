package optim

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// chainNetwork is a heater reservoir feeding two blocks in series.
func chainNetwork() ([]thermal.Node, []thermal.Edge) {
	nodes := []thermal.Node{
		{ID: "heater", HeatCapacity: 1, IsFixed: true, FixedTemp: 80},
		{ID: "inner", InitialTemp: 20, HeatCapacity: 30},
		{ID: "outer", InitialTemp: 20, HeatCapacity: 60},
		{ID: "room", HeatCapacity: 1, IsFixed: true, FixedTemp: 20},
	}
	edges := []thermal.Edge{
		{ID: "h-i", Source: "heater", Target: "inner", Conductance: 2},
		{ID: "i-o", Source: "inner", Target: "outer", Conductance: 3},
		{ID: "o-r", Source: "outer", Target: "room", Conductance: 1},
		{ID: "h-r", Source: "heater", Target: "room", Conductance: 9},
	}
	return nodes, edges
}

var _ = Describe("Estimate", func() {
	var (
		nodes    []thermal.Node
		edges    []thermal.Edge
		measured []thermal.Measurement
	)

	BeforeEach(func() {
		nodes, edges = chainNetwork()
		measured = observe(GinkgoT(), nodes, edges, thermal.Settings{TimeStep: 1, TotalTime: 40}, "inner", "outer")
	})

	Context("with a perturbed starting network", func() {
		var start []thermal.Node

		BeforeEach(func() {
			start = thermal.CloneNodes(nodes)
			start[1].HeatCapacity = 45
			start[2].HeatCapacity = 40
		})

		It("never reports an error above the starting objective", func() {
			initial, err := Objective(start, edges, thermal.EstimationSettings{Measurements: measured})
			Expect(err).NotTo(HaveOccurred())

			res, err := Estimate(context.Background(), start, edges, thermal.EstimationSettings{
				Measurements:  measured,
				MaxIterations: 300,
				Tolerance:     1e-10,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.ConvergenceInfo.FinalError).To(BeNumerically("<=", initial))
			Expect(res.ConvergenceInfo.Iterations).To(BeNumerically("<=", 300))
		})

		It("reports the parameters that reproduce its final error", func() {
			res, err := Estimate(context.Background(), start, edges, thermal.EstimationSettings{
				Measurements:  measured,
				MaxIterations: 120,
				Tolerance:     1e-10,
			})
			Expect(err).NotTo(HaveOccurred())

			fitNodes, fitEdges := res.Apply(start, edges)
			again, err := Objective(fitNodes, fitEdges, thermal.EstimationSettings{Measurements: measured})
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeNumerically("~", res.ConvergenceInfo.FinalError, 1e-9))
		})
	})

	It("leaves parameters that cannot affect any trace untouched", func() {
		res, err := Estimate(context.Background(), nodes, edges, thermal.EstimationSettings{
			Measurements:  measured,
			MaxIterations: 20,
			Tolerance:     1e-6,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.EstimatedConductances).To(HaveKeyWithValue("h-r", 9.0))
		Expect(res.EstimatedHeatCapacities).To(HaveKeyWithValue("heater", 1.0))
		Expect(res.EstimatedHeatCapacities).To(HaveKeyWithValue("room", 1.0))
		Expect(res.EstimatedHeatCapacities).To(HaveLen(4))
		Expect(res.EstimatedConductances).To(HaveLen(4))
	})

	It("ignores measurements of nodes the network does not have", func() {
		extra := append([]thermal.Measurement{{
			NodeID:       "ghost",
			Times:        []float64{0, 100},
			Temperatures: []float64{-50, 500},
		}}, measured...)

		with, err := Objective(nodes, edges, thermal.EstimationSettings{Measurements: extra})
		Expect(err).NotTo(HaveOccurred())
		without, err := Objective(nodes, edges, thermal.EstimationSettings{Measurements: measured})
		Expect(err).NotTo(HaveOccurred())
		Expect(with).To(Equal(without))
	})

	It("evaluates once when every node is fixed", func() {
		fixed := []thermal.Node{
			{ID: "a", HeatCapacity: 1, IsFixed: true, FixedTemp: 10},
			{ID: "b", HeatCapacity: 1, IsFixed: true, FixedTemp: 30},
		}
		link := []thermal.Edge{{ID: "ab", Source: "a", Target: "b", Conductance: 1}}
		res, err := Estimate(context.Background(), fixed, link, thermal.EstimationSettings{
			Measurements:  []thermal.Measurement{{NodeID: "a", Times: []float64{0, 1, 2}, Temperatures: []float64{11, 11, 11}}},
			MaxIterations: 50,
			Tolerance:     1e-6,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.ConvergenceInfo.Iterations).To(Equal(1))
		Expect(res.ConvergenceInfo.Converged).To(BeFalse())
		Expect(res.ConvergenceInfo.FinalError).To(BeNumerically("~", 1.0, 1e-12))
	})

	It("stops with the context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		rec := &cancelAfter{n: 5, cancel: cancel, calls: &calls}

		start := thermal.CloneNodes(nodes)
		start[1].HeatCapacity = 10
		_, err := Estimate(ctx, start, edges, thermal.EstimationSettings{
			Measurements:  measured,
			MaxIterations: 1000,
			Tolerance:     1e-12,
		}, WithRecorder(rec))

		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		var eerr *thermal.EstimationError
		Expect(errors.As(err, &eerr)).To(BeTrue())
		Expect(eerr.Stage).To(Equal(thermal.StageSearch))
		Expect(calls).To(BeNumerically("<", 1000))
	})
})

// cancelAfter cancels its context after n objective evaluations.
type cancelAfter struct {
	n      int
	cancel context.CancelFunc
	calls  *int
}

func (c *cancelAfter) ObserveSimulation(int, time.Duration, error) {}
func (c *cancelAfter) ObserveEstimation(thermal.ConvergenceInfo, time.Duration) {}
func (c *cancelAfter) ObserveEvaluation(f float64) {
	*c.calls++
	if *c.calls == c.n {
		c.cancel()
	}
}
