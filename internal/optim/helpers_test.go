package optim

import (
	"github.com/jedipuppy/inspire-thermal-simulation/internal/sim"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// twoNodeTruth is a 50 J/K block at 100 °C cooling into a 20 °C reservoir
// through 5 W/K.
func twoNodeTruth() ([]thermal.Node, []thermal.Edge) {
	nodes := []thermal.Node{
		{ID: "A", InitialTemp: 100, HeatCapacity: 50},
		{ID: "B", HeatCapacity: 1, IsFixed: true, FixedTemp: 20},
	}
	edges := []thermal.Edge{{ID: "AB", Source: "A", Target: "B", Conductance: 5}}
	return nodes, edges
}

// fataler is the part of testing.TB that GinkgoT also provides.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// observe returns noise-free traces of the given nodes.
func observe(tb fataler, nodes []thermal.Node, edges []thermal.Edge, settings thermal.Settings, ids ...string) []thermal.Measurement {
	tb.Helper()
	result, err := sim.Simulate(nodes, edges, settings)
	if err != nil {
		tb.Fatalf("simulate: %v", err)
	}
	out := make([]thermal.Measurement, 0, len(ids))
	for _, id := range ids {
		temps, ok := result.SeriesFor(id)
		if !ok {
			tb.Fatalf("no series for %q", id)
		}
		out = append(out, thermal.Measurement{
			NodeID:       id,
			Times:        append([]float64(nil), result.Times...),
			Temperatures: append([]float64(nil), temps...),
		})
	}
	return out
}

func withParams(nodes []thermal.Node, edges []thermal.Edge, capA, g float64) ([]thermal.Node, []thermal.Edge) {
	n, e := thermal.CloneNodes(nodes), thermal.CloneEdges(edges)
	n[0].HeatCapacity = capA
	e[0].Conductance = g
	return n, e
}
