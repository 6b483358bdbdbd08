package thermal

import (
	"math"
	"testing"
)

func TestCompile_AdjacencyIsSymmetric(t *testing.T) {
	nodes := []Node{
		{ID: "a", HeatCapacity: 1},
		{ID: "b", HeatCapacity: 2},
		{ID: "c", HeatCapacity: 3},
	}
	edges := []Edge{
		{ID: "ab", Source: "a", Target: "b", Conductance: 1},
		{ID: "ab2", Source: "b", Target: "a", Conductance: 2},
		{ID: "bc", Source: "b", Target: "c", Conductance: 4},
	}

	net, err := Compile(nodes, edges, Settings{TimeStep: 1, TotalTime: 1})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if got := len(net.Adjacency[0]); got != 2 {
		t.Errorf("a has %d neighbours, want 2", got)
	}
	if got := len(net.Adjacency[1]); got != 3 {
		t.Errorf("b has %d neighbours, want 3", got)
	}
	if got := len(net.Adjacency[2]); got != 1 {
		t.Errorf("c has %d neighbours, want 1", got)
	}

	idx, ok := net.IndexOf("c")
	if !ok || idx != 2 {
		t.Errorf("IndexOf(c) = %d, %v", idx, ok)
	}
}

func TestNetwork_Derive(t *testing.T) {
	nodes := []Node{
		{ID: "a", InitialTemp: 100, HeatCapacity: 50},
		{ID: "b", HeatCapacity: 1, IsFixed: true, FixedTemp: 20},
	}
	edges := []Edge{{ID: "ab", Source: "a", Target: "b", Conductance: 5}}
	net, err := Compile(nodes, edges, Settings{TimeStep: 1, TotalTime: 5})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	x := append([]float64(nil), net.Start...)
	dx := make([]float64, 2)
	net.Derive(x, dx)

	if math.Abs(dx[0]-(-8)) > 1e-12 {
		t.Errorf("dT_a/dt = %f, want -8", dx[0])
	}
	if dx[1] != 0 {
		t.Errorf("fixed node derivative = %f, want 0", dx[1])
	}
}

func TestNetwork_StableStep(t *testing.T) {
	nodes := []Node{
		{ID: "a", HeatCapacity: 10},
		{ID: "b", HeatCapacity: 4},
		{ID: "c", HeatCapacity: 1, IsFixed: true},
	}
	edges := []Edge{
		{ID: "ab", Source: "a", Target: "b", Conductance: 2},
		{ID: "bc", Source: "b", Target: "c", Conductance: 2},
	}
	net, err := Compile(nodes, edges, Settings{TimeStep: 1, TotalTime: 1})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if got := net.StableStep(); got != 1 {
		t.Errorf("StableStep = %f, want 1", got)
	}

	isolated, err := CompileNetwork([]Node{{ID: "x", HeatCapacity: 1}}, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !math.IsInf(isolated.StableStep(), 1) {
		t.Error("isolated node should have no step bound")
	}
}

func TestSettings_Steps(t *testing.T) {
	tests := []struct {
		s    Settings
		want int
	}{
		{Settings{TimeStep: 1, TotalTime: 5}, 5},
		{Settings{TimeStep: 7, TotalTime: 20}, 3},
		{Settings{TimeStep: 0.1, TotalTime: 1}, 10},
		{Settings{TimeStep: 1e-300, TotalTime: 1e300}, math.MaxInt32},
	}
	for _, tt := range tests {
		if got := tt.s.Steps(); got != tt.want {
			t.Errorf("Steps(%+v) = %d, want %d", tt.s, got, tt.want)
		}
	}
}

func TestEstimationResult_ApplyCopies(t *testing.T) {
	nodes := []Node{{ID: "a", HeatCapacity: 1}}
	edges := []Edge{{ID: "e", Source: "a", Target: "a", Conductance: 1}}
	r := &EstimationResult{
		EstimatedHeatCapacities: map[string]float64{"a": 7},
		EstimatedConductances:   map[string]float64{"e": 3},
	}

	gotNodes, gotEdges := r.Apply(nodes, edges)
	if gotNodes[0].HeatCapacity != 7 || gotEdges[0].Conductance != 3 {
		t.Errorf("Apply did not set parameters: %+v %+v", gotNodes, gotEdges)
	}
	if nodes[0].HeatCapacity != 1 || edges[0].Conductance != 1 {
		t.Error("Apply mutated its inputs")
	}
}
