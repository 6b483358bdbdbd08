package thermal

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func validNodes() []Node {
	return []Node{
		{ID: "a", Name: "Core", InitialTemp: 100, HeatCapacity: 50},
		{ID: "b", Name: "Ambient", HeatCapacity: 1, IsFixed: true, FixedTemp: 20},
	}
}

func validEdges() []Edge {
	return []Edge{{ID: "ab", Source: "a", Target: "b", Conductance: 5}}
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validNodes(), validEdges(), Settings{TimeStep: 1, TotalTime: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Violations(t *testing.T) {
	good := Settings{TimeStep: 1, TotalTime: 5}

	tests := []struct {
		name     string
		nodes    func() []Node
		edges    func() []Edge
		settings Settings
		want     error
		entity   Entity
		index    int
	}{
		{"no nodes", func() []Node { return nil }, validEdges, good, ErrNoNodes, EntityNetwork, -1},
		{"zero step", validNodes, validEdges, Settings{TimeStep: 0, TotalTime: 5}, ErrInvalidTimeStep, EntitySettings, -1},
		{"NaN step", validNodes, validEdges, Settings{TimeStep: math.NaN(), TotalTime: 5}, ErrInvalidTimeStep, EntitySettings, -1},
		{"negative total", validNodes, validEdges, Settings{TimeStep: 1, TotalTime: -5}, ErrInvalidTotalTime, EntitySettings, -1},
		{"infinite total", validNodes, validEdges, Settings{TimeStep: 1, TotalTime: math.Inf(1)}, ErrInvalidTotalTime, EntitySettings, -1},
		{"total before step", validNodes, validEdges, Settings{TimeStep: 2, TotalTime: 1}, ErrTotalTimeBeforeStep, EntitySettings, -1},
		{"zero capacity", func() []Node {
			n := validNodes()
			n[1].HeatCapacity = 0
			return n
		}, validEdges, good, ErrInvalidHeatCapacity, EntityNode, 1},
		{"NaN initial temp", func() []Node {
			n := validNodes()
			n[0].InitialTemp = math.NaN()
			return n
		}, validEdges, good, ErrInvalidInitialTemp, EntityNode, 0},
		{"infinite fixed temp", func() []Node {
			n := validNodes()
			n[1].FixedTemp = math.Inf(-1)
			return n
		}, validEdges, good, ErrInvalidFixedTemp, EntityNode, 1},
		{"negative conductance", validNodes, func() []Edge {
			e := validEdges()
			e[0].Conductance = -1
			return e
		}, good, ErrInvalidConductance, EntityEdge, 0},
		{"dangling target", validNodes, func() []Edge {
			return append(validEdges(), Edge{ID: "ax", Source: "a", Target: "x", Conductance: 1})
		}, good, ErrDanglingEdge, EntityEdge, 1},
		{"duplicate id", func() []Node {
			return append(validNodes(), Node{ID: "a", HeatCapacity: 1})
		}, validEdges, good, ErrDuplicateNode, EntityNode, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.nodes(), tt.edges(), tt.settings)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Entity != tt.entity {
				t.Errorf("entity = %s, want %s", verr.Entity, tt.entity)
			}
			if verr.Index != tt.index {
				t.Errorf("index = %d, want %d", verr.Index, tt.index)
			}
		})
	}
}

func TestValidate_FirstViolationWins(t *testing.T) {
	err := Validate(nil, nil, Settings{TimeStep: -1, TotalTime: -1})
	if !errors.Is(err, ErrNoNodes) {
		t.Fatalf("expected no-nodes error, got %v", err)
	}

	nodes := validNodes()
	nodes[0].HeatCapacity = -1
	edges := []Edge{{ID: "bad", Source: "a", Target: "nowhere", Conductance: -3}}
	err = Validate(nodes, edges, Settings{TimeStep: 1, TotalTime: 0.5})
	if !errors.Is(err, ErrTotalTimeBeforeStep) {
		t.Fatalf("expected settings error before node errors, got %v", err)
	}

	err = Validate(nodes, edges, Settings{TimeStep: 1, TotalTime: 5})
	if !errors.Is(err, ErrInvalidHeatCapacity) {
		t.Fatalf("expected node error before edge errors, got %v", err)
	}

	nodes[0].HeatCapacity = 1
	err = Validate(nodes, edges, Settings{TimeStep: 1, TotalTime: 5})
	if !errors.Is(err, ErrInvalidConductance) {
		t.Fatalf("expected conductance error before reference errors, got %v", err)
	}
}

func TestValidationError_MessageNamesEntity(t *testing.T) {
	nodes := validNodes()
	nodes[0].HeatCapacity = 0
	err := Validate(nodes, validEdges(), Settings{TimeStep: 1, TotalTime: 5})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"Core", "heat_capacity", "index 0"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q does not mention %q", msg, want)
		}
	}

	edges := []Edge{{Source: "a", Target: "zzz", Conductance: 1}}
	err = Validate(validNodes(), edges, Settings{TimeStep: 1, TotalTime: 5})
	if !strings.Contains(err.Error(), "#0") || !strings.Contains(err.Error(), "zzz") {
		t.Errorf("anonymous edge message = %q", err.Error())
	}
}

func TestValidateNetwork_SkipsSettings(t *testing.T) {
	if err := ValidateNetwork(validNodes(), validEdges()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateNetwork(nil, nil); !errors.Is(err, ErrNoNodes) {
		t.Fatalf("expected ErrNoNodes, got %v", err)
	}
}
