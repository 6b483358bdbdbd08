package config

import (
	"fmt"
	"sort"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

var Presets = map[string]*Config{
	"two-node": {
		Name: "two-node",
		Nodes: []thermal.Node{
			{ID: "A", Name: "Block", InitialTemp: 100, HeatCapacity: 50},
			{ID: "B", Name: "Ambient", HeatCapacity: 1, IsFixed: true, FixedTemp: 20},
		},
		Edges: []thermal.Edge{
			{ID: "AB", Source: "A", Target: "B", Conductance: 5},
		},
		Settings:   thermal.Settings{TimeStep: 1, TotalTime: 60},
		Estimation: EstimationConfig{MaxIterations: DefaultMaxIterations, Tolerance: DefaultTolerance},
		Synth:      SynthConfig{Every: 2, Sigma: 0.1, Seed: 1},
	},
	"wall": {
		Name: "wall",
		Nodes: []thermal.Node{
			{ID: "in", Name: "Indoor air", HeatCapacity: 1, IsFixed: true, FixedTemp: 21},
			{ID: "plaster", Name: "Plaster", InitialTemp: 15, HeatCapacity: 2.0e4},
			{ID: "brick", Name: "Brick", InitialTemp: 10, HeatCapacity: 1.5e5},
			{ID: "render", Name: "Render", InitialTemp: 5, HeatCapacity: 3.0e4},
			{ID: "out", Name: "Outdoor air", HeatCapacity: 1, IsFixed: true, FixedTemp: -5},
		},
		Edges: []thermal.Edge{
			{ID: "in-plaster", Source: "in", Target: "plaster", Conductance: 80},
			{ID: "plaster-brick", Source: "plaster", Target: "brick", Conductance: 120},
			{ID: "brick-render", Source: "brick", Target: "render", Conductance: 90},
			{ID: "render-out", Source: "render", Target: "out", Conductance: 250},
		},
		Settings:   thermal.Settings{TimeStep: 30, TotalTime: 6 * 3600},
		Estimation: EstimationConfig{MaxIterations: 4000, Tolerance: 1e-4},
		Synth:      SynthConfig{Every: 20, Sigma: 0.05, Seed: 1},
	},
	"rod": {
		Name:       "rod",
		Nodes:      rodNodes(6),
		Edges:      rodEdges(6, 0.4),
		Settings:   thermal.Settings{TimeStep: 0.5, TotalTime: 120},
		Estimation: EstimationConfig{MaxIterations: 5000, Tolerance: 1e-4},
		Synth:      SynthConfig{Every: 4, Sigma: 0.05, Seed: 1},
	},
}

// rodNodes is a heater held at 150 °C followed by n-1 segments at 20 °C.
func rodNodes(n int) []thermal.Node {
	nodes := []thermal.Node{{ID: "s0", Name: "Heater", HeatCapacity: 1, IsFixed: true, FixedTemp: 150}}
	for i := 1; i < n; i++ {
		nodes = append(nodes, thermal.Node{
			ID:           fmt.Sprintf("s%d", i),
			Name:         fmt.Sprintf("Segment %d", i),
			InitialTemp:  20,
			HeatCapacity: 2,
		})
	}
	return nodes
}

func rodEdges(n int, g float64) []thermal.Edge {
	edges := make([]thermal.Edge, 0, n-1)
	for i := 1; i < n; i++ {
		edges = append(edges, thermal.Edge{
			ID:          fmt.Sprintf("s%d-s%d", i-1, i),
			Source:      fmt.Sprintf("s%d", i-1),
			Target:      fmt.Sprintf("s%d", i),
			Conductance: g,
		})
	}
	return edges
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.clone()
}

// ListPresets returns preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
