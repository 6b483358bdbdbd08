package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/sim"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// ErrUnknownParameter is returned for a parameter name that is not
// "node:<id>" or "edge:<id>" of an existing node or edge.
var ErrUnknownParameter = errors.New("optim: unknown parameter")

// GridPoint is one scored combination of factors.
type GridPoint struct {
	Factors map[string]float64
	Error   float64
}

// GridResult holds every scored point and the best one.
type GridResult struct {
	Points      []GridPoint
	BestFactors map[string]float64
	BestError   float64
}

// GridSearch scales named parameters by every combination of the given
// factors and scores each resulting network against the measurements.
// Parameter names are "node:<id>" for a heat capacity and "edge:<id>" for a
// conductance.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

func (g *GridSearch) Search(
	ctx context.Context,
	nodes []thermal.Node,
	edges []thermal.Edge,
	est thermal.EstimationSettings,
	opts ...Option,
) (*GridResult, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d factor ranges", len(g.paramNames), len(g.ranges))
	}
	o := buildOptions(opts)

	p, err := newProblem(nodes, edges, est)
	if err != nil {
		return nil, err
	}
	targets := make([]target, len(g.paramNames))
	for i, name := range g.paramNames {
		if targets[i], err = resolveTarget(name, nodes, edges); err != nil {
			return nil, err
		}
	}

	var combos []map[string]float64
	g.searchRecursive(0, make(map[string]float64), &combos)

	jobs := make([]sim.Job, len(combos))
	for i, combo := range combos {
		jobNodes, jobEdges := thermal.CloneNodes(nodes), thermal.CloneEdges(edges)
		for k, t := range targets {
			t.scale(jobNodes, jobEdges, combo[g.paramNames[k]])
		}
		jobs[i] = sim.Job{Nodes: jobNodes, Edges: jobEdges, Settings: p.settings}
	}

	results, errs := sim.NewBatch(o.workers).Run(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &GridResult{Points: make([]GridPoint, len(combos)), BestError: math.Inf(1)}
	for i, combo := range combos {
		score := math.Inf(1)
		if errs[i] == nil {
			score = p.score(results[i])
		} else {
			o.log.Debugw("grid point rejected", "factors", combo, "error", errs[i])
		}
		o.recorder.ObserveEvaluation(score)

		out.Points[i] = GridPoint{Factors: combo, Error: score}
		if score < out.BestError {
			out.BestError = score
			out.BestFactors = combo
		}
	}
	return out, nil
}

func (g *GridSearch) searchRecursive(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.searchRecursive(depth+1, newParams, out)
	}
}

// SweepPoint is the objective with one parameter scaled by Factor.
type SweepPoint struct {
	Factor float64 `json:"factor"`
	Value  float64 `json:"value"`
	Error  float64 `json:"error"`
}

// SweepResult is the error landscape along one parameter.
type SweepResult struct {
	Param      string       `json:"param"`
	Points     []SweepPoint `json:"points"`
	BestFactor float64      `json:"bestFactor"`
	BestError  float64      `json:"bestError"`
}

// Sweep scores the network with one parameter scaled by each factor in turn.
func Sweep(
	ctx context.Context,
	nodes []thermal.Node,
	edges []thermal.Edge,
	est thermal.EstimationSettings,
	param string,
	factors []float64,
	opts ...Option,
) (*SweepResult, error) {
	t, err := resolveTarget(param, nodes, edges)
	if err != nil {
		return nil, err
	}
	grid, err := NewGridSearch([]string{param}, [][]float64{factors}).Search(ctx, nodes, edges, est, opts...)
	if err != nil {
		return nil, err
	}

	base := t.value(nodes, edges)
	out := &SweepResult{Param: param, Points: make([]SweepPoint, len(grid.Points)), BestError: grid.BestError}
	for i, pt := range grid.Points {
		f := pt.Factors[param]
		out.Points[i] = SweepPoint{Factor: f, Value: base * f, Error: pt.Error}
	}
	if grid.BestFactors != nil {
		out.BestFactor = grid.BestFactors[param]
	}
	return out, nil
}

// target is a resolved parameter name.
type target struct {
	kind  paramKind
	index int
}

func resolveTarget(name string, nodes []thermal.Node, edges []thermal.Edge) (target, error) {
	kind, id, ok := strings.Cut(name, ":")
	if ok {
		switch kind {
		case "node":
			for i, n := range nodes {
				if n.ID == id {
					return target{kind: capacityParam, index: i}, nil
				}
			}
		case "edge":
			for i, e := range edges {
				if e.ID == id {
					return target{kind: conductanceParam, index: i}, nil
				}
			}
		}
	}
	return target{}, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
}

func (t target) value(nodes []thermal.Node, edges []thermal.Edge) float64 {
	if t.kind == capacityParam {
		return nodes[t.index].HeatCapacity
	}
	return edges[t.index].Conductance
}

func (t target) scale(nodes []thermal.Node, edges []thermal.Edge, factor float64) {
	if t.kind == capacityParam {
		nodes[t.index].HeatCapacity *= factor
		return
	}
	edges[t.index].Conductance *= factor
}
