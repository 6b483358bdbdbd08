package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/integrators"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/sim"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// trace is a measurement bound to a node of the network.
type trace struct {
	node  int
	id    string
	times []float64
	temps []float64
}

// problem is a network plus the measurements it is scored against. The node
// and edge slices are private copies; evaluate overwrites their parameters.
type problem struct {
	nodes    []thermal.Node
	edges    []thermal.Edge
	settings thermal.Settings
	traces   []trace
	skipped  []string
}

// newProblem validates the network and measurements and derives the solver
// settings from the measurement span and resolution.
func newProblem(nodes []thermal.Node, edges []thermal.Edge, est thermal.EstimationSettings) (*problem, error) {
	if err := thermal.ValidateNetwork(nodes, edges); err != nil {
		return nil, err
	}
	if !isFinite(est.TimeStep) || est.TimeStep < 0 {
		return nil, &thermal.EstimationError{
			Stage:   thermal.StageSettings,
			Wrapped: fmt.Errorf("%w: time step %v", thermal.ErrInvalidEstimationSettings, est.TimeStep),
		}
	}
	if len(est.Measurements) == 0 {
		return nil, &thermal.EstimationError{Stage: thermal.StageMeasurements, Wrapped: thermal.ErrNoMeasurements}
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}

	p := &problem{
		nodes: thermal.CloneNodes(nodes),
		edges: thermal.CloneEdges(edges),
	}
	for i, m := range est.Measurements {
		if err := checkMeasurement(m); err != nil {
			return nil, &thermal.EstimationError{
				Stage:   thermal.StageMeasurements,
				Wrapped: fmt.Errorf("%w: trace %d (node %q): %s", thermal.ErrInvalidMeasurement, i, m.NodeID, err),
			}
		}
		node, ok := index[m.NodeID]
		if !ok {
			p.skipped = append(p.skipped, m.NodeID)
			continue
		}
		p.traces = append(p.traces, trace{
			node:  node,
			id:    m.NodeID,
			times: append([]float64(nil), m.Times...),
			temps: append([]float64(nil), m.Temperatures...),
		})
	}
	if len(p.traces) == 0 {
		return nil, &thermal.EstimationError{
			Stage:   thermal.StageMeasurements,
			Wrapped: fmt.Errorf("%w: no trace names a node of the network", thermal.ErrNoMeasurements),
		}
	}

	settings, err := p.deriveSettings(est.TimeStep)
	if err != nil {
		return nil, err
	}
	p.settings = settings
	return p, nil
}

func checkMeasurement(m thermal.Measurement) error {
	if len(m.Times) == 0 {
		return errors.New("no samples")
	}
	if len(m.Times) != len(m.Temperatures) {
		return fmt.Errorf("%d times but %d temperatures", len(m.Times), len(m.Temperatures))
	}
	for k := range m.Times {
		if !isFinite(m.Times[k]) || m.Times[k] < 0 {
			return fmt.Errorf("sample %d: time %v", k, m.Times[k])
		}
		if !isFinite(m.Temperatures[k]) {
			return fmt.Errorf("sample %d: temperature %v", k, m.Temperatures[k])
		}
	}
	return nil
}

// maxEvaluationSteps bounds the solver steps of one objective evaluation.
const maxEvaluationSteps = 1_000_000

// deriveSettings spans [0, latest sample]. Without an explicit step the
// solver runs at the finest spacing found between distinct sample times,
// floored so one evaluation takes at most maxEvaluationSteps steps. An
// explicit step that needs more steps than that is rejected.
func (p *problem) deriveSettings(timeStep float64) (thermal.Settings, error) {
	var all []float64
	for _, tr := range p.traces {
		all = append(all, tr.times...)
	}
	all = dedupSorted(all)

	total := all[len(all)-1]
	if total <= 0 {
		return thermal.Settings{}, &thermal.EstimationError{
			Stage:   thermal.StageMeasurements,
			Wrapped: fmt.Errorf("%w: measurements span no time", thermal.ErrNoMeasurements),
		}
	}

	floor := total / maxEvaluationSteps
	if timeStep > 0 {
		if timeStep < floor {
			return thermal.Settings{}, &thermal.EstimationError{
				Stage: thermal.StageSettings,
				Wrapped: fmt.Errorf("%w: time step %v needs more than %d steps over %v s",
					thermal.ErrInvalidEstimationSettings, timeStep, maxEvaluationSteps, total),
			}
		}
	} else {
		timeStep = total
		for i := 1; i < len(all); i++ {
			timeStep = math.Min(timeStep, all[i]-all[i-1])
		}
		timeStep = math.Max(timeStep, floor)
	}
	return thermal.Settings{TimeStep: math.Min(timeStep, total), TotalTime: total}, nil
}

// evaluate scores the parameter vector x. Any solver failure or non-finite
// value scores +Inf. A candidate whose temperatures stop being finite is
// abandoned at that step rather than run to the end.
func (p *problem) evaluate(ctx context.Context, ps *paramSpace, x []float64) float64 {
	ps.apply(x, p.nodes, p.edges)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := sim.New(integrators.NewEuler())
	s.AddObserver(sim.ObserverFunc(func(state sim.State, _ float64) {
		if !state.IsValid() {
			cancel()
		}
	}))
	result, err := s.Run(ctx, p.nodes, p.edges, p.settings)
	if err != nil {
		return math.Inf(1)
	}
	return p.score(result)
}

// score sums, over traces, the mean squared difference between each
// measurement and the simulated series interpolated at its time.
func (p *problem) score(result *thermal.Result) float64 {
	xs, keep := strictlyIncreasing(result.Times)

	total := 0.0
	for _, tr := range p.traces {
		series := result.Series[tr.node].Temperatures
		ys := make([]float64, len(keep))
		for j, k := range keep {
			ys[j] = series[k]
		}

		var predict func(float64) float64
		if len(xs) < 2 {
			predict = func(float64) float64 { return ys[0] }
		} else {
			var pl interp.PiecewiseLinear
			if err := pl.Fit(xs, ys); err != nil {
				return math.Inf(1)
			}
			predict = pl.Predict
		}

		residuals := make([]float64, len(tr.times))
		for k, t := range tr.times {
			residuals[k] = predict(t) - tr.temps[k]
		}
		total += floats.Dot(residuals, residuals) / float64(len(residuals))
	}

	if !isFinite(total) {
		return math.Inf(1)
	}
	return total
}

// Objective returns the error of the network as given against the
// measurements in est, using the same scoring as Estimate.
func Objective(nodes []thermal.Node, edges []thermal.Edge, est thermal.EstimationSettings) (float64, error) {
	p, err := newProblem(nodes, edges, est)
	if err != nil {
		return 0, err
	}
	result, err := sim.Simulate(p.nodes, p.edges, p.settings)
	if err != nil {
		return 0, &thermal.EstimationError{Stage: thermal.StageInitial, Wrapped: err}
	}
	return p.score(result), nil
}

// strictlyIncreasing drops samples whose rounded time does not advance and
// returns the kept times and their indices.
func strictlyIncreasing(times []float64) ([]float64, []int) {
	xs := make([]float64, 0, len(times))
	keep := make([]int, 0, len(times))
	for i, t := range times {
		if len(xs) > 0 && t <= xs[len(xs)-1] {
			continue
		}
		xs = append(xs, t)
		keep = append(keep, i)
	}
	return xs, keep
}

func dedupSorted(v []float64) []float64 {
	sort.Float64s(v)
	out := v[:0]
	for i, x := range v {
		if i == 0 || x != out[len(out)-1] {
			out = append(out, x)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
