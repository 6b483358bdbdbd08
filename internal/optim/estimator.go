package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/sim"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// Estimate fits the heat capacities and conductances of a network to
// measured temperature traces by Nelder-Mead search over log-parameters.
//
// Traces naming a node absent from the network are ignored. The search stops
// the first time the objective drops to settings.Tolerance or after
// settings.MaxIterations forward evaluations; the best parameters seen are
// returned either way. A network that fails validation is reported with the
// solver's own error; every other failure that prevents the search is a
// *thermal.EstimationError. Inputs are never modified.
func Estimate(ctx context.Context, nodes []thermal.Node, edges []thermal.Edge, settings thermal.EstimationSettings, opts ...Option) (*thermal.EstimationResult, error) {
	o := buildOptions(opts)
	start := time.Now()

	if settings.MaxIterations <= 0 {
		return nil, &thermal.EstimationError{
			Stage:   thermal.StageSettings,
			Wrapped: fmt.Errorf("%w: max iterations %d", thermal.ErrInvalidEstimationSettings, settings.MaxIterations),
		}
	}
	if !isFinite(settings.Tolerance) || settings.Tolerance <= 0 {
		return nil, &thermal.EstimationError{
			Stage:   thermal.StageSettings,
			Wrapped: fmt.Errorf("%w: tolerance %v", thermal.ErrInvalidEstimationSettings, settings.Tolerance),
		}
	}

	p, err := newProblem(nodes, edges, settings)
	if err != nil {
		return nil, err
	}
	for _, id := range p.skipped {
		o.log.Debugw("ignoring measurement for unknown node", "node", id)
	}

	ps := newParamSpace(nodes, edges)
	x0 := ps.pack(nodes, edges)

	o.log.Infow("estimation started",
		"parameters", ps.Len(),
		"traces", len(p.traces),
		"time_step", p.settings.TimeStep,
		"total_time", p.settings.TotalTime,
	)

	s := &search{ctx: ctx, problem: p, space: ps, opts: o, best: math.Inf(1)}

	if err := ctx.Err(); err != nil {
		return nil, &thermal.EstimationError{Stage: thermal.StageInitial, Wrapped: err}
	}
	f0, err := s.first(x0)
	if err != nil {
		return nil, &thermal.EstimationError{Stage: thermal.StageInitial, Wrapped: err}
	}

	remaining := settings.MaxIterations - 1
	if ps.Len() > 0 && remaining > 0 && f0 > settings.Tolerance {
		if err := s.run(ctx, x0, f0, remaining, settings.Tolerance); err != nil {
			return nil, &thermal.EstimationError{Stage: thermal.StageSearch, Wrapped: err}
		}
	}

	result := s.result(nodes, edges, settings.Tolerance)
	o.recorder.ObserveEstimation(result.ConvergenceInfo, time.Since(start))
	o.log.Infow("estimation finished",
		"iterations", result.ConvergenceInfo.Iterations,
		"converged", result.ConvergenceInfo.Converged,
		"final_error", result.ConvergenceInfo.FinalError,
		"elapsed", time.Since(start),
	)
	return result, nil
}

var errNonFiniteStart = errors.New("objective is not finite at the starting parameters")

// search tracks the best candidate across every objective evaluation.
type search struct {
	ctx     context.Context
	problem *problem
	space   *paramSpace
	opts    options

	evals int
	best  float64
	bestX []float64
}

func (s *search) eval(x []float64) float64 {
	f := s.problem.evaluate(s.ctx, s.space, x)
	s.evals++
	s.opts.recorder.ObserveEvaluation(f)

	if math.IsInf(f, 1) {
		s.opts.log.Debugw("candidate rejected", "evaluation", s.evals)
		return f
	}
	if f < s.best {
		s.best = f
		s.bestX = append(s.bestX[:0], x...)
	}
	return f
}

// first evaluates the caller's starting parameters. Unlike later candidates
// a failure here is fatal.
func (s *search) first(x0 []float64) (float64, error) {
	s.space.apply(x0, s.problem.nodes, s.problem.edges)
	result, err := sim.Simulate(s.problem.nodes, s.problem.edges, s.problem.settings)
	s.evals++
	if err != nil {
		return 0, err
	}
	f := s.problem.score(result)
	s.opts.recorder.ObserveEvaluation(f)
	if math.IsInf(f, 1) {
		return 0, errNonFiniteStart
	}
	s.best = f
	s.bestX = append([]float64(nil), x0...)
	return f, nil
}

func (s *search) run(ctx context.Context, x0 []float64, f0 float64, budget int, tol float64) error {
	problem := optimize.Problem{
		Func: s.eval,
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	cfg := &optimize.Settings{
		InitValues:      &optimize.Location{F: f0},
		FuncEvaluations: budget,
		Converger:       thresholdConverger{tol: tol},
	}
	method := &optimize.NelderMead{SimplexSize: s.opts.simplexSize}

	res, err := optimize.Minimize(problem, x0, cfg, method)
	if err != nil {
		return err
	}
	s.opts.log.Debugw("search stopped", "status", res.Status.String(), "major_iterations", res.MajorIterations)
	return nil
}

func (s *search) result(nodes []thermal.Node, edges []thermal.Edge, tol float64) *thermal.EstimationResult {
	fitNodes, fitEdges := thermal.CloneNodes(nodes), thermal.CloneEdges(edges)
	s.space.apply(s.bestX, fitNodes, fitEdges)

	out := &thermal.EstimationResult{
		EstimatedHeatCapacities: make(map[string]float64, len(nodes)),
		EstimatedConductances:   make(map[string]float64, len(edges)),
		ConvergenceInfo: thermal.ConvergenceInfo{
			Iterations: s.evals,
			Converged:  s.best <= tol,
			FinalError: s.best,
		},
	}
	for _, n := range fitNodes {
		out.EstimatedHeatCapacities[n.ID] = n.HeatCapacity
	}
	for _, e := range fitEdges {
		out.EstimatedConductances[e.ID] = e.Conductance
	}
	return out
}

// thresholdConverger stops the search once the best value reaches tol.
type thresholdConverger struct {
	tol float64
}

func (thresholdConverger) Init(dim int) {}

func (c thresholdConverger) Converged(loc *optimize.Location) optimize.Status {
	if loc.F <= c.tol {
		return optimize.FunctionThreshold
	}
	return optimize.NotTerminated
}
