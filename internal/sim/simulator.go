package sim

import (
	"context"
	"math"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/integrators"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// maxPrealloc caps the samples reserved up front; longer runs grow by append.
const maxPrealloc = 1 << 16

// Simulator advances a thermal network in time. A Simulator keeps scratch
// buffers and must not be shared between goroutines.
type Simulator struct {
	integrator Integrator
	metrics    []Metric
	observers  []Observer
}

func New(integrator Integrator) *Simulator {
	return &Simulator{
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Simulate runs a fresh explicit Euler solve with no observers.
func Simulate(nodes []thermal.Node, edges []thermal.Edge, settings thermal.Settings) (*thermal.Result, error) {
	return New(integrators.NewEuler()).Run(context.Background(), nodes, edges, settings)
}

// Run validates the inputs and integrates from t=0 to settings.TotalTime.
// Steps are settings.TimeStep long except the last, which is shortened so the
// run ends exactly on TotalTime. Fixed nodes are held at their reservoir
// temperature throughout.
func (s *Simulator) Run(ctx context.Context, nodes []thermal.Node, edges []thermal.Edge, settings thermal.Settings) (*thermal.Result, error) {
	net, err := thermal.Compile(nodes, edges, settings)
	if err != nil {
		return nil, err
	}

	samples := min(settings.Steps()+1, maxPrealloc)
	result := &thermal.Result{
		Times:  make([]float64, 0, samples),
		Series: make([]thermal.Series, net.Len()),
	}
	for i, id := range net.IDs {
		result.Series[i] = thermal.Series{NodeID: id, Temperatures: make([]float64, 0, samples)}
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := State(net.Start).Clone()
	elapsed := 0.0
	s.commit(net, result, x, 0)

	for elapsed < settings.TotalTime-thermal.LandingTolerance {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		h := math.Min(settings.TimeStep, settings.TotalTime-elapsed)
		s.integrator.Step(net, x, x, h)
		net.Clamp(x)
		elapsed += h

		s.commit(net, result, x, round6(elapsed))
	}

	if len(s.metrics) > 0 {
		result.Metrics = make(map[string]float64, len(s.metrics))
		for _, m := range s.metrics {
			result.Metrics[m.Name()] = m.Value()
		}
	}

	return result, nil
}

func (s *Simulator) commit(net *thermal.Network, result *thermal.Result, x State, t float64) {
	result.Times = append(result.Times, t)
	for i, v := range x {
		result.Series[i].Temperatures = append(result.Series[i].Temperatures, v)
	}
	for _, m := range s.metrics {
		m.Observe(net, x, t)
	}
	for _, o := range s.observers {
		o.OnStep(x, t)
	}
}

// StableTimeStep returns the largest time step for which explicit Euler does
// not overshoot on this network: the minimum over free nodes of C / sum(G).
// It is +Inf when no free node conducts.
func StableTimeStep(nodes []thermal.Node, edges []thermal.Edge) (float64, error) {
	net, err := thermal.CompileNetwork(nodes, edges)
	if err != nil {
		return 0, err
	}
	return net.StableStep(), nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
