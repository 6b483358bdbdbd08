package observability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

// Recorder receives run statistics from the solver front end and the
// estimator. Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveSimulation(steps int, elapsed time.Duration, err error)
	ObserveEvaluation(objective float64)
	ObserveEstimation(info thermal.ConvergenceInfo, elapsed time.Duration)
}

// Nop returns a Recorder that discards everything.
func Nop() Recorder { return nopRecorder{} }

type nopRecorder struct{}

func (nopRecorder) ObserveSimulation(int, time.Duration, error) {}
func (nopRecorder) ObserveEvaluation(float64) {}
func (nopRecorder) ObserveEstimation(thermal.ConvergenceInfo, time.Duration) {}

// Collector bundles the Prometheus metrics of one thermsim process.
type Collector struct {
	gatherer prometheus.Gatherer

	Simulations         *prometheus.CounterVec
	SimulationSteps     prometheus.Counter
	SimulationDurations prometheus.Histogram

	Evaluations *prometheus.CounterVec

	Estimations          *prometheus.CounterVec
	EstimationIterations prometheus.Histogram
	EstimationError      prometheus.Gauge
}

// NewCollector registers thermsim metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	sims, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "thermsim_simulations_total",
		Help: "Forward solves, labeled by outcome (ok, invalid, cancelled, error).",
	}, []string{"outcome"}), "thermsim_simulations_total")
	if err != nil {
		return nil, err
	}
	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "thermsim_simulation_steps_total",
		Help: "Integration steps taken by successful forward solves.",
	}), "thermsim_simulation_steps_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "thermsim_simulation_duration_seconds",
		Help:    "Wall time of forward solves.",
		Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
	}), "thermsim_simulation_duration_seconds")
	if err != nil {
		return nil, err
	}
	evals, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "thermsim_objective_evaluations_total",
		Help: "Objective evaluations during estimation, labeled by whether the candidate was rejected.",
	}, []string{"rejected"}), "thermsim_objective_evaluations_total")
	if err != nil {
		return nil, err
	}
	estimations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "thermsim_estimations_total",
		Help: "Completed estimation runs, labeled by convergence.",
	}, []string{"converged"}), "thermsim_estimations_total")
	if err != nil {
		return nil, err
	}
	iterations, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "thermsim_estimation_iterations",
		Help:    "Forward evaluations spent per estimation run.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	}), "thermsim_estimation_iterations")
	if err != nil {
		return nil, err
	}
	finalErr, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "thermsim_estimation_final_error",
		Help: "Objective value of the most recent estimation run.",
	}), "thermsim_estimation_final_error")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:             gatherer,
		Simulations:          sims,
		SimulationSteps:      steps,
		SimulationDurations:  durations,
		Evaluations:          evals,
		Estimations:          estimations,
		EstimationIterations: iterations,
		EstimationError:      finalErr,
	}, nil
}

func (c *Collector) ObserveSimulation(steps int, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	c.Simulations.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return
	}
	c.SimulationSteps.Add(float64(steps))
	c.SimulationDurations.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveEvaluation(objective float64) {
	if c == nil {
		return
	}
	rejected := math.IsInf(objective, 0) || math.IsNaN(objective)
	c.Evaluations.WithLabelValues(strconv.FormatBool(rejected)).Inc()
}

func (c *Collector) ObserveEstimation(info thermal.ConvergenceInfo, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Estimations.WithLabelValues(strconv.FormatBool(info.Converged)).Inc()
	c.EstimationIterations.Observe(float64(info.Iterations))
	c.EstimationError.Set(info.FinalError)
}

// WriteTextfile dumps every gathered metric in the text exposition format,
// for the node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func outcome(err error) string {
	var verr *thermal.ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
