package optim

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

func TestEstimate_RecoversRatioFromCleanData(t *testing.T) {
	truthNodes, truthEdges := twoNodeTruth()
	meas := observe(t, truthNodes, truthEdges, thermal.Settings{TimeStep: 1, TotalTime: 60}, "A")

	nodes, edges := withParams(truthNodes, truthEdges, 60, 4)
	res, err := Estimate(context.Background(), nodes, edges, thermal.EstimationSettings{
		Measurements:  meas,
		MaxIterations: 2000,
		Tolerance:     1e-8,
	})
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}

	info := res.ConvergenceInfo
	if !info.Converged {
		t.Fatalf("expected convergence, got %+v", info)
	}
	if info.FinalError > 1e-8 {
		t.Errorf("final error %g above tolerance", info.FinalError)
	}
	if info.Iterations < 2 || info.Iterations > 2000 {
		t.Errorf("iterations = %d", info.Iterations)
	}

	// Only G/C shapes the trace.
	ratio := res.EstimatedConductances["AB"] / res.EstimatedHeatCapacities["A"]
	if math.Abs(ratio-0.1)/0.1 > 1e-3 {
		t.Errorf("G/C = %f, want 0.1", ratio)
	}
	if res.EstimatedHeatCapacities["B"] != 1 {
		t.Errorf("fixed node capacity changed to %f", res.EstimatedHeatCapacities["B"])
	}
}

func TestEstimate_NoisyData(t *testing.T) {
	truthNodes, truthEdges := twoNodeTruth()
	meas := observe(t, truthNodes, truthEdges, thermal.Settings{TimeStep: 1, TotalTime: 60}, "A")

	rng := rand.New(rand.NewPCG(7, 7))
	for i := range meas[0].Temperatures {
		meas[0].Temperatures[i] += 0.05 * rng.NormFloat64()
	}

	nodes, edges := withParams(truthNodes, truthEdges, 40, 6)
	res, err := Estimate(context.Background(), nodes, edges, thermal.EstimationSettings{
		Measurements:  meas,
		MaxIterations: 2000,
		Tolerance:     0.005,
	})
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if !res.ConvergenceInfo.Converged {
		t.Fatalf("expected convergence, got %+v", res.ConvergenceInfo)
	}
	ratio := res.EstimatedConductances["AB"] / res.EstimatedHeatCapacities["A"]
	if math.Abs(ratio-0.1)/0.1 > 0.01 {
		t.Errorf("G/C = %f, want 0.1 within 1%%", ratio)
	}
}

func TestEstimate_StartAtTruth(t *testing.T) {
	nodes, edges := twoNodeTruth()
	meas := observe(t, nodes, edges, thermal.Settings{TimeStep: 1, TotalTime: 30}, "A")

	res, err := Estimate(context.Background(), nodes, edges, thermal.EstimationSettings{
		Measurements:  meas,
		MaxIterations: 100,
		Tolerance:     1e-9,
	})
	if err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if !res.ConvergenceInfo.Converged || res.ConvergenceInfo.Iterations != 1 {
		t.Errorf("expected convergence on the first evaluation, got %+v", res.ConvergenceInfo)
	}
}

func TestEstimate_IterationBudget(t *testing.T) {
	truthNodes, truthEdges := twoNodeTruth()
	meas := observe(t, truthNodes, truthEdges, thermal.Settings{TimeStep: 1, TotalTime: 30}, "A")
	nodes, edges := withParams(truthNodes, truthEdges, 80, 2)

	start, err := Objective(nodes, edges, thermal.EstimationSettings{Measurements: meas})
	if err != nil {
		t.Fatalf("objective: %v", err)
	}

	for _, budget := range []int{1, 2, 5} {
		res, err := Estimate(context.Background(), nodes, edges, thermal.EstimationSettings{
			Measurements:  meas,
			MaxIterations: budget,
			Tolerance:     1e-12,
		})
		if err != nil {
			t.Fatalf("budget %d: %v", budget, err)
		}
		info := res.ConvergenceInfo
		if info.Iterations > budget {
			t.Errorf("budget %d: performed %d evaluations", budget, info.Iterations)
		}
		if info.Converged {
			t.Errorf("budget %d: unexpected convergence", budget)
		}
		if info.FinalError > start {
			t.Errorf("budget %d: final error %g worse than start %g", budget, info.FinalError, start)
		}
	}
}

func TestEstimate_DoesNotMutateInputs(t *testing.T) {
	truthNodes, truthEdges := twoNodeTruth()
	meas := observe(t, truthNodes, truthEdges, thermal.Settings{TimeStep: 1, TotalTime: 20}, "A")
	nodes, edges := withParams(truthNodes, truthEdges, 70, 3)

	if _, err := Estimate(context.Background(), nodes, edges, thermal.EstimationSettings{
		Measurements:  meas,
		MaxIterations: 50,
		Tolerance:     1e-6,
	}); err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	if nodes[0].HeatCapacity != 70 || edges[0].Conductance != 3 {
		t.Errorf("inputs mutated: %+v %+v", nodes, edges)
	}
}

func TestEstimate_Errors(t *testing.T) {
	nodes, edges := twoNodeTruth()
	meas := observe(t, nodes, edges, thermal.Settings{TimeStep: 1, TotalTime: 5}, "A")

	tests := []struct {
		name     string
		nodes    []thermal.Node
		settings thermal.EstimationSettings
		want     error
		stage    string
	}{
		{"no measurements", nodes, thermal.EstimationSettings{MaxIterations: 10, Tolerance: 1e-3}, thermal.ErrNoMeasurements, thermal.StageMeasurements},
		{"only unknown nodes", nodes, thermal.EstimationSettings{
			Measurements:  []thermal.Measurement{{NodeID: "ghost", Times: []float64{0, 1}, Temperatures: []float64{1, 2}}},
			MaxIterations: 10, Tolerance: 1e-3,
		}, thermal.ErrNoMeasurements, thermal.StageMeasurements},
		{"zero span", nodes, thermal.EstimationSettings{
			Measurements:  []thermal.Measurement{{NodeID: "A", Times: []float64{0}, Temperatures: []float64{100}}},
			MaxIterations: 10, Tolerance: 1e-3,
		}, thermal.ErrNoMeasurements, thermal.StageMeasurements},
		{"ragged trace", nodes, thermal.EstimationSettings{
			Measurements:  []thermal.Measurement{{NodeID: "A", Times: []float64{0, 1}, Temperatures: []float64{100}}},
			MaxIterations: 10, Tolerance: 1e-3,
		}, thermal.ErrInvalidMeasurement, thermal.StageMeasurements},
		{"negative time", nodes, thermal.EstimationSettings{
			Measurements:  []thermal.Measurement{{NodeID: "A", Times: []float64{-1, 1}, Temperatures: []float64{100, 90}}},
			MaxIterations: 10, Tolerance: 1e-3,
		}, thermal.ErrInvalidMeasurement, thermal.StageMeasurements},
		{"zero iterations", nodes, thermal.EstimationSettings{Measurements: meas, Tolerance: 1e-3}, thermal.ErrInvalidEstimationSettings, thermal.StageSettings},
		{"NaN tolerance", nodes, thermal.EstimationSettings{Measurements: meas, MaxIterations: 10, Tolerance: math.NaN()}, thermal.ErrInvalidEstimationSettings, thermal.StageSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Estimate(context.Background(), tt.nodes, edges, tt.settings)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			var eerr *thermal.EstimationError
			if !errors.As(err, &eerr) {
				t.Fatalf("expected *thermal.EstimationError, got %T", err)
			}
			if eerr.Stage != tt.stage {
				t.Errorf("stage = %q, want %q", eerr.Stage, tt.stage)
			}
		})
	}
}

func TestEstimate_InvalidNetworkSurfacesValidationError(t *testing.T) {
	nodes, edges := twoNodeTruth()
	meas := observe(t, nodes, edges, thermal.Settings{TimeStep: 1, TotalTime: 5}, "A")
	nodes[0].HeatCapacity = 0

	_, err := Estimate(context.Background(), nodes, edges, thermal.EstimationSettings{
		Measurements: meas, MaxIterations: 10, Tolerance: 1e-3,
	})
	var verr *thermal.ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, thermal.ErrInvalidHeatCapacity) {
		t.Fatalf("expected heat capacity ValidationError, got %v", err)
	}
	var eerr *thermal.EstimationError
	if errors.As(err, &eerr) {
		t.Errorf("validation error should not be wrapped, got %v", err)
	}
}

func TestEstimate_DivergentStartIsFatal(t *testing.T) {
	nodes, edges := twoNodeTruth()
	meas := observe(t, nodes, edges, thermal.Settings{TimeStep: 1, TotalTime: 4}, "A")
	nodes, edges = withParams(nodes, edges, 1, 1e300)

	_, err := Estimate(context.Background(), nodes, edges, thermal.EstimationSettings{
		Measurements: meas, MaxIterations: 10, Tolerance: 1e-3,
	})
	var eerr *thermal.EstimationError
	if !errors.As(err, &eerr) || eerr.Stage != thermal.StageInitial {
		t.Fatalf("expected initial-stage EstimationError, got %v", err)
	}
}

func TestEstimate_Cancelled(t *testing.T) {
	nodes, edges := twoNodeTruth()
	meas := observe(t, nodes, edges, thermal.Settings{TimeStep: 1, TotalTime: 5}, "A")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Estimate(ctx, nodes, edges, thermal.EstimationSettings{
		Measurements: meas, MaxIterations: 10, Tolerance: 1e-3,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
