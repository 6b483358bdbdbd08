package export

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

const (
	KindSimulation = "simulation"
	KindEstimation = "estimation"
)

// Report is the JSON document written for a run.
type Report struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Scenario  string    `json:"scenario"`
	Timestamp time.Time `json:"timestamp"`

	Settings thermal.Settings `json:"settings"`
	Steps    int              `json:"steps"`

	Result     *thermal.Result           `json:"result,omitempty"`
	Estimation *thermal.EstimationResult `json:"estimation,omitempty"`
}

// NewSimulationReport stamps a forward solve with a fresh run id.
func NewSimulationReport(scenario string, settings thermal.Settings, result *thermal.Result) *Report {
	r := newReport(KindSimulation, scenario, settings)
	if result != nil {
		r.Result = withFiniteMetrics(result)
		if len(result.Times) > 0 {
			r.Steps = len(result.Times) - 1
		}
	}
	return r
}

// withFiniteMetrics drops metric values JSON cannot carry, such as the NaN of
// a peak over no free nodes. The input is not modified.
func withFiniteMetrics(result *thermal.Result) *thermal.Result {
	if len(result.Metrics) == 0 {
		return result
	}
	out := *result
	out.Metrics = make(map[string]float64, len(result.Metrics))
	for name, v := range result.Metrics {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out.Metrics[name] = v
		}
	}
	return &out
}

// NewEstimationReport stamps an estimation. fitted is the forward solve with
// the recovered parameters and may be nil.
func NewEstimationReport(scenario string, settings thermal.Settings, est *thermal.EstimationResult, fitted *thermal.Result) *Report {
	r := NewSimulationReport(scenario, settings, fitted)
	r.Kind = KindEstimation
	r.Estimation = est
	return r
}

func newReport(kind, scenario string, settings thermal.Settings) *Report {
	return &Report{
		ID:        uuid.NewString(),
		Kind:      kind,
		Scenario:  scenario,
		Timestamp: time.Now().UTC(),
		Settings:  settings,
	}
}

func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func SaveJSON(path string, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadJSON decodes a report written by WriteJSON.
func ReadJSON(rd io.Reader) (*Report, error) {
	var r Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
