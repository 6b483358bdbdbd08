// Package storage keeps finished runs on disk, one directory per run holding
// metadata.json and temperatures.csv.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/export"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

const (
	metadataFile = "metadata.json"
	resultFile   = "temperatures.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string                    `json:"id"`
	Kind       string                    `json:"kind"`
	Scenario   string                    `json:"scenario"`
	Timestamp  time.Time                 `json:"timestamp"`
	Settings   thermal.Settings          `json:"settings"`
	Steps      int                       `json:"steps"`
	Metrics    map[string]float64        `json:"metrics,omitempty"`
	Estimation *thermal.EstimationResult `json:"estimation,omitempty"`
}

// Save stores a forward solve and returns its run id.
func (s *Store) Save(scenario string, settings thermal.Settings, result *thermal.Result) (string, error) {
	return s.save(export.NewSimulationReport(scenario, settings, result))
}

// SaveEstimation stores an estimation together with the solve of the fitted
// network.
func (s *Store) SaveEstimation(scenario string, settings thermal.Settings, est *thermal.EstimationResult, fitted *thermal.Result) (string, error) {
	return s.save(export.NewEstimationReport(scenario, settings, est, fitted))
}

func (s *Store) save(rep *export.Report) (string, error) {
	if rep.Result == nil {
		return "", errors.New("storage: run has no result")
	}
	runDir := filepath.Join(s.baseDir, rep.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         rep.ID,
		Kind:       rep.Kind,
		Scenario:   rep.Scenario,
		Timestamp:  rep.Timestamp,
		Settings:   rep.Settings,
		Steps:      rep.Steps,
		Metrics:    rep.Result.Metrics,
		Estimation: rep.Estimation,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), data, 0644); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, resultFile))
	if err != nil {
		return "", err
	}
	if err := export.WriteResultCSV(f, rep.Result); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return rep.ID, nil
}

// List returns stored runs, oldest first. Unreadable run directories are
// skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadResult reads the temperature traces of a run.
func (s *Store) LoadResult(runID string) (*thermal.Result, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, resultFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := export.ReadResultCSV(f)
	if err != nil {
		return nil, err
	}
	if meta, err := s.Load(runID); err == nil {
		res.Metrics = meta.Metrics
	}
	return res, nil
}
