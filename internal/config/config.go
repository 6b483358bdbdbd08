package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

const (
	DefaultTimeStep      = 1.0
	DefaultTotalTime     = 60.0
	DefaultMaxIterations = 2000
	DefaultTolerance     = 1e-6
	DefaultSynthEvery    = 1
	DefaultSynthSigma    = 0.0
)

// Config is a scenario file: a network, how long to run it, and how to fit
// it to measurements.
type Config struct {
	Name       string           `yaml:"name"`
	Nodes      []thermal.Node   `yaml:"nodes"`
	Edges      []thermal.Edge   `yaml:"edges"`
	Settings   thermal.Settings `yaml:"settings"`
	Estimation EstimationConfig `yaml:"estimation"`
	Synth      SynthConfig      `yaml:"synth"`
}

type EstimationConfig struct {
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	TimeStep      float64 `yaml:"time_step,omitempty"`
}

// SynthConfig drives synthetic measurement generation.
type SynthConfig struct {
	Every int      `yaml:"every"`
	Sigma float64  `yaml:"sigma"`
	Seed  uint64   `yaml:"seed"`
	Nodes []string `yaml:"nodes,omitempty"`
}

// DefaultConfig is the two-node cooling example.
func DefaultConfig() *Config {
	cfg := GetPreset("two-node")
	cfg.Name = "default"
	return cfg
}

// base carries defaults for everything but the network, so a file that
// lists its own nodes never inherits any.
func base() *Config {
	return &Config{
		Settings: thermal.Settings{
			TimeStep:  DefaultTimeStep,
			TotalTime: DefaultTotalTime,
		},
		Estimation: EstimationConfig{
			MaxIterations: DefaultMaxIterations,
			Tolerance:     DefaultTolerance,
		},
		Synth: SynthConfig{
			Every: DefaultSynthEvery,
			Sigma: DefaultSynthSigma,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a scenario. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	cfg := base()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the network and run settings the way the solver does.
func (c *Config) Validate() error {
	return thermal.Validate(c.Nodes, c.Edges, c.Settings)
}

// EstimationSettings combines the estimation section with measurements.
func (c *Config) EstimationSettings(measurements []thermal.Measurement) thermal.EstimationSettings {
	return thermal.EstimationSettings{
		Measurements:  measurements,
		MaxIterations: c.Estimation.MaxIterations,
		Tolerance:     c.Estimation.Tolerance,
		TimeStep:      c.Estimation.TimeStep,
	}
}

func (c *Config) clone() *Config {
	out := *c
	out.Nodes = thermal.CloneNodes(c.Nodes)
	out.Edges = thermal.CloneEdges(c.Edges)
	out.Synth.Nodes = append([]string(nil), c.Synth.Nodes...)
	return &out
}
