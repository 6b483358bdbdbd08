package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/config"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/logger"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/observability"
)

// app holds what every subcommand shares. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	log       *logger.Logger
	collector *observability.Collector
}

var (
	a app

	scenarioFile string
	presetName   string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if a.log != nil {
			a.log.Errorw("command failed", "err", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "thermsim",
		Short:         "lumped-parameter thermal network simulator and parameter estimator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadSettings(); err != nil {
				return err
			}
			a.log = logger.New(viper.GetString("log-level"))
			c, err := observability.NewCollector(prometheus.NewRegistry())
			if err != nil {
				return err
			}
			a.collector = c
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("metrics-file")
			if path == "" || a.collector == nil {
				return nil
			}
			if err := a.collector.WriteTextfile(path); err != nil {
				return err
			}
			a.log.Debugw("metrics written", "path", path)
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("data", ".thermsim", "run store directory")
	pf.String("log-level", logger.InfoLevel, "log level ("+strings.Join(logger.Levels(), "|")+")")
	pf.String("metrics-file", "", "write Prometheus metrics to this textfile on exit")
	pf.StringVar(&scenarioFile, "scenario", "", "scenario file (yaml)")
	pf.StringVar(&presetName, "preset", "", "use a built-in scenario ("+strings.Join(config.ListPresets(), "|")+")")

	for _, key := range []string{"data", "log-level", "metrics-file"} {
		_ = viper.BindPFlag(key, pf.Lookup(key))
	}

	rootCmd.AddCommand(
		newSimulateCmd(),
		newSynthCmd(),
		newEstimateCmd(),
		newSweepCmd(),
		newValidateCmd(),
		newPresetsCmd(),
		newListCmd(),
		newPlotCmd(),
	)
	return rootCmd
}

// loadSettings reads thermsim.yaml from the working directory when present
// and THERMSIM_* environment variables. Flags win over both.
func loadSettings() error {
	viper.SetEnvPrefix("THERMSIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("thermsim")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read settings: %w", err)
		}
	}
	return nil
}

// loadScenario resolves --scenario and --preset. The default is the
// two-node example.
func loadScenario() (*config.Config, error) {
	switch {
	case scenarioFile != "" && presetName != "":
		return nil, errors.New("--scenario and --preset are mutually exclusive")
	case scenarioFile != "":
		cfg, err := config.Load(scenarioFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenario: %w", err)
		}
		return cfg, nil
	case presetName != "":
		cfg := config.GetPreset(presetName)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", presetName, config.ListPresets())
		}
		return cfg, nil
	default:
		return config.DefaultConfig(), nil
	}
}
