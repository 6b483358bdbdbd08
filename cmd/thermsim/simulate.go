package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/config"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/export"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/integrators"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/metrics"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/sim"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/storage"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Red, asciigraph.Blue, asciigraph.Green,
	asciigraph.Yellow, asciigraph.Cyan, asciigraph.Magenta,
}

type outputFlags struct {
	plot  bool
	csv   string
	json  string
	chart string
	save  bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.plot, "plot", false, "draw temperatures in the terminal")
	cmd.Flags().StringVar(&o.csv, "csv", "", "write temperatures to a csv file")
	cmd.Flags().StringVar(&o.json, "json", "", "write a json report")
	cmd.Flags().StringVar(&o.chart, "chart", "", "render a chart (.png, .svg, .pdf)")
	cmd.Flags().BoolVar(&o.save, "save", false, "keep the run in the run store")
}

func newSimulateCmd() *cobra.Command {
	var (
		dt, total float64
		out       outputFlags
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "run a forward solve of the scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadScenario()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("dt") {
				cfg.Settings.TimeStep = dt
			}
			if cmd.Flags().Changed("time") {
				cfg.Settings.TotalTime = total
			}

			result, err := runScenario(cmd, cfg)
			if err != nil {
				return err
			}

			printSummary(cfg, result)
			if out.plot {
				printPlot(result, nil)
			}
			return writeOutputs(out, cfg, result, nil, nil)
		},
	}
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultTimeStep, "time step in seconds")
	cmd.Flags().Float64Var(&total, "time", config.DefaultTotalTime, "total simulated time in seconds")
	out.register(cmd)
	return cmd
}

// runScenario solves cfg with the standard metric set attached, warning when
// the step is above the explicit Euler stability bound.
func runScenario(cmd *cobra.Command, cfg *config.Config) (*thermal.Result, error) {
	if err := cfg.Validate(); err != nil {
		a.collector.ObserveSimulation(0, 0, err)
		return nil, err
	}
	warnUnstable(cfg)

	s := sim.New(integrators.NewEuler())
	s.AddMetric(metrics.NewEnergyDrift())
	s.AddMetric(metrics.NewPeakTemp())
	s.AddMetric(metrics.NewStability(0))

	a.log.Infow("simulating",
		"scenario", cfg.Name,
		"nodes", len(cfg.Nodes),
		"edges", len(cfg.Edges),
		"time_step", cfg.Settings.TimeStep,
		"total_time", cfg.Settings.TotalTime,
	)
	start := time.Now()
	result, err := s.Run(cmd.Context(), cfg.Nodes, cfg.Edges, cfg.Settings)
	elapsed := time.Since(start)
	if err != nil {
		a.collector.ObserveSimulation(0, elapsed, err)
		return nil, fmt.Errorf("simulation failed: %w", err)
	}
	a.collector.ObserveSimulation(len(result.Times)-1, elapsed, nil)
	a.log.Debugw("simulation finished", "steps", len(result.Times)-1, "elapsed", elapsed)
	return result, nil
}

func warnUnstable(cfg *config.Config) {
	stable, err := sim.StableTimeStep(cfg.Nodes, cfg.Edges)
	if err != nil {
		return
	}
	if cfg.Settings.TimeStep > stable {
		a.log.Warnw("time step above explicit Euler stability bound; expect oscillation",
			"time_step", cfg.Settings.TimeStep,
			"stable_step", stable,
		)
	}
}

func printSummary(cfg *config.Config, result *thermal.Result) {
	fmt.Printf("scenario: %s\n", cfg.Name)
	fmt.Printf("steps: %d\n", len(result.Times)-1)
	fmt.Println("\nfinal temperatures:")
	final := result.Final()
	for _, s := range result.Series {
		fmt.Printf("  %-12s %10.4f °C\n", s.NodeID, final[s.NodeID])
	}
	if len(result.Metrics) == 0 {
		return
	}
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
}

// printPlot draws up to six series, or only the listed nodes when ids is set.
func printPlot(result *thermal.Result, ids []string) {
	const maxSeries = 6
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var data [][]float64
	var legends []string
	for _, s := range result.Series {
		if len(want) > 0 && !want[s.NodeID] {
			continue
		}
		if len(data) == maxSeries {
			break
		}
		data = append(data, s.Temperatures)
		legends = append(legends, s.NodeID)
	}
	if len(data) == 0 {
		return
	}

	fmt.Println()
	fmt.Println(asciigraph.PlotMany(data,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(seriesColors[:len(data)]...),
		asciigraph.SeriesLegends(legends...),
		asciigraph.Caption(fmt.Sprintf("temperature (°C) over %.4g s", result.Times[len(result.Times)-1])),
	))
}

// writeOutputs handles the shared --csv/--json/--chart/--save flags. est and
// meas are set for estimation runs.
func writeOutputs(out outputFlags, cfg *config.Config, result *thermal.Result, est *thermal.EstimationResult, meas []thermal.Measurement) error {
	if out.csv != "" {
		f, err := os.Create(out.csv)
		if err != nil {
			return err
		}
		if err := export.WriteResultCSV(f, result); err != nil {
			f.Close()
			return fmt.Errorf("write csv: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		a.log.Infow("csv written", "path", out.csv)
	}

	if out.json != "" {
		rep := export.NewSimulationReport(cfg.Name, cfg.Settings, result)
		if est != nil {
			rep = export.NewEstimationReport(cfg.Name, cfg.Settings, est, result)
		}
		if err := export.SaveJSON(out.json, rep); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		a.log.Infow("report written", "path", out.json, "run_id", rep.ID)
	}

	if out.chart != "" {
		opts := export.ChartOptions{Title: cfg.Name, Measurements: meas}
		if err := export.SaveChart(out.chart, result, opts); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
		a.log.Infow("chart written", "path", out.chart)
	}

	if out.save {
		st := storage.New(viper.GetString("data"))
		if err := st.Init(); err != nil {
			return err
		}
		var (
			runID string
			err   error
		)
		if est != nil {
			runID, err = st.SaveEstimation(cfg.Name, cfg.Settings, est, result)
		} else {
			runID, err = st.Save(cfg.Name, cfg.Settings, result)
		}
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		fmt.Printf("\nrun id: %s\n", runID)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
