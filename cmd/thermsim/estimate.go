package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/config"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/measure"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/optim"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/sim"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/thermal"
)

func newSynthCmd() *cobra.Command {
	var (
		out   string
		every int
		sigma float64
		seed  uint64
		nodes []string
	)

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "generate noisy measurements from the scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadScenario()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("every") {
				cfg.Synth.Every = every
			}
			if cmd.Flags().Changed("sigma") {
				cfg.Synth.Sigma = sigma
			}
			if cmd.Flags().Changed("seed") {
				cfg.Synth.Seed = seed
			}
			if cmd.Flags().Changed("nodes") {
				cfg.Synth.Nodes = nodes
			}

			meas, err := synthesize(cmd, cfg)
			if err != nil {
				return err
			}
			if out == "" {
				return measure.WriteCSV(os.Stdout, meas)
			}
			if err := measure.SaveFile(out, meas); err != nil {
				return err
			}
			a.log.Infow("measurements written", "path", out, "traces", len(meas))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output csv (default stdout)")
	cmd.Flags().IntVar(&every, "every", config.DefaultSynthEvery, "keep every n-th solver sample")
	cmd.Flags().Float64Var(&sigma, "sigma", config.DefaultSynthSigma, "gaussian noise standard deviation (°C)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "noise seed")
	cmd.Flags().StringSliceVar(&nodes, "nodes", nil, "nodes to sample (default: every free node)")
	return cmd
}

// synthesize solves the scenario and samples its free nodes, or the nodes
// the scenario names.
func synthesize(cmd *cobra.Command, cfg *config.Config) ([]thermal.Measurement, error) {
	result, err := runScenario(cmd, cfg)
	if err != nil {
		return nil, err
	}
	ids := cfg.Synth.Nodes
	if len(ids) == 0 {
		ids = measure.FreeNodeIDs(cfg.Nodes)
	}
	return measure.Synthesize(result, measure.Options{
		Every: cfg.Synth.Every,
		Sigma: cfg.Synth.Sigma,
		Seed:  cfg.Synth.Seed,
		Nodes: ids,
	})
}

type fitFlags struct {
	measurements string
	maxIter      int
	tol          float64
	step         float64
	scale        float64
}

func (f *fitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.measurements, "measurements", "m", "", "measurement csv (default: synthesize from the scenario)")
	cmd.Flags().IntVar(&f.maxIter, "max-iter", config.DefaultMaxIterations, "maximum forward evaluations")
	cmd.Flags().Float64Var(&f.tol, "tol", config.DefaultTolerance, "objective value that counts as converged")
	cmd.Flags().Float64Var(&f.step, "step", 0, "solver step during estimation (default: from measurement spacing)")
	cmd.Flags().Float64Var(&f.scale, "scale", 1, "multiply every free parameter of the scenario by this before starting")
}

// prepare loads the scenario, applies flag overrides, and returns it with
// the measurements to fit and the (possibly scaled) starting network.
func (f *fitFlags) prepare(cmd *cobra.Command) (*config.Config, []thermal.Measurement, error) {
	cfg, err := loadScenario()
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("max-iter") {
		cfg.Estimation.MaxIterations = f.maxIter
	}
	if cmd.Flags().Changed("tol") {
		cfg.Estimation.Tolerance = f.tol
	}
	if cmd.Flags().Changed("step") {
		cfg.Estimation.TimeStep = f.step
	}

	var meas []thermal.Measurement
	if f.measurements != "" {
		meas, err = measure.LoadFile(f.measurements)
	} else {
		a.log.Infow("no measurements given, synthesizing from scenario", "sigma", cfg.Synth.Sigma)
		meas, err = synthesize(cmd, cfg)
	}
	if err != nil {
		return nil, nil, err
	}

	if f.scale <= 0 {
		return nil, nil, fmt.Errorf("--scale must be > 0, got %v", f.scale)
	}
	if f.scale != 1 {
		cfg.Nodes, cfg.Edges = optim.ScaleFree(cfg.Nodes, cfg.Edges, f.scale)
	}
	return cfg, meas, nil
}

func newEstimateCmd() *cobra.Command {
	var (
		fit     fitFlags
		simplex float64
		out     outputFlags
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "fit heat capacities and conductances to measurements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, meas, err := fit.prepare(cmd)
			if err != nil {
				return err
			}

			opts := []optim.Option{optim.WithLogger(a.log), optim.WithRecorder(a.collector)}
			if simplex > 0 {
				opts = append(opts, optim.WithSimplexSize(simplex))
			}
			est, err := optim.Estimate(cmd.Context(), cfg.Nodes, cfg.Edges, cfg.EstimationSettings(meas), opts...)
			if err != nil {
				return fmt.Errorf("estimate %s: %w", cfg.Name, err)
			}

			fmt.Println(renderEstimate(cfg, est))

			fitted := *cfg
			fitted.Nodes, fitted.Edges = est.Apply(cfg.Nodes, cfg.Edges)
			result, err := sim.Simulate(fitted.Nodes, fitted.Edges, fitted.Settings)
			if err != nil {
				return fmt.Errorf("simulate fitted network: %w", err)
			}
			if out.plot {
				printPlot(result, measure.FreeNodeIDs(fitted.Nodes))
			}
			return writeOutputs(out, &fitted, result, est, meas)
		},
	}
	fit.register(cmd)
	cmd.Flags().Float64Var(&simplex, "simplex", 0, "initial simplex size in log-parameter units")
	out.register(cmd)
	return cmd
}

func renderEstimate(cfg *config.Config, est *thermal.EstimationResult) string {
	var b strings.Builder
	b.WriteString(title.Render("estimation: "+cfg.Name) + "\n\n")

	info := est.ConvergenceInfo
	status := bad.Render("not converged")
	if info.Converged {
		status = good.Render("converged")
	}
	b.WriteString(row("status", status) + "\n")
	b.WriteString(row("evaluations", fmt.Sprintf("%d", info.Iterations)) + "\n")
	b.WriteString(row("final error", fmt.Sprintf("%.6g", info.FinalError)) + "\n\n")

	b.WriteString(title.Render("heat capacities (J/K)") + "\n")
	for _, n := range cfg.Nodes {
		if c, ok := est.EstimatedHeatCapacities[n.ID]; ok {
			b.WriteString(row(n.Label(), fmt.Sprintf("%.6g  (start %.6g)", c, n.HeatCapacity)) + "\n")
		}
	}
	b.WriteString("\n" + title.Render("conductances (W/K)") + "\n")
	for _, e := range cfg.Edges {
		if g, ok := est.EstimatedConductances[e.ID]; ok {
			b.WriteString(row(e.ID, fmt.Sprintf("%.6g  (start %.6g)", g, e.Conductance)) + "\n")
		}
	}
	return panel.Render(strings.TrimRight(b.String(), "\n"))
}

func newSweepCmd() *cobra.Command {
	var (
		fit     fitFlags
		factors []float64
		workers int
	)

	cmd := &cobra.Command{
		Use:   "sweep [node:<id>|edge:<id>]",
		Short: "scan the fit error while scaling one parameter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, meas, err := fit.prepare(cmd)
			if err != nil {
				return err
			}

			res, err := optim.Sweep(cmd.Context(), cfg.Nodes, cfg.Edges, cfg.EstimationSettings(meas), args[0], factors,
				optim.WithLogger(a.log), optim.WithRecorder(a.collector), optim.WithWorkers(workers))
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			fmt.Println(title.Render("sweep: " + res.Param))
			errs := make([]float64, 0, len(res.Points))
			for _, pt := range res.Points {
				fmt.Printf("  factor %-8.4g value %-12.6g error %.6g\n", pt.Factor, pt.Value, pt.Error)
				if finite(pt.Error) {
					errs = append(errs, pt.Error)
				}
			}
			fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top,
				label.Render("best factor"), value.Render(fmt.Sprintf("%.4g (error %.6g)", res.BestFactor, res.BestError))))
			if len(errs) > 1 {
				fmt.Println()
				fmt.Println(asciigraph.Plot(errs, asciigraph.Height(8), asciigraph.Caption("error by factor")))
			}
			return nil
		},
	}
	fit.register(cmd)
	cmd.Flags().Float64SliceVar(&factors, "factors", []float64{0.5, 0.75, 0.9, 1, 1.1, 1.25, 1.5, 2}, "scale factors to try")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent solves (default GOMAXPROCS)")
	return cmd
}
