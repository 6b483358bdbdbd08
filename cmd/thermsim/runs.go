package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jedipuppy/inspire-thermal-simulation/internal/config"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/export"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/sim"
	"github.com/jedipuppy/inspire-thermal-simulation/internal/storage"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "check the scenario and report the stable time step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadScenario()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			stable, err := sim.StableTimeStep(cfg.Nodes, cfg.Edges)
			if err != nil {
				return err
			}
			fmt.Printf("scenario %s is valid\n", cfg.Name)
			fmt.Printf("  nodes: %d, edges: %d\n", len(cfg.Nodes), len(cfg.Edges))
			fmt.Printf("  steps: %d\n", cfg.Settings.Steps())
			fmt.Printf("  stable time step: %.6g s (using %.6g s)\n", stable, cfg.Settings.TimeStep)
			if cfg.Settings.TimeStep > stable {
				fmt.Println(bad.Render("  time step exceeds the stability bound"))
			}
			return nil
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [name]",
		Short: "list built-in scenarios, or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Println("presets:")
				for _, p := range config.ListPresets() {
					fmt.Printf("  %s\n", p)
				}
				return nil
			}
			cfg := config.GetPreset(args[0])
			if cfg == nil {
				return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(viper.GetString("data"))
			runs, err := st.List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tSCENARIO\tTIME\tTOTAL\tDT\tSTEPS")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%d\n",
					run.ID,
					run.Kind,
					run.Scenario,
					run.Timestamp.Local().Format("2006-01-02 15:04:05"),
					run.Settings.TotalTime,
					run.Settings.TimeStep,
					run.Steps,
				)
			}
			return w.Flush()
		},
	}
}

func newPlotCmd() *cobra.Command {
	var (
		nodes []string
		chart string
	)

	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(viper.GetString("data"))
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			result, err := st.LoadResult(args[0])
			if err != nil {
				return err
			}
			if len(result.Times) == 0 {
				return fmt.Errorf("no data to plot")
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("scenario: %s\n", meta.Scenario)
			fmt.Printf("samples: %d\n", len(result.Times))
			printPlot(result, nodes)

			if chart != "" {
				opts := export.ChartOptions{Title: meta.Scenario, Nodes: nodes}
				if err := export.SaveChart(chart, result, opts); err != nil {
					return fmt.Errorf("render chart: %w", err)
				}
				a.log.Infow("chart written", "path", chart)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&nodes, "nodes", nil, "nodes to plot (default: all)")
	cmd.Flags().StringVar(&chart, "chart", "", "also render a chart file")
	return cmd
}
