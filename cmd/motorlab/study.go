package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/motorlab/internal/automation"
	"github.com/san-kum/motorlab/internal/experiment"
	"github.com/san-kum/motorlab/internal/optim"
	"github.com/san-kum/motorlab/internal/physics"
	"github.com/san-kum/motorlab/internal/storage"
	"github.com/spf13/cobra"
)

func sweepCommand() *cobra.Command {
	var (
		param string
		lo    float64
		hi    float64
		steps int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one motor parameter or gain over a range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sweep := &automation.ParameterSweep{Base: base, Param: param, Min: lo, Max: hi, NumSteps: steps}
			results, err := automation.RunSweep(cmd.Context(), sweep, experiment.NewRegistry(), logger)
			if err != nil {
				return err
			}

			fmt.Printf("sweep %s over [%g, %g]\n\n", param, lo, hi)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VALUE\tFINAL\tRISE\tSETTLING\tOVERSHOOT\tIAE\tEFFORT")
			for _, r := range results {
				fmt.Fprintf(w, "%.4g\t%.6g\t%.4gs\t%.4gs\t%.3g%%\t%.4g\t%.4g\n",
					r.ParamValue,
					r.Step.Final,
					r.Step.RiseTime,
					r.Step.SettlingTime,
					r.Step.Overshoot,
					r.Metrics["iae"],
					r.Metrics["control_effort"],
				)
			}
			return w.Flush()
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().StringVar(&param, "param", "controller.kp", "dotted parameter name, e.g. motor.j or controller.kp")
	cmd.Flags().Float64Var(&lo, "min", 50, "first value")
	cmd.Flags().Float64Var(&hi, "max", 500, "last value")
	cmd.Flags().IntVar(&steps, "steps", 5, "number of values")
	return cmd
}

func monteCarloCommand() *cobra.Command {
	var (
		trials int
		tol    float64
		seed   uint64
	)
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run a controller against randomly perturbed motors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			mc := &automation.MonteCarloConfig{Base: base, Tolerance: tol, NumTrials: trials, Seed: seed}
			results, err := automation.RunMonteCarlo(cmd.Context(), mc, experiment.NewRegistry(), logger)
			if err != nil {
				return err
			}

			stable, unstable := automation.MonteCarloStats(results)
			fmt.Printf("%d trials, tolerance ±%.0f%%: %d stable, %d unstable\n\n", len(results), tol*100, stable, unstable)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TRIAL\tR\tL\tJ\tB\tKT\tKV\tSPEED\tSTABLE")
			for _, r := range results {
				fmt.Fprintf(w, "%d\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%.6g\t%v\n",
					r.TrialID,
					r.Params["r"], r.Params["l"], r.Params["j"], r.Params["b"], r.Params["kt"], r.Params["kv"],
					r.FinalState[2],
					r.Stable,
				)
			}
			return w.Flush()
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	cmd.Flags().Float64Var(&tol, "tol", 0.1, "relative parameter tolerance")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	return cmd
}

func scenarioCommand() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every step of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("scenario: %s\n", sc.Name)
			if sc.Description != "" {
				fmt.Printf("%s\n", sc.Description)
			}
			fmt.Println()

			results, err := automation.RunScenario(cmd.Context(), sc, experiment.NewRegistry(), logger)
			if err != nil {
				return err
			}

			var st *storage.Store
			if save {
				st = storage.New(dataDir)
				if err := st.Init(); err != nil {
					return err
				}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tCTRL\tOUTPUT\tFINAL\tIAE\tSAVED")
			for _, r := range results {
				saved := "-"
				if st != nil {
					id, err := st.Save(r.Metadata, r.Trace)
					if err != nil {
						return err
					}
					saved = id
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%.6g\t%.4g\t%s\n",
					r.Name, r.Metadata.Controller, r.Metadata.Output, physics.Tracked(r.Trace.Final().Output), r.Trace.Metrics["iae"], saved)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "store every run")
	return cmd
}

func tuneCommand() *cobra.Command {
	var (
		grids   []string
		metric  string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search controller gains for the lowest metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			names, ranges, err := parseGrids(grids)
			if err != nil {
				return err
			}

			gs := optim.NewGridSearch(names, ranges)
			gs.Workers = workers
			fmt.Printf("searching %d points for the lowest %s\n", len(gs.Points()), metric)

			best, score, err := gs.Search(cmd.Context(), optim.ConfigBuilder(base, experiment.NewRegistry(), logger), metric)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(best))
			for k := range best {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Println()
			for _, k := range keys {
				fmt.Printf("  %s = %g\n", k, best[k])
			}
			fmt.Printf("  %s = %.6g\n", metric, score)
			return nil
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().StringArrayVar(&grids, "grid", []string{"controller.kp=50,100,200,400"}, "param=v1,v2,... (repeatable)")
	cmd.Flags().StringVar(&metric, "metric", "iae", "metric to minimise")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 uses every cpu)")
	return cmd
}

// parseGrids splits "name=v1,v2" specs into names and value lists.
func parseGrids(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("bad grid %q, want name=v1,v2", spec)
		}
		var values []float64
		for _, field := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", name, err)
			}
			values = append(values, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}
