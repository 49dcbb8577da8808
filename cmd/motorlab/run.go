package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/motorlab/internal/config"
	"github.com/san-kum/motorlab/internal/dynamo"
	"github.com/san-kum/motorlab/internal/experiment"
	"github.com/san-kum/motorlab/internal/export"
	"github.com/san-kum/motorlab/internal/metrics"
	"github.com/san-kum/motorlab/internal/physics"
	"github.com/san-kum/motorlab/internal/storage"
	"github.com/san-kum/motorlab/internal/tui"
	"github.com/spf13/cobra"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp, err := experiment.New(runName, cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}
	tr, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}

	printSummary(exp.Name, cfg, tr)

	if noSave {
		return nil
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(exp.Metadata(), tr)
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved: %s\n", runID)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New("live", cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}
	return tui.Run(exp)
}

func printSummary(name string, cfg *config.Config, tr *dynamo.Trace) {
	final := tr.Final()
	fmt.Printf("run: %s\n", name)
	fmt.Printf("controller: %s  integrator: %s  output: %s\n", cfg.Controller.Kind, cfg.Integrator, cfg.Output)
	fmt.Printf("samples: %d  t=[%g, %g]\n\n", tr.Len(), tr.Times[0], final.Time)
	fmt.Printf("final state: current=%.6f angle=%.6f speed=%.6f\n", final.State[0], final.State[1], final.State[2])
	fmt.Printf("final control: %.6f\n\n", final.Control)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	names := make([]string, 0, len(tr.Metrics))
	for k := range tr.Metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "%s\t%.6g\n", k, tr.Metrics[k])
	}
	w.Flush()

	ref, err := cfg.Controller.Reference.Build()
	if err != nil || len(final.Output) != 1 {
		return
	}
	info, err := metrics.Summary(tr, ref(final.Time))
	if err != nil {
		return
	}
	fmt.Println()
	printStepInfo(info)
}

func printStepInfo(info metrics.StepInfo) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "rise time\t%.4gs\n", info.RiseTime)
	fmt.Fprintf(w, "settling time\t%.4gs\n", info.SettlingTime)
	fmt.Fprintf(w, "overshoot\t%.3g%%\n", info.Overshoot)
	fmt.Fprintf(w, "peak\t%.6g at %.4gs\n", info.Peak, info.PeakTime)
	fmt.Fprintf(w, "steady-state error\t%.6g\n", info.SteadyStateError)
	w.Flush()
}

// resolveRun loads a preset by name or a config by path.
func resolveRun(arg string) (experiment.Named, error) {
	if cfg := config.GetPreset(arg); cfg != nil {
		return experiment.Named{Name: arg, Config: cfg}, nil
	}
	cfg, err := config.Load(arg)
	if err != nil {
		return experiment.Named{}, fmt.Errorf("%s is neither a preset nor a readable config: %w", arg, err)
	}
	return experiment.Named{Name: strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg)), Config: cfg}, nil
}

func compareCommand() *cobra.Command {
	var renderPath string
	cmd := &cobra.Command{
		Use:   "compare [preset|config.yaml]...",
		Short: "run several configurations in parallel and compare them",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runs := make([]experiment.Named, len(args))
			for i, arg := range args {
				r, err := resolveRun(arg)
				if err != nil {
					return err
				}
				runs[i] = r
			}

			results, err := experiment.Compare(cmd.Context(), experiment.NewRegistry(), logger, runs)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tCTRL\tOUTPUT\tFINAL\tIAE\tEFFORT\tENERGY")
			names := make([]string, len(results))
			traces := make([]*dynamo.Trace, len(results))
			for i, r := range results {
				names[i] = r.Name
				traces[i] = r.Trace
				fmt.Fprintf(w, "%s\t%s\t%s\t%.6g\t%.6g\t%.6g\t%.6g\n",
					r.Name,
					r.Metadata.Controller,
					r.Metadata.Output,
					physics.Tracked(r.Trace.Final().Output),
					r.Trace.Metrics["iae"],
					r.Trace.Metrics["control_effort"],
					r.Trace.Metrics["input_energy"],
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if renderPath == "" {
				return nil
			}
			p, err := export.ComparePlot("output comparison", names, traces)
			if err != nil {
				return err
			}
			return export.Save(renderPath, p)
		},
	}
	cmd.Flags().StringVar(&renderPath, "render", "", "write a comparison plot (.png, .svg or .pdf)")
	return cmd
}
