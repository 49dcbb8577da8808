package main

import (
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/motorlab/internal/analysis"
	"github.com/san-kum/motorlab/internal/config"
	"github.com/san-kum/motorlab/internal/control"
	"github.com/san-kum/motorlab/internal/dynamo"
	"github.com/san-kum/motorlab/internal/experiment"
	"github.com/san-kum/motorlab/internal/export"
	"github.com/san-kum/motorlab/internal/metrics"
	"github.com/san-kum/motorlab/internal/physics"
	"github.com/san-kum/motorlab/internal/storage"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gopkg.in/yaml.v3"
)

var stateNames = []string{"current", "angle", "speed"}

// loadRun resolves an explicit id, or the newest run when args is empty
// or "latest".
func loadRun(args []string) (*storage.RunMetadata, *dynamo.Trace, error) {
	st := storage.New(dataDir)
	runID := "latest"
	if len(args) > 0 {
		runID = args[0]
	}
	if runID == "latest" {
		id, err := st.Latest()
		if err != nil {
			return nil, nil, err
		}
		runID = id
	}

	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	tr, err := st.LoadTrace(runID)
	if err != nil {
		return nil, nil, err
	}
	if tr.Len() == 0 {
		return nil, nil, fmt.Errorf("run %s has no samples", runID)
	}
	return meta, tr, nil
}

// plottedOutput is the scalar output of a stored run; for full-state runs
// it is the angle.
func plottedOutput(tr *dynamo.Trace) []float64 {
	if len(tr.Outputs[0]) > 1 {
		return tr.StateSeries(physics.Angle)
	}
	return tr.OutputSeries(0)
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir).List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIME\tCTRL\tINTEG\tOUTPUT\tTF\tDT\tSTEPS\tIAE")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%.4g\n",
					run.ID,
					run.Timestamp.Format("2006-01-02 15:04:05"),
					run.Controller,
					run.Integrator,
					run.Output,
					run.Tf,
					run.Dt,
					run.Steps,
					run.Metrics["iae"],
				)
			}
			return w.Flush()
		},
	}
}

func plotCommand() *cobra.Command {
	var showState bool
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, tr, err := loadRun(args)
			if err != nil {
				return err
			}

			fmt.Printf("run: %s\n", meta.ID)
			fmt.Printf("controller: %s  reference: %s\n", meta.Controller, meta.Reference)
			fmt.Printf("samples: %d\n\n", tr.Len())

			fmt.Println(asciigraph.Plot(plottedOutput(tr),
				asciigraph.Height(12),
				asciigraph.Width(80),
				asciigraph.Caption(meta.Output+" vs time"),
			))
			fmt.Println()
			fmt.Println(asciigraph.Plot(tr.ControlSeries(),
				asciigraph.Height(8),
				asciigraph.Width(80),
				asciigraph.Caption("control input u [V]"),
			))

			if !showState {
				return nil
			}
			for i, name := range stateNames {
				fmt.Println()
				fmt.Println(asciigraph.Plot(tr.StateSeries(i),
					asciigraph.Height(8),
					asciigraph.Width(80),
					asciigraph.Caption(name),
				))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showState, "state", false, "also plot every state component")
	return cmd
}

func exportJSONCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and samples as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, tr, err := loadRun(args)
			if err != nil {
				return err
			}
			return storage.ExportJSON(os.Stdout, *meta, tr)
		},
	}
}

func exportCSVCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tr, err := loadRun(args)
			if err != nil {
				return err
			}
			return storage.WriteCSV(os.Stdout, tr)
		},
	}
}

func renderCommand() *cobra.Command {
	var (
		out    string
		format string
		kind   string
		xAxis  int
		yAxis  int
	)
	cmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render a stored run to an image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, tr, err := loadRun(args)
			if err != nil {
				return err
			}

			var p *plot.Plot
			switch kind {
			case "output", "control":
				output, ctrl, perr := export.OutputPlot(tr, meta.Name)
				if perr != nil {
					return perr
				}
				p = output
				if kind == "control" {
					p = ctrl
				}
			case "state":
				p, err = export.StatePlot(tr, meta.Name, stateNames)
			case "phase":
				portrait, perr := analysis.PhasePortrait(tr, xAxis, yAxis)
				if perr != nil {
					return perr
				}
				p, err = export.PhasePlot(portrait, axisName(xAxis), axisName(yAxis))
			default:
				return fmt.Errorf("unknown plot kind: %s (want output, control, state or phase)", kind)
			}
			if err != nil {
				return err
			}

			if out == "-" {
				return export.Render(os.Stdout, p, format, export.Width, export.Height)
			}
			if out == "" {
				out = fmt.Sprintf("%s_%s.%s", meta.ID, kind, format)
			}
			if err := export.Save(out, p); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	cmd.Flags().StringVar(&format, "format", "png", "image format when writing to stdout or choosing a name")
	cmd.Flags().StringVar(&kind, "kind", "output", "output, control, state or phase")
	cmd.Flags().IntVar(&xAxis, "x-axis", physics.Angle, "state index for the phase x-axis")
	cmd.Flags().IntVar(&yAxis, "y-axis", physics.Speed, "state index for the phase y-axis")
	return cmd
}

func axisName(i int) string {
	if i >= 0 && i < len(stateNames) {
		return stateNames[i]
	}
	return fmt.Sprintf("x%d", i)
}

func analyzeCommand() *cobra.Command {
	var target float64
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step response, poles and spectrum of a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, tr, err := loadRun(args)
			if err != nil {
				return err
			}
			y := plottedOutput(tr)
			if !cmd.Flags().Changed("target") {
				target = y[len(y)-1]
			}

			fmt.Printf("analysis: %s\n", meta.ID)
			fmt.Printf("output: %s  target: %.6g\n\n", meta.Output, target)

			info, err := metrics.StepResponse(tr.Times, y, target)
			if err != nil {
				return err
			}
			printStepInfo(info)

			motor, err := physics.NewDCMotor(meta.Motor)
			if err != nil {
				return err
			}
			poles, err := analysis.Poles(motor.A)
			if err != nil {
				return err
			}
			fmt.Printf("\nopen-loop poles: %s\n", formatPoles(poles))
			if tc := analysis.TimeConstant(poles); !math.IsInf(tc, 1) {
				fmt.Printf("slowest time constant: %.4gs\n", tc)
			}
			fmt.Println()

			spec, err := analysis.PowerSpectrum(y, meta.Dt)
			if err != nil {
				return err
			}
			if n := len(spec.Power) / 4; n > 1 {
				fmt.Println(asciigraph.Plot(spec.Power[1:n],
					asciigraph.Height(10),
					asciigraph.Width(80),
					asciigraph.Caption("power spectrum of "+meta.Output),
				))
				fmt.Println()
			}

			freq, _, err := analysis.DominantFrequency(y, meta.Dt)
			if err != nil {
				return err
			}
			osc, err := analysis.Oscillates(y, meta.Dt, 0.5)
			if err != nil {
				return err
			}
			fmt.Printf("dominant frequency: %.4g hz\n", freq)
			if freq > 0 {
				fmt.Printf("period: %.4g s\n", 1/freq)
			}
			fmt.Printf("oscillating: %v\n", osc)
			return nil
		},
	}
	cmd.Flags().Float64Var(&target, "target", 0, "step target (default: final output)")
	return cmd
}

func formatPoles(poles []complex128) string {
	parts := make([]string, len(poles))
	for i, p := range poles {
		if imag(p) == 0 {
			parts[i] = fmt.Sprintf("%.4g", real(p))
		} else {
			parts[i] = fmt.Sprintf("%.4g%+.4gi", real(p), imag(p))
		}
	}
	return strings.Join(parts, ", ")
}

func presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list preset configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRESET\tCTRL\tOUTPUT\tREFERENCE\tTF")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%gs\n",
					name, cfg.Controller.Kind, cfg.Output, cfg.Controller.Reference.String(), cfg.Sim.Tf)
			}
			return w.Flush()
		},
	}
}

func describeCommand() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "print the motor model and its poles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if asYAML {
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				if err := enc.Encode(cfg); err != nil {
					return err
				}
				return enc.Close()
			}

			exp, err := experiment.New("describe", cfg, experiment.NewRegistry(), logger)
			if err != nil {
				return err
			}
			motor := exp.Motor()
			fmt.Println(motor.String())

			poles, err := analysis.Poles(motor.A)
			if err != nil {
				return err
			}
			fmt.Printf("open-loop poles: %s\n", formatPoles(poles))

			sf, ok := exp.Controller().(*control.StateFeedback)
			if !ok {
				return nil
			}
			k := mat.NewDense(1, len(sf.K), sf.K)
			closed, err := analysis.ClosedLoopPoles(motor.A, motor.B, k)
			if err != nil {
				return err
			}
			fmt.Printf("\nK = %v  N = %.6g\n", sf.K, sf.N)
			fmt.Printf("closed-loop poles: %s\n", formatPoles(closed))
			if tc := analysis.TimeConstant(closed); !math.IsInf(tc, 1) {
				fmt.Printf("slowest time constant: %.4gs\n", tc)
			}
			return nil
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the resolved configuration as YAML")
	return cmd
}
