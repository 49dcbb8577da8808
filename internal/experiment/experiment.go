package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/san-kum/motorlab/internal/config"
	"github.com/san-kum/motorlab/internal/dynamo"
	"github.com/san-kum/motorlab/internal/physics"
	"github.com/san-kum/motorlab/internal/storage"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Experiment is one fully built run: motor, controller, integrator and
// simulation grid, ready to execute.
type Experiment struct {
	Name string

	cfg        *config.Config
	motor      *physics.DCMotor
	controller dynamo.Controller
	simulator  *dynamo.Simulator
	simCfg     dynamo.Config
	logger     *zap.Logger
}

// New validates cfg and builds every component from reg. A nil logger
// disables logging.
func New(name string, cfg *config.Config, reg *Registry, logger *zap.Logger) (*Experiment, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	motor, err := physics.NewDCMotor(cfg.Motor)
	if err != nil {
		return nil, err
	}

	var c mat.Matrix
	if !cfg.ObservesState() {
		out, err := physics.OutputMatrix(cfg.Output)
		if err != nil {
			return nil, err
		}
		c = out
	}

	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	ctrl, err := reg.GetController(cfg, motor, c)
	if err != nil {
		return nil, err
	}

	ref, err := cfg.Controller.Reference.Build()
	if err != nil {
		return nil, err
	}

	sim := dynamo.New(motor, integ, ctrl)
	for _, m := range reg.DefaultMetrics(ref) {
		sim.AddMetric(m)
	}

	return &Experiment{
		Name:       name,
		cfg:        cfg,
		motor:      motor,
		controller: ctrl,
		simulator:  sim,
		simCfg: dynamo.Config{
			T0:            cfg.Sim.T0,
			Tf:            cfg.Sim.Tf,
			Dt:            cfg.Sim.Dt,
			C:             c,
			ValidateState: true,
		},
		logger: logger.With(zap.String("run", name)),
	}, nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Trace, error) {
	e.logger.Info("run started",
		zap.String("controller", e.cfg.Controller.Kind),
		zap.String("integrator", e.cfg.Integrator),
		zap.String("output", e.cfg.Output),
		zap.Float64("dt", e.simCfg.Dt),
		zap.Float64("tf", e.simCfg.Tf),
	)

	start := time.Now()
	trace, err := e.simulator.Run(ctx, e.cfg.InitialState(), e.simCfg)
	if err != nil {
		e.logger.Error("run aborted", zap.Error(err), zap.Stringer("phase", e.simulator.Phase()))
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}

	fields := []zap.Field{
		zap.Int("steps", trace.Len()),
		zap.Duration("elapsed", time.Since(start)),
	}
	for _, name := range sortedKeys(trace.Metrics) {
		fields = append(fields, zap.Float64(name, trace.Metrics[name]))
	}
	e.logger.Info("run completed", fields...)
	return trace, nil
}

// RunWithCallback streams samples instead of recording a trace.
func (e *Experiment) RunWithCallback(ctx context.Context, callback func(dynamo.Sample) bool) error {
	e.logger.Debug("streaming run started")
	return e.simulator.RunWithCallback(ctx, e.cfg.InitialState(), e.simCfg, callback)
}

// Stepper starts a step-at-a-time run from the configured initial state.
func (e *Experiment) Stepper() (*dynamo.Stepper, error) {
	e.logger.Debug("stepped run started")
	return e.simulator.NewStepper(e.cfg.InitialState(), e.simCfg)
}

func (e *Experiment) Config() *config.Config        { return e.cfg }
func (e *Experiment) Motor() *physics.DCMotor       { return e.motor }
func (e *Experiment) Controller() dynamo.Controller { return e.controller }
func (e *Experiment) Simulator() *dynamo.Simulator  { return e.simulator }
func (e *Experiment) SimConfig() dynamo.Config      { return e.simCfg }

// Metadata describes the run for storage.
func (e *Experiment) Metadata() storage.RunMetadata {
	return storage.RunMetadata{
		Name:       e.Name,
		Motor:      e.cfg.Motor,
		Controller: e.cfg.Controller.Kind,
		Reference:  e.cfg.Controller.Reference.String(),
		Integrator: e.cfg.Integrator,
		Output:     e.cfg.Output,
		T0:         e.cfg.Sim.T0,
		Tf:         e.cfg.Sim.Tf,
		Dt:         e.cfg.Sim.Dt,
	}
}

// Named pairs a config with a display name.
type Named struct {
	Name   string
	Config *config.Config
}

// Result is one finished run of Compare.
type Result struct {
	Name     string
	Trace    *dynamo.Trace
	Metadata storage.RunMetadata
}

// Compare builds every config and runs them concurrently. Each run gets
// its own plant, controller and integrator.
func Compare(ctx context.Context, reg *Registry, logger *zap.Logger, runs []Named) ([]Result, error) {
	exps := make([]*Experiment, len(runs))
	jobs := make([]dynamo.Job, len(runs))
	for i, r := range runs {
		exp, err := New(r.Name, r.Config, reg, logger)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.Name, err)
		}
		exps[i] = exp
		jobs[i] = dynamo.Job{
			Name: r.Name,
			Sim:  exp.simulator,
			X0:   r.Config.InitialState(),
			Cfg:  exp.simCfg,
		}
	}

	if logger != nil {
		logger.Info("comparing runs", zap.Int("count", len(jobs)))
	}
	traces, err := dynamo.RunAll(ctx, jobs)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(traces))
	for i, tr := range traces {
		results[i] = Result{Name: exps[i].Name, Trace: tr, Metadata: exps[i].Metadata()}
	}
	return results, nil
}
