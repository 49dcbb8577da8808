package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/san-kum/motorlab/internal/config"
	"github.com/san-kum/motorlab/internal/dynamo"
	"github.com/san-kum/motorlab/internal/experiment"
	"github.com/san-kum/motorlab/internal/metrics"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted list of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Parallel    bool           `yaml:"parallel"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset or a config file and applies dotted
// overrides such as controller.kp or motor.j.
type ScenarioStep struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Config     string             `yaml:"config"`
	Integrator string             `yaml:"integrator"`
	Output     string             `yaml:"output"`
	Set        map[string]float64 `yaml:"set"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}

	// config paths are relative to the scenario file
	dir := filepath.Dir(path)
	for i := range scenario.Steps {
		if c := scenario.Steps[i].Config; c != "" && !filepath.IsAbs(c) {
			scenario.Steps[i].Config = filepath.Join(dir, c)
		}
	}
	return &scenario, nil
}

// Build resolves the step into a validated config.
func (s ScenarioStep) Build() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	default:
		cfg = config.DefaultConfig()
	}

	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Output != "" {
		cfg.Output = s.Output
	}
	for name, v := range s.Set {
		if err := cfg.Set(name, v); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

// RunScenario executes every step, concurrently when the scenario asks for it.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *zap.Logger) ([]experiment.Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	runs := make([]experiment.Named, len(scenario.Steps))
	for i, step := range scenario.Steps {
		cfg, err := step.Build()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("%s-%d", scenario.Name, i+1)
		}
		runs[i] = experiment.Named{Name: name, Config: cfg}
	}

	logger.Info("scenario started", zap.String("scenario", scenario.Name), zap.Int("steps", len(runs)), zap.Bool("parallel", scenario.Parallel))

	if scenario.Parallel {
		return experiment.Compare(ctx, registry, logger, runs)
	}

	results := make([]experiment.Result, 0, len(runs))
	for i, r := range runs {
		exp, err := experiment.New(r.Name, r.Config, registry, logger)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		tr, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		results = append(results, experiment.Result{Name: r.Name, Trace: tr, Metadata: exp.Metadata()})
	}
	return results, nil
}

// ParameterSweep varies one dotted config parameter over a linear range.
type ParameterSweep struct {
	Base     *config.Config
	Param    string
	Min, Max float64
	NumSteps int
}

// SweepResult summarises one sweep point.
type SweepResult struct {
	ParamValue float64
	FinalState dynamo.State
	Step       metrics.StepInfo
	Metrics    map[string]float64
}

// Values returns the swept parameter values.
func (s *ParameterSweep) Values() ([]float64, error) {
	if s.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", s.NumSteps)
	}
	if s.NumSteps == 1 {
		return []float64{s.Min}, nil
	}
	return floats.Span(make([]float64, s.NumSteps), s.Min, s.Max), nil
}

// RunSweep runs every sweep point concurrently.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, logger *zap.Logger) ([]SweepResult, error) {
	values, err := sweep.Values()
	if err != nil {
		return nil, err
	}

	runs := make([]experiment.Named, len(values))
	targets := make([]float64, len(values))
	for i, v := range values {
		cfg := sweep.Base.Clone()
		if err := cfg.Set(sweep.Param, v); err != nil {
			return nil, err
		}
		ref, err := cfg.Controller.Reference.Build()
		if err != nil {
			return nil, err
		}
		targets[i] = ref(cfg.Sim.Tf)
		runs[i] = experiment.Named{Name: fmt.Sprintf("%s=%g", sweep.Param, v), Config: cfg}
	}

	results, err := experiment.Compare(ctx, registry, logger, runs)
	if err != nil {
		return nil, err
	}

	out := make([]SweepResult, len(results))
	for i, r := range results {
		info, err := metrics.Summary(r.Trace, targets[i])
		if err != nil {
			return nil, err
		}
		out[i] = SweepResult{
			ParamValue: values[i],
			FinalState: r.Trace.Final().State,
			Step:       info,
			Metrics:    r.Trace.Metrics,
		}
	}
	return out, nil
}

// MonteCarloConfig perturbs every motor parameter by a uniform relative
// tolerance to test robustness of a controller against parameter spread.
type MonteCarloConfig struct {
	Base      *config.Config
	Tolerance float64
	NumTrials int
	Seed      uint64
}

type MonteCarloResult struct {
	TrialID    int
	Params     map[string]float64
	FinalState dynamo.State
	Stable     bool
}

func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry, logger *zap.Logger) ([]MonteCarloResult, error) {
	if cfg.Tolerance < 0 || cfg.Tolerance >= 1 {
		return nil, fmt.Errorf("%w: tolerance must be in [0, 1), got %g", dynamo.ErrParameterBounds, cfg.Tolerance)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	runs := make([]experiment.Named, cfg.NumTrials)
	for trial := range runs {
		c := cfg.Base.Clone()
		for _, name := range []string{"r", "l", "b", "j", "kv", "kt"} {
			v := c.Motor.GetParams()[name] * (1 + (rng.Float64()*2-1)*cfg.Tolerance)
			p, err := c.Motor.With(name, v)
			if err != nil {
				return nil, err
			}
			c.Motor = p
		}
		runs[trial] = experiment.Named{Name: fmt.Sprintf("trial-%d", trial), Config: c}
	}

	results, err := experiment.Compare(ctx, registry, logger, runs)
	if err != nil {
		return nil, err
	}

	out := make([]MonteCarloResult, len(results))
	for i, r := range results {
		final := r.Trace.Final().State
		stable := r.Trace.Metrics["stability"] == 1
		for _, v := range final {
			if math.Abs(v) > 1e6 {
				stable = false
				break
			}
		}
		out[i] = MonteCarloResult{
			TrialID:    i,
			Params:     runs[i].Config.Motor.GetParams(),
			FinalState: final,
			Stable:     stable,
		}
	}
	return out, nil
}

// MonteCarloStats counts stable and unstable trials.
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
