package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/motorlab/internal/control"
	"github.com/san-kum/motorlab/internal/dynamo"
	"github.com/san-kum/motorlab/internal/physics"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt         = 0.001
	DefaultDuration   = 10.0
	DefaultKp         = 100.0
	DefaultIntegrator = "rk2"
	DefaultOutput     = "speed"
)

// Controller kinds.
const (
	KindDummy         = "dummy"
	KindPID           = "pid"
	KindStateFeedback = "state_feedback"
	KindLQR           = "lqr"
)

// OutputState observes the full state instead of a single component.
const OutputState = "state"

type Config struct {
	Motor      physics.MotorParams `yaml:"motor"`
	Controller ControllerConfig    `yaml:"controller"`
	Integrator string              `yaml:"integrator"`
	Sim        SimConfig           `yaml:"sim"`
	// Output is current, angle, speed or state.
	Output string `yaml:"output"`
}

type ControllerConfig struct {
	Kind string `yaml:"kind"`

	// pid
	Kp float64 `yaml:"kp,omitempty"`
	Ki float64 `yaml:"ki,omitempty"`
	Kd float64 `yaml:"kd,omitempty"`

	// dummy
	Value float64 `yaml:"value,omitempty"`

	// state_feedback: K is given; N is computed when zero.
	K []float64 `yaml:"k,omitempty"`
	N float64   `yaml:"n,omitempty"`

	// lqr: diagonal state weight and scalar input weight.
	Q []float64 `yaml:"q,omitempty"`
	R float64   `yaml:"r,omitempty"`

	Reference control.SignalSpec `yaml:"reference"`
	// Filter is the moving-average window applied to observations; 0 or 1
	// disables it.
	Filter int `yaml:"filter,omitempty"`
}

type SimConfig struct {
	T0 float64   `yaml:"t0"`
	Tf float64   `yaml:"tf"`
	Dt float64   `yaml:"dt"`
	X0 []float64 `yaml:"x0"`
}

func DefaultConfig() *Config {
	return &Config{
		Motor: physics.DefaultMotorParams(),
		Controller: ControllerConfig{
			Kind:      KindPID,
			Kp:        DefaultKp,
			Reference: control.SignalSpec{Kind: "constant", Value: 1},
		},
		Integrator: DefaultIntegrator,
		Sim: SimConfig{
			T0: 0,
			Tf: DefaultDuration,
			Dt: DefaultDt,
			X0: []float64{1, 0, 0},
		},
		Output: DefaultOutput,
	}
}

// Load reads a YAML file on top of DefaultConfig and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
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

func (c *Config) Validate() error {
	if err := c.Motor.Validate(); err != nil {
		return fmt.Errorf("motor: %w", err)
	}
	if c.Sim.Dt <= 0 {
		return fmt.Errorf("%w: sim.dt must be positive, got %g", dynamo.ErrParameterBounds, c.Sim.Dt)
	}
	if c.Sim.Tf <= c.Sim.T0 {
		return fmt.Errorf("%w: sim.tf %g must exceed sim.t0 %g", dynamo.ErrParameterBounds, c.Sim.Tf, c.Sim.T0)
	}
	if len(c.Sim.X0) != 3 {
		return fmt.Errorf("%w: sim.x0 needs 3 entries [current, angle, speed], got %d", dynamo.ErrDimensionMismatch, len(c.Sim.X0))
	}
	if c.Integrator == "" {
		return fmt.Errorf("integrator must be set")
	}

	switch strings.ToLower(c.Output) {
	case "current", "i", "angle", "theta", "speed", "omega", OutputState:
	default:
		return fmt.Errorf("unknown output: %s", c.Output)
	}

	ctrl := c.Controller
	switch ctrl.Kind {
	case KindDummy:
	case KindPID:
		if c.ObservesState() {
			return fmt.Errorf("pid needs a scalar output, not %s", OutputState)
		}
	case KindStateFeedback:
		if len(ctrl.K) != 3 {
			return fmt.Errorf("%w: controller.k needs 3 entries, got %d", dynamo.ErrDimensionMismatch, len(ctrl.K))
		}
	case KindLQR:
		if len(ctrl.Q) != 3 {
			return fmt.Errorf("%w: controller.q needs 3 diagonal entries, got %d", dynamo.ErrDimensionMismatch, len(ctrl.Q))
		}
		for _, q := range ctrl.Q {
			if q < 0 {
				return fmt.Errorf("%w: controller.q must be non-negative", dynamo.ErrParameterBounds)
			}
		}
		if ctrl.R <= 0 {
			return fmt.Errorf("%w: controller.r must be positive, got %g", dynamo.ErrParameterBounds, ctrl.R)
		}
	default:
		return fmt.Errorf("unknown controller kind: %s", ctrl.Kind)
	}
	if _, err := ctrl.Reference.Build(); err != nil {
		return fmt.Errorf("controller.reference: %w", err)
	}
	return nil
}

// ObservesState reports whether the run observes the full state vector.
func (c *Config) ObservesState() bool {
	return strings.EqualFold(c.Output, OutputState)
}

func (c *Config) InitialState() dynamo.State {
	return dynamo.State(c.Sim.X0).Clone()
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Sim.X0 = append([]float64(nil), c.Sim.X0...)
	out.Controller.K = append([]float64(nil), c.Controller.K...)
	out.Controller.Q = append([]float64(nil), c.Controller.Q...)
	return &out
}

// Set assigns a tunable value by dotted name, e.g. motor.r, controller.kp
// or sim.dt. It is used by sweeps and scenario overrides.
func (c *Config) Set(name string, value float64) error {
	section, key, ok := strings.Cut(strings.ToLower(name), ".")
	if !ok {
		return fmt.Errorf("parameter %q needs a section prefix (motor, controller, sim)", name)
	}

	switch section {
	case "motor":
		p, err := c.Motor.With(key, value)
		if err != nil {
			return err
		}
		c.Motor = p
	case "controller":
		switch key {
		case "kp":
			c.Controller.Kp = value
		case "ki":
			c.Controller.Ki = value
		case "kd":
			c.Controller.Kd = value
		case "value":
			c.Controller.Value = value
		case "n":
			c.Controller.N = value
		case "r":
			c.Controller.R = value
		case "ref", "reference":
			c.Controller.Reference.Value = value
		default:
			return fmt.Errorf("unknown controller param: %s", key)
		}
	case "sim":
		switch key {
		case "t0":
			c.Sim.T0 = value
		case "tf":
			c.Sim.Tf = value
		case "dt":
			c.Sim.Dt = value
		default:
			return fmt.Errorf("unknown sim param: %s", key)
		}
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
	return nil
}
