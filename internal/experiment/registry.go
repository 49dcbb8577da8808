package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/motorlab/internal/config"
	"github.com/san-kum/motorlab/internal/control"
	"github.com/san-kum/motorlab/internal/dynamo"
	"github.com/san-kum/motorlab/internal/integrators"
	"github.com/san-kum/motorlab/internal/metrics"
	"github.com/san-kum/motorlab/internal/physics"
	"gonum.org/v1/gonum/mat"
)

// ControllerFactory builds a controller for motor from cfg. c is the
// output matrix, nil when the full state is observed.
type ControllerFactory func(cfg *config.Config, motor *physics.DCMotor, c mat.Matrix) (dynamo.Controller, error)

type Registry struct {
	integrators map[string]func() dynamo.Integrator
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		controllers: make(map[string]ControllerFactory),
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk2"] = func() dynamo.Integrator { return integrators.NewRK2() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }

	r.controllers[config.KindDummy] = func(cfg *config.Config, _ *physics.DCMotor, _ mat.Matrix) (dynamo.Controller, error) {
		return control.NewDummy(cfg.Controller.Value), nil
	}
	r.controllers[config.KindPID] = newPID
	r.controllers[config.KindStateFeedback] = newStateFeedback
	r.controllers[config.KindLQR] = newLQR

	return r
}

// RegisterController adds or replaces a controller kind.
func (r *Registry) RegisterController(kind string, f ControllerFactory) {
	r.controllers[kind] = f
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(cfg *config.Config, motor *physics.DCMotor, c mat.Matrix) (dynamo.Controller, error) {
	fn, ok := r.controllers[cfg.Controller.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", cfg.Controller.Kind)
	}
	ctrl, err := fn(cfg, motor, c)
	if err != nil {
		return nil, fmt.Errorf("%s controller: %w", cfg.Controller.Kind, err)
	}
	if cfg.Controller.Filter > 1 {
		ctrl = control.NewFiltered(ctrl, cfg.Controller.Filter)
	}
	return ctrl, nil
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func (r *Registry) ListControllers() []string {
	return sortedKeys(r.controllers)
}

// StabilityLimits bound |current| [A] and |speed| [rad/s]. The angle winds
// up without limit under speed control and is left unbounded.
var StabilityLimits = [3]float64{
	physics.Current: 1e3,
	physics.Angle:   0,
	physics.Speed:   1e3,
}

// DefaultMetrics returns fresh metric instances for one run. Tracking
// errors compare the reference with physics.Tracked(output).
func (r *Registry) DefaultMetrics(reference control.Signal) []dynamo.Metric {
	return []dynamo.Metric{
		metrics.NewControlEffort(),
		metrics.NewInputEnergy(),
		metrics.NewIAE(reference, physics.Tracked),
		metrics.NewISE(reference, physics.Tracked),
		metrics.NewStability(StabilityLimits[:]...),
	}
}

func newPID(cfg *config.Config, _ *physics.DCMotor, _ mat.Matrix) (dynamo.Controller, error) {
	ref, err := cfg.Controller.Reference.Build()
	if err != nil {
		return nil, err
	}
	return control.NewPID(control.PIDConfig{
		Kp:        cfg.Controller.Kp,
		Ki:        cfg.Controller.Ki,
		Kd:        cfg.Controller.Kd,
		Dt:        cfg.Sim.Dt,
		Reference: ref,
	})
}

func newStateFeedback(cfg *config.Config, motor *physics.DCMotor, c mat.Matrix) (dynamo.Controller, error) {
	k := mat.NewDense(1, len(cfg.Controller.K), append([]float64(nil), cfg.Controller.K...))
	return stateFeedback(cfg, motor, c, k)
}

func newLQR(cfg *config.Config, motor *physics.DCMotor, c mat.Matrix) (dynamo.Controller, error) {
	q := mat.NewDiagDense(len(cfg.Controller.Q), append([]float64(nil), cfg.Controller.Q...))
	r := mat.NewDense(1, 1, []float64{cfg.Controller.R})

	k, err := control.LQR(motor.A, motor.B, q, r)
	if err != nil {
		return nil, err
	}
	return stateFeedback(cfg, motor, c, k)
}

// stateFeedback computes N from the output matrix when the config leaves it
// at zero. With the full state observed the reference is taken to be the
// angle.
func stateFeedback(cfg *config.Config, motor *physics.DCMotor, c mat.Matrix, k *mat.Dense) (dynamo.Controller, error) {
	ref, err := cfg.Controller.Reference.Build()
	if err != nil {
		return nil, err
	}

	n := cfg.Controller.N
	if n == 0 {
		if c == nil {
			if c, err = physics.OutputMatrix("angle"); err != nil {
				return nil, err
			}
		}
		if n, err = control.FeedforwardGain(motor.A, motor.B, c, k); err != nil {
			return nil, err
		}
	}

	return control.NewStateFeedback(control.StateFeedbackConfig{
		K:         mat.Row(nil, 0, k),
		N:         n,
		Reference: ref,
	})
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
