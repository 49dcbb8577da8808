package dynamo

import (
	"context"
	"fmt"
)

type Simulator struct {
	plant      Plant
	integrator Integrator
	controller Controller
	metrics    []Metric
	observers  []Observer
	phase      Phase
}

func New(plant Plant, integrator Integrator, controller Controller) *Simulator {
	return &Simulator{
		plant:      plant,
		integrator: integrator,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Phase() Phase { return s.phase }

// Run simulates over arange(cfg.T0, cfg.Tf, cfg.Dt). A failed run returns a
// nil trace; the partial record is discarded.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Trace, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}

	grid := TimeGrid(cfg.T0, cfg.Tf, cfg.Dt)
	trace := newTrace(len(grid))

	err := s.loop(ctx, x0, cfg, grid, func(smp Sample) bool {
		trace.append(smp)
		return true
	})
	if err != nil {
		return nil, err
	}

	for _, m := range s.metrics {
		trace.Metrics[m.Name()] = m.Value()
	}
	return trace, nil
}

// RunWithCallback streams every sample to callback instead of recording a
// trace. Returning false from callback stops the run without error.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 State, cfg Config, callback func(Sample) bool) error {
	if err := s.validate(x0, cfg); err != nil {
		return err
	}
	return s.loop(ctx, x0, cfg, TimeGrid(cfg.T0, cfg.Tf, cfg.Dt), callback)
}

func (s *Simulator) loop(ctx context.Context, x0 State, cfg Config, grid []float64, emit func(Sample) bool) error {
	st := s.start(x0, cfg, grid)

	for !st.Done() {
		select {
		case <-ctx.Done():
			return s.abort(st.i, st.Time(), st.x, ctx.Err())
		default:
		}

		smp, err := st.sample()
		if err != nil {
			return err
		}
		if !emit(smp) {
			s.phase = Stopped
			return nil
		}
		if err := st.advance(smp.Control); err != nil {
			return err
		}
	}

	s.phase = Completed
	return nil
}

func (s *Simulator) abort(step int, t float64, x State, err error) error {
	s.phase = Aborted
	return &SimulationError{Step: step, Time: t, State: x.Clone(), Wrapped: err}
}

func (s *Simulator) validate(x0 State, cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrParameterBounds, cfg.Dt)
	}
	if cfg.Tf <= cfg.T0 {
		return fmt.Errorf("%w: end time %g must exceed start time %g", ErrParameterBounds, cfg.Tf, cfg.T0)
	}
	if len(x0) != s.plant.StateDim() {
		return fmt.Errorf("%w: initial state has %d entries, plant has %d", ErrDimensionMismatch, len(x0), s.plant.StateDim())
	}
	return nil
}
