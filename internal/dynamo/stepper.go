package dynamo

// Stepper advances a simulation one grid point at a time. It shares the
// simulator's plant, controller, metrics and observers, so it must not be
// used while a Run on the same simulator is in progress.
type Stepper struct {
	sim  *Simulator
	cfg  Config
	grid []float64
	x    State
	i    int
}

// NewStepper validates the run and resets the controller and metrics.
// The first call to Next returns the sample at cfg.T0.
func (s *Simulator) NewStepper(x0 State, cfg Config) (*Stepper, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}
	return s.start(x0, cfg, TimeGrid(cfg.T0, cfg.Tf, cfg.Dt)), nil
}

func (s *Simulator) start(x0 State, cfg Config, grid []float64) *Stepper {
	s.phase = NotStarted
	for _, m := range s.metrics {
		m.Reset()
	}
	if r, ok := s.controller.(Resetter); ok {
		r.Reset()
	}
	return &Stepper{sim: s, cfg: cfg, grid: grid, x: x0.Clone()}
}

// Done reports whether every grid point has been emitted.
func (st *Stepper) Done() bool { return st.i >= len(st.grid) }

// Step is the index of the next grid point.
func (st *Stepper) Step() int { return st.i }

// Time is the time of the next grid point, or the last one once done.
func (st *Stepper) Time() float64 {
	if len(st.grid) == 0 {
		return st.cfg.T0
	}
	if st.Done() {
		return st.grid[len(st.grid)-1]
	}
	return st.grid[st.i]
}

// State returns a copy of the current state.
func (st *Stepper) State() State { return st.x.Clone() }

// Next emits the sample at the current grid point and integrates to the
// following one. The last point is emitted but not integrated past.
// Once Done, Next returns ErrCompleted.
func (st *Stepper) Next() (Sample, error) {
	if st.Done() {
		return Sample{}, ErrCompleted
	}
	smp, err := st.sample()
	if err != nil {
		return Sample{}, err
	}
	if err := st.advance(smp.Control); err != nil {
		return Sample{}, err
	}
	return smp, nil
}

// sample computes output and control at the current point and feeds
// metrics and observers.
func (st *Stepper) sample() (Sample, error) {
	s := st.sim
	t := st.grid[st.i]
	s.phase = Running

	y, err := s.plant.Output(st.x, st.cfg.C)
	if err != nil {
		return Sample{}, s.abort(st.i, t, st.x, err)
	}

	obs := y
	if s.controller.Observes() == ObserveState {
		obs = st.x.Clone()
	}
	u, err := s.controller.Compute(obs, t)
	if err != nil {
		return Sample{}, s.abort(st.i, t, st.x, err)
	}

	smp := Sample{Step: st.i, Time: t, State: st.x, Output: y, Control: u}
	for _, m := range s.metrics {
		m.Observe(smp)
	}
	for _, o := range s.observers {
		o.OnStep(smp)
	}
	return smp, nil
}

// advance integrates over one step holding u, unless the current point is
// the last one.
func (st *Stepper) advance(u float64) error {
	s := st.sim
	t := st.grid[st.i]
	if st.i == len(st.grid)-1 {
		st.i++
		s.phase = Completed
		return nil
	}

	next, err := s.integrator.Step(s.plant, st.x, Hold(Control{u}), t, st.cfg.Dt)
	if err != nil {
		return s.abort(st.i, t, st.x, err)
	}
	if st.cfg.ValidateState && !next.IsValid() {
		return s.abort(st.i, t, st.x, ErrInvalidState)
	}
	st.x = next
	st.i++
	return nil
}
