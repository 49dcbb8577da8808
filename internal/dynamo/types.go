package dynamo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// AddScaled returns s + k·other. other must have the same length as s.
func (s State) AddScaled(other State, k float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] + k*other[i]
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Vec views s as a gonum column vector without copying.
func (s State) Vec() *mat.VecDense {
	return mat.NewVecDense(len(s), s)
}

type Control []float64

// InputFunc is a control input as a function of time.
type InputFunc func(t float64) Control

// Hold returns a zero-order hold of u: the same input at every t.
func Hold(u Control) InputFunc {
	return func(float64) Control { return u }
}

type System interface {
	Derive(x State, u Control, t float64) (State, error)
	StateDim() int
	ControlDim() int
}

// Plant is a System whose state can be projected onto an observation.
type Plant interface {
	System
	Output(x State, c mat.Matrix) (State, error)
}

type Integrator interface {
	Step(sys System, x State, u InputFunc, t, dt float64) (State, error)
}

// Observation selects what a controller is shown each step.
type Observation int

const (
	// ObserveOutput passes the projected output C·x.
	ObserveOutput Observation = iota
	// ObserveState passes the full state vector.
	ObserveState
)

func (o Observation) String() string {
	if o == ObserveState {
		return "state"
	}
	return "output"
}

type Controller interface {
	Compute(obs State, t float64) (float64, error)
	Observes() Observation
}

// Resetter is implemented by controllers that carry accumulated state.
type Resetter interface {
	Reset()
}

// Sample is one recorded grid point.
type Sample struct {
	Step    int
	Time    float64
	State   State
	Output  State
	Control float64
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Phase is the lifecycle position of a Simulator.
type Phase int

const (
	NotStarted Phase = iota
	Running
	Completed
	Aborted
	// Stopped means a callback ended the run before the grid was exhausted.
	Stopped
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	case Stopped:
		return "stopped"
	default:
		return "not-started"
	}
}

type Config struct {
	T0 float64
	Tf float64
	Dt float64
	// C projects the state onto the output. Nil selects the whole state.
	C             mat.Matrix
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		T0:            0,
		Tf:            10.0,
		Dt:            0.001,
		ValidateState: true,
	}
}

// TimeGrid returns arange(t0, tf, dt): t0 + i·dt for every i with t < tf.
func TimeGrid(t0, tf, dt float64) []float64 {
	if dt <= 0 || tf <= t0 {
		return nil
	}
	n := int(math.Ceil((tf - t0) / dt))
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = t0 + float64(i)*dt
	}
	return grid
}
