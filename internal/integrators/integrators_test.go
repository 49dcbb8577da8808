package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/motorlab/internal/dynamo"
)

// decay is x' = -x + u.
type decay struct{}

func (d *decay) StateDim() int   { return 1 }
func (d *decay) ControlDim() int { return 1 }
func (d *decay) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	in := 0.0
	if len(u) > 0 {
		in = u[0]
	}
	return dynamo.State{-x[0] + in}, nil
}

// oscillator is x' = v, v' = -x.
type oscillator struct{}

func (o *oscillator) StateDim() int   { return 2 }
func (o *oscillator) ControlDim() int { return 0 }
func (o *oscillator) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	return dynamo.State{x[1], -x[0]}, nil
}

// inputOnly is x' = u, recording the times its input was sampled at.
type inputOnly struct{}

func (i *inputOnly) StateDim() int   { return 1 }
func (i *inputOnly) ControlDim() int { return 1 }
func (i *inputOnly) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	return dynamo.State{u[0]}, nil
}

type wrongDim struct{}

func (w *wrongDim) StateDim() int   { return 2 }
func (w *wrongDim) ControlDim() int { return 0 }
func (w *wrongDim) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	return dynamo.State{0}, nil
}

var zeroInput = dynamo.Hold(dynamo.Control{0})

func TestRK2LocalError(t *testing.T) {
	integ := NewRK2()
	localErr := func(h float64) float64 {
		x, err := integ.Step(&decay{}, dynamo.State{1}, zeroInput, 0, h)
		if err != nil {
			t.Fatalf("step failed: %v", err)
		}
		return math.Abs(x[0] - math.Exp(-h))
	}

	for _, h := range []float64{0.1, 0.01, 0.001} {
		e := localErr(h)
		if e > 1.1*h*h*h/6 {
			t.Errorf("h=%g: local error %e exceeds h^3/6", h, e)
		}
	}

	ratio := localErr(0.1) / localErr(0.05)
	if ratio < 7.5 || ratio > 8.5 {
		t.Errorf("halving h should cut the local error ~8x, got %.3f", ratio)
	}
}

func TestRK2MidpointInput(t *testing.T) {
	var sampled []float64
	ramp := func(t float64) dynamo.Control {
		sampled = append(sampled, t)
		return dynamo.Control{t}
	}

	h := 0.2
	x, err := NewRK2().Step(&inputOnly{}, dynamo.State{0}, ramp, 1.0, h)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}

	if len(sampled) != 2 || sampled[0] != 1.0 || math.Abs(sampled[1]-1.1) > 1e-12 {
		t.Fatalf("expected input sampled at t and t+h/2, got %v", sampled)
	}

	// integral of t from 1.0 to 1.2
	expected := (1.2*1.2 - 1.0*1.0) / 2
	if math.Abs(x[0]-expected) > 1e-12 {
		t.Errorf("expected %.6f, got %.6f", expected, x[0])
	}
}

func TestRK2DoesNotMutateInput(t *testing.T) {
	x0 := dynamo.State{1.0, 0.0}
	if _, err := NewRK2().Step(&oscillator{}, x0, zeroInput, 0, 0.1); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if x0[0] != 1.0 || x0[1] != 0.0 {
		t.Errorf("input state mutated: %v", x0)
	}
}

func TestDimensionMismatch(t *testing.T) {
	tests := []struct {
		name  string
		integ dynamo.Integrator
	}{
		{"euler", NewEuler()},
		{"rk2", NewRK2()},
		{"rk4", NewRK4()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.integ.Step(&wrongDim{}, dynamo.State{1, 1}, zeroInput, 0, 0.1)
			if !errors.Is(err, dynamo.ErrDimensionMismatch) {
				t.Errorf("expected ErrDimensionMismatch, got %v", err)
			}
		})
	}
}

func TestOscillatorAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		integ dynamo.Integrator
		tol   float64
	}{
		{"euler", NewEuler(), 1e-2},
		{"rk2", NewRK2(), 1e-4},
		{"rk4", NewRK4(), 1e-8},
	}

	dt := 0.001
	steps := 1000

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := dynamo.State{1.0, 0.0}
			var err error
			for i := 0; i < steps; i++ {
				x, err = tt.integ.Step(&oscillator{}, x, zeroInput, float64(i)*dt, dt)
				if err != nil {
					t.Fatalf("step %d failed: %v", i, err)
				}
			}

			expectedX := math.Cos(float64(steps) * dt)
			expectedV := -math.Sin(float64(steps) * dt)

			if math.Abs(x[0]-expectedX) > tt.tol {
				t.Errorf("position error too large: got %.8f, expected %.8f", x[0], expectedX)
			}
			if math.Abs(x[1]-expectedV) > tt.tol {
				t.Errorf("velocity error too large: got %.8f, expected %.8f", x[1], expectedV)
			}
		})
	}
}

func BenchmarkRK2(b *testing.B) {
	integ := NewRK2()
	dyn := &oscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = integ.Step(dyn, x, zeroInput, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integ := NewRK4()
	dyn := &oscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _ = integ.Step(dyn, x, zeroInput, 0, 0.01)
	}
}
