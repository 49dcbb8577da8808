package integrators

import "github.com/san-kum/motorlab/internal/dynamo"

// RK2 is the explicit midpoint method. The input is evaluated at t for the
// first slope and again at t+dt/2 for the midpoint slope.
type RK2 struct{}

func NewRK2() *RK2 {
	return &RK2{}
}

func (r *RK2) Step(sys dynamo.System, x dynamo.State, u dynamo.InputFunc, t, dt float64) (dynamo.State, error) {
	k1, err := sys.Derive(x, u(t), t)
	if err != nil {
		return nil, err
	}
	if len(k1) != len(x) {
		return nil, dynamo.ErrDimensionMismatch
	}

	half := dt * 0.5
	k2, err := sys.Derive(x.AddScaled(k1, half), u(t+half), t+half)
	if err != nil {
		return nil, err
	}
	if len(k2) != len(x) {
		return nil, dynamo.ErrDimensionMismatch
	}

	return x.AddScaled(k2, dt), nil
}
