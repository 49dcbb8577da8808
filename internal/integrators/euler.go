package integrators

import "github.com/san-kum/motorlab/internal/dynamo"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, u dynamo.InputFunc, t, dt float64) (dynamo.State, error) {
	dx, err := sys.Derive(x, u(t), t)
	if err != nil {
		return nil, err
	}
	if len(dx) != len(x) {
		return nil, dynamo.ErrDimensionMismatch
	}
	return x.AddScaled(dx, dt), nil
}
