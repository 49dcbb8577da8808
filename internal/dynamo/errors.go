package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrDimensionMismatch indicates a state, input or matrix shape incompatibility.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrDivisionByZero indicates a zero time step in a controller derivative term.
	ErrDivisionByZero = errors.New("dynamo: division by zero")

	// ErrSingularMatrix indicates a matrix that had to be inverted is singular.
	ErrSingularMatrix = errors.New("dynamo: singular matrix")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrCompleted is returned when stepping a run whose grid is exhausted.
	ErrCompleted = errors.New("dynamo: simulation already completed")
)

// SimulationError wraps an error with the step at which a run aborted.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
