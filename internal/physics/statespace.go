package physics

import (
	"fmt"

	"github.com/san-kum/motorlab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// StateSpace is a linear time-invariant system
//
//	dx/dt = A*x + B*u
//
// A and B are read-only once constructed.
type StateSpace struct {
	A *mat.Dense
	B *mat.Dense
}

// NewStateSpace checks that A is square and B has one row per state.
// B may be nil for an unforced system.
func NewStateSpace(a, b *mat.Dense) (*StateSpace, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: system matrix must be defined", dynamo.ErrDimensionMismatch)
	}
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: A is %dx%d, want square", dynamo.ErrDimensionMismatch, r, c)
	}
	if b != nil {
		if br, _ := b.Dims(); br != r {
			return nil, fmt.Errorf("%w: B has %d rows, A has %d", dynamo.ErrDimensionMismatch, br, r)
		}
	}
	return &StateSpace{A: a, B: b}, nil
}

func (ss *StateSpace) StateDim() int {
	n, _ := ss.A.Dims()
	return n
}

func (ss *StateSpace) ControlDim() int {
	if ss.B == nil {
		return 0
	}
	_, m := ss.B.Dims()
	return m
}

// Derive returns A*x + B*u.
func (ss *StateSpace) Derive(x dynamo.State, u dynamo.Control, t float64) (dynamo.State, error) {
	n, m := ss.StateDim(), ss.ControlDim()
	if len(x) != n {
		return nil, fmt.Errorf("%w: state has %d entries, A has %d columns", dynamo.ErrDimensionMismatch, len(x), n)
	}
	if len(u) != m {
		return nil, fmt.Errorf("%w: input has %d entries, B has %d columns", dynamo.ErrDimensionMismatch, len(u), m)
	}

	out := mat.NewVecDense(n, nil)
	out.MulVec(ss.A, x.Vec())
	if m > 0 {
		bu := mat.NewVecDense(n, nil)
		bu.MulVec(ss.B, mat.NewVecDense(m, u))
		out.AddVec(out, bu)
	}
	return dynamo.State(out.RawVector().Data), nil
}

// Output returns C*x. A nil C observes the whole state.
func (ss *StateSpace) Output(x dynamo.State, c mat.Matrix) (dynamo.State, error) {
	if c == nil {
		return x.Clone(), nil
	}
	r, cols := c.Dims()
	if cols != len(x) {
		return nil, fmt.Errorf("%w: output matrix has %d columns, state has %d entries", dynamo.ErrDimensionMismatch, cols, len(x))
	}
	y := mat.NewVecDense(r, nil)
	y.MulVec(c, x.Vec())
	return dynamo.State(y.RawVector().Data), nil
}
