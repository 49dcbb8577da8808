package physics

import (
	"testing"

	"github.com/san-kum/motorlab/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestDCMotorZeroEquilibrium(t *testing.T) {
	assert := assert.New(t)

	params := []MotorParams{
		DefaultMotorParams(),
		{R: 0.5, L: 1e-3, B: 0, J: 1e-4, Kv: 0.01, Kt: 0.01},
		{R: 12, L: 2, B: 0.1, J: 3, Kv: 0, Kt: 0},
	}

	for _, p := range params {
		m, err := NewDCMotor(p)
		require.NoError(t, err)

		dx, err := m.Derive(dynamo.State{0, 0, 0}, dynamo.Control{0}, 0)
		assert.NoError(err)
		assert.Equal(dynamo.State{0, 0, 0}, dx)
	}
}

func TestDCMotorMatrices(t *testing.T) {
	assert := assert.New(t)

	p := DefaultMotorParams()
	m, err := NewDCMotor(p)
	require.NoError(t, err)

	assert.Equal(-p.R/p.L, m.A.At(0, 0))
	assert.Equal(-p.Kv/p.L, m.A.At(0, 2))
	assert.Equal(1.0, m.A.At(1, 2))
	assert.Equal(p.Kt/p.J, m.A.At(2, 0))
	assert.Equal(-p.B/p.J, m.A.At(2, 2))
	assert.Equal(1/p.L, m.B.At(0, 0))
	assert.Equal(0.0, m.B.At(1, 0))

	a2, b2 := p.Matrices()
	assert.True(mat.Equal(m.A, a2))
	assert.True(mat.Equal(m.B, b2))
}

func TestDCMotorDerive(t *testing.T) {
	assert := assert.New(t)

	p := DefaultMotorParams()
	m, err := NewDCMotor(p)
	require.NoError(t, err)

	x := dynamo.State{1, 0.5, 2}
	u := 3.0
	dx, err := m.Derive(x, dynamo.Control{u}, 0)
	require.NoError(t, err)

	assert.InDelta((-p.R*x[0]-p.Kv*x[2]+u)/p.L, dx[Current], 1e-9)
	assert.InDelta(x[2], dx[Angle], 1e-12)
	assert.InDelta((p.Kt*x[0]-p.B*x[2])/p.J, dx[Speed], 1e-12)

	assert.Equal(dynamo.State{1, 0.5, 2}, x, "derive must not mutate its input")
}

func TestDCMotorDimensionMismatch(t *testing.T) {
	assert := assert.New(t)

	m, err := NewDCMotor(DefaultMotorParams())
	require.NoError(t, err)

	_, err = m.Derive(dynamo.State{1, 0}, dynamo.Control{0}, 0)
	assert.ErrorIs(err, dynamo.ErrDimensionMismatch)

	_, err = m.Derive(dynamo.State{1, 0, 0}, dynamo.Control{0, 1}, 0)
	assert.ErrorIs(err, dynamo.ErrDimensionMismatch)

	_, err = m.Output(dynamo.State{1, 0, 0}, mat.NewDense(1, 2, []float64{1, 0}))
	assert.ErrorIs(err, dynamo.ErrDimensionMismatch)
}

func TestDCMotorOutput(t *testing.T) {
	assert := assert.New(t)

	m, err := NewDCMotor(DefaultMotorParams())
	require.NoError(t, err)

	x := dynamo.State{1, 2, 3}
	for name, want := range map[string]float64{"current": 1, "angle": 2, "speed": 3} {
		c, err := OutputMatrix(name)
		require.NoError(t, err)

		y, err := m.Output(x, c)
		assert.NoError(err)
		assert.Equal(dynamo.State{want}, y, name)
	}

	y, err := m.Output(x, nil)
	assert.NoError(err)
	assert.Equal(x, y)

	y[0] = 99
	assert.Equal(1.0, x[0], "nil projection must copy the state")

	_, err = OutputMatrix("torque")
	assert.Error(err)
}

func TestMotorParamsValidate(t *testing.T) {
	tests := []struct {
		name  string
		param string
		value float64
		ok    bool
	}{
		{"zero resistance", "r", 0, false},
		{"negative inductance", "l", -1, false},
		{"zero inertia", "j", 0, false},
		{"zero damping", "b", 0, true},
		{"negative damping", "b", -0.1, false},
		{"zero back emf", "kv", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DefaultMotorParams().With(tt.param, tt.value)
			require.NoError(t, err)

			_, err = NewDCMotor(p)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, dynamo.ErrParameterBounds)
			}
		})
	}

	_, err := DefaultMotorParams().With("poles", 4)
	assert.Error(t, err)
}

func TestDCMotorString(t *testing.T) {
	m, err := NewDCMotor(DefaultMotorParams())
	require.NoError(t, err)

	s := m.String()
	assert.Contains(t, s, "System Parameters")
	assert.Contains(t, s, "x_dot = Ax + Bu")
	assert.Contains(t, s, "kt")
}

func TestNewStateSpace(t *testing.T) {
	assert := assert.New(t)

	_, err := NewStateSpace(mat.NewDense(2, 3, nil), nil)
	assert.ErrorIs(err, dynamo.ErrDimensionMismatch)

	_, err = NewStateSpace(mat.NewDense(2, 2, nil), mat.NewDense(3, 1, nil))
	assert.ErrorIs(err, dynamo.ErrDimensionMismatch)

	ss, err := NewStateSpace(mat.NewDense(1, 1, []float64{-1}), nil)
	require.NoError(t, err)
	assert.Equal(0, ss.ControlDim())

	dx, err := ss.Derive(dynamo.State{2}, nil, 0)
	assert.NoError(err)
	assert.Equal(dynamo.State{-2}, dx)
}

func TestTracked(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(2.0, Tracked(dynamo.State{2}))
	assert.Equal(5.0, Tracked(dynamo.State{4, 5, 6}), "full state tracks the angle")
	assert.Equal(0.0, Tracked(nil))
}
