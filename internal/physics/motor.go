package physics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/motorlab/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// State indices of the DC motor model.
const (
	Current = iota
	Angle
	Speed
)

// MotorParams are the physical constants of a brushed DC motor.
type MotorParams struct {
	R  float64 `yaml:"r" json:"r"`   // phase resistance [Ohm]
	L  float64 `yaml:"l" json:"l"`   // phase inductance [H]
	B  float64 `yaml:"b" json:"b"`   // rotational damping [N m s]
	J  float64 `yaml:"j" json:"j"`   // rotor inertia [kg m^2]
	Kv float64 `yaml:"kv" json:"kv"` // back-EMF constant [V s/rad]
	Kt float64 `yaml:"kt" json:"kt"` // torque constant [N m/A]
}

func DefaultMotorParams() MotorParams {
	return MotorParams{
		R:  1.8,
		L:  0.0085,
		B:  4.6,
		J:  6.2,
		Kv: 0.035,
		Kt: 0.032,
	}
}

func (p MotorParams) Validate() error {
	checks := []struct {
		name      string
		value     float64
		allowZero bool
	}{
		{"r", p.R, false},
		{"l", p.L, false},
		{"b", p.B, true},
		{"j", p.J, false},
		{"kv", p.Kv, true},
		{"kt", p.Kt, true},
	}
	for _, c := range checks {
		if c.value < 0 || (c.value == 0 && !c.allowZero) {
			return fmt.Errorf("%w: %s must be positive, got %g", dynamo.ErrParameterBounds, c.name, c.value)
		}
	}
	return nil
}

// Matrices derives the state-space pair for state [current, angle, speed].
func (p MotorParams) Matrices() (a, b *mat.Dense) {
	a = mat.NewDense(3, 3, []float64{
		-p.R / p.L, 0, -p.Kv / p.L,
		0, 0, 1,
		p.Kt / p.J, 0, -p.B / p.J,
	})
	b = mat.NewDense(3, 1, []float64{
		1 / p.L,
		0,
		0,
	})
	return a, b
}

func (p MotorParams) GetParams() map[string]float64 {
	return map[string]float64{
		"r":  p.R,
		"l":  p.L,
		"b":  p.B,
		"j":  p.J,
		"kv": p.Kv,
		"kt": p.Kt,
	}
}

// With returns a copy of p with one named parameter replaced.
func (p MotorParams) With(name string, value float64) (MotorParams, error) {
	switch strings.ToLower(name) {
	case "r":
		p.R = value
	case "l":
		p.L = value
	case "b":
		p.B = value
	case "j":
		p.J = value
	case "kv":
		p.Kv = value
	case "kt":
		p.Kt = value
	default:
		return p, fmt.Errorf("unknown motor param: %s", name)
	}
	return p, nil
}

// DCMotor is the plant model: a StateSpace derived once from MotorParams.
type DCMotor struct {
	*StateSpace
	params MotorParams
}

func NewDCMotor(p MotorParams) (*DCMotor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ss, err := NewStateSpace(p.Matrices())
	if err != nil {
		return nil, err
	}
	return &DCMotor{StateSpace: ss, params: p}, nil
}

func (m *DCMotor) Params() MotorParams { return m.params }

func (m *DCMotor) String() string {
	params := m.params.GetParams()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("System Parameters:\n\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-3s = %g\n", k, params[k])
	}
	sb.WriteString("\nSystem Model:\n\n  x_dot = Ax + Bu\n\n")
	fmt.Fprintf(&sb, "A =\n%v\n\n", mat.Formatted(m.A, mat.Prefix(""), mat.Squeeze()))
	fmt.Fprintf(&sb, "B =\n%v\n", mat.Formatted(m.B, mat.Prefix(""), mat.Squeeze()))
	return sb.String()
}

// OutputMatrix returns the 1x3 selection matrix for a named state.
func OutputMatrix(name string) (*mat.Dense, error) {
	row := make([]float64, 3)
	switch strings.ToLower(name) {
	case "current", "i":
		row[Current] = 1
	case "angle", "theta":
		row[Angle] = 1
	case "speed", "omega":
		row[Speed] = 1
	default:
		return nil, fmt.Errorf("unknown output: %s (want current, angle or speed)", name)
	}
	return mat.NewDense(1, 3, row), nil
}

// Tracked returns the output component that follows the reference: the
// output itself when it is scalar, the angle when the full state is
// observed.
func Tracked(y dynamo.State) float64 {
	switch {
	case len(y) == 0:
		return 0
	case len(y) == 1:
		return y[0]
	case len(y) > Angle:
		return y[Angle]
	}
	return y[0]
}
