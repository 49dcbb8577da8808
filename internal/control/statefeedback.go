package control

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/motorlab/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type StateFeedbackConfig struct {
	// K is the state gain row, one entry per state.
	K []float64
	// N scales the reference; see FeedforwardGain.
	N         float64
	Reference Signal
}

// StateFeedback is the full-state law u = N·r(t) - K·x.
type StateFeedback struct {
	K         []float64
	N         float64
	Reference Signal
}

func NewStateFeedback(cfg StateFeedbackConfig) (*StateFeedback, error) {
	if len(cfg.K) == 0 {
		return nil, fmt.Errorf("%w: state feedback gain is empty", dynamo.ErrDimensionMismatch)
	}
	ref := cfg.Reference
	if ref == nil {
		ref = Constant(0)
	}
	k := make([]float64, len(cfg.K))
	copy(k, cfg.K)
	return &StateFeedback{K: k, N: cfg.N, Reference: ref}, nil
}

func (s *StateFeedback) Compute(obs dynamo.State, t float64) (float64, error) {
	if len(obs) != len(s.K) {
		return 0, fmt.Errorf("%w: gain has %d entries, state has %d", dynamo.ErrDimensionMismatch, len(s.K), len(obs))
	}
	return s.N*s.Reference(t) - floats.Dot(s.K, obs), nil
}

func (s *StateFeedback) Observes() dynamo.Observation { return dynamo.ObserveState }

func (s *StateFeedback) GetParams() map[string]float64 {
	params := map[string]float64{"n": s.N}
	for i, k := range s.K {
		params["k"+strconv.Itoa(i)] = k
	}
	return params
}

func (s *StateFeedback) SetParam(name string, value float64) error {
	if name == "n" {
		s.N = value
		return nil
	}
	if idx, ok := strings.CutPrefix(name, "k"); ok {
		i, err := strconv.Atoi(idx)
		if err == nil && i >= 0 && i < len(s.K) {
			s.K[i] = value
			return nil
		}
	}
	return fmt.Errorf("unknown param: %s", name)
}

// FeedforwardGain returns N = -1 / (C·(A - B·K)⁻¹·B), the reference scale
// that gives the closed loop unit DC gain from r to y.
func FeedforwardGain(a, b, c, k mat.Matrix) (float64, error) {
	n, na := a.Dims()
	br, bc := b.Dims()
	cr, cc := c.Dims()
	kr, kc := k.Dims()
	if n != na || br != n || cc != n || kc != n || bc != 1 || cr != 1 || kr != 1 {
		return 0, fmt.Errorf("%w: feedforward gain needs A nxn, B nx1, C 1xn, K 1xn", dynamo.ErrDimensionMismatch)
	}

	var bk mat.Dense
	bk.Mul(b, k)
	var closed mat.Dense
	closed.Sub(a, &bk)

	var inv mat.Dense
	if err := inv.Inverse(&closed); err != nil {
		return 0, fmt.Errorf("%w: A-BK: %v", dynamo.ErrSingularMatrix, err)
	}

	var dc mat.Dense
	dc.Product(c, &inv, b)
	g := dc.At(0, 0)
	if g == 0 {
		return 0, fmt.Errorf("%w: closed loop has zero dc gain", dynamo.ErrSingularMatrix)
	}
	return -1 / g, nil
}
