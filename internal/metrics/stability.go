package metrics

import (
	"math"

	"github.com/san-kum/motorlab/internal/dynamo"
)

// Stability is the fraction of samples whose state stays inside per-component
// bounds. limits[i] bounds |x[i]|; a zero limit, or a component past the end
// of limits, is only required to be finite.
type Stability struct {
	name       string
	limits     []float64
	violations int
	samples    int
}

func NewStability(limits ...float64) *Stability {
	return &Stability{
		name:   "stability",
		limits: append([]float64(nil), limits...),
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(smp dynamo.Sample) {
	s.samples++
	if !s.within(smp.State) {
		s.violations++
	}
}

func (s *Stability) within(x dynamo.State) bool {
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		if i < len(s.limits) && s.limits[i] > 0 && math.Abs(v) > s.limits[i] {
			return false
		}
	}
	return true
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
