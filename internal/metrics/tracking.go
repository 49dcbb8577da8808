package metrics

import (
	"math"

	"github.com/san-kum/motorlab/internal/dynamo"
)

// Projection picks the scalar compared with the reference from an output
// vector.
type Projection func(y dynamo.State) float64

// FirstOutput is the default projection.
func FirstOutput(y dynamo.State) float64 { return y[0] }

// IAE is the integral of |r(t) - y(t)| over the run, with a zero-order
// hold between samples.
type IAE struct {
	name      string
	reference func(t float64) float64
	project   Projection
	penalty   func(e float64) float64
	sum       float64
	lastErr   float64
	lastTime  float64
	samples   int
}

// NewIAE tracks reference against project(output). A nil project uses the
// first output component.
func NewIAE(reference func(t float64) float64, project Projection) *IAE {
	return newTracking("iae", reference, project, math.Abs)
}

func newTracking(name string, reference func(t float64) float64, project Projection, penalty func(float64) float64) *IAE {
	if project == nil {
		project = FirstOutput
	}
	return &IAE{name: name, reference: reference, project: project, penalty: penalty}
}

func (m *IAE) Name() string { return m.name }

func (m *IAE) Observe(s dynamo.Sample) {
	if len(s.Output) == 0 {
		return
	}
	if m.samples > 0 {
		m.sum += m.lastErr * (s.Time - m.lastTime)
	}
	m.lastErr = m.penalty(m.reference(s.Time) - m.project(s.Output))
	m.lastTime = s.Time
	m.samples++
}

func (m *IAE) Value() float64 { return m.sum }

func (m *IAE) Reset() {
	m.sum = 0
	m.lastErr = 0
	m.lastTime = 0
	m.samples = 0
}

// ISE is the integral of the squared tracking error.
type ISE struct {
	*IAE
}

func NewISE(reference func(t float64) float64, project Projection) *ISE {
	return &ISE{newTracking("ise", reference, project, func(e float64) float64 { return e * e })}
}
