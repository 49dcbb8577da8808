package control

import (
	"fmt"

	"github.com/san-kum/motorlab/internal/dynamo"
)

// AverageFilter is a moving average over the last Size samples, starting
// from a window of zeros.
type AverageFilter struct {
	data []float64
}

func NewAverageFilter(size int) *AverageFilter {
	if size < 1 {
		size = 1
	}
	return &AverageFilter{data: make([]float64, size)}
}

// Update shifts v into the window and returns the window mean.
func (f *AverageFilter) Update(v float64) float64 {
	total := 0.0
	last := len(f.data) - 1
	for i := range f.data {
		if i < last {
			f.data[i] = f.data[i+1]
		} else {
			f.data[i] = v
		}
		total += f.data[i]
	}
	return total / float64(len(f.data))
}

func (f *AverageFilter) Reset() {
	for i := range f.data {
		f.data[i] = 0
	}
}

// Filtered smooths every observation component before handing it to Inner.
type Filtered struct {
	Inner   dynamo.Controller
	size    int
	filters []*AverageFilter
}

func NewFiltered(inner dynamo.Controller, window int) *Filtered {
	return &Filtered{Inner: inner, size: window}
}

func (f *Filtered) Compute(obs dynamo.State, t float64) (float64, error) {
	if len(f.filters) != len(obs) {
		f.filters = make([]*AverageFilter, len(obs))
		for i := range f.filters {
			f.filters[i] = NewAverageFilter(f.size)
		}
	}
	smoothed := make(dynamo.State, len(obs))
	for i, v := range obs {
		smoothed[i] = f.filters[i].Update(v)
	}
	return f.Inner.Compute(smoothed, t)
}

func (f *Filtered) Observes() dynamo.Observation { return f.Inner.Observes() }

func (f *Filtered) Reset() {
	for _, flt := range f.filters {
		flt.Reset()
	}
	if r, ok := f.Inner.(dynamo.Resetter); ok {
		r.Reset()
	}
}

// GetParams exposes the wrapped controller's tunables.
func (f *Filtered) GetParams() map[string]float64 {
	if c, ok := f.Inner.(dynamo.Configurable); ok {
		return c.GetParams()
	}
	return map[string]float64{}
}

func (f *Filtered) SetParam(name string, value float64) error {
	if c, ok := f.Inner.(dynamo.Configurable); ok {
		return c.SetParam(name, value)
	}
	return fmt.Errorf("unknown param: %s", name)
}
