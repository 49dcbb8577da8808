package control

import (
	"fmt"
	"math"
	"strings"
)

// Signal is a scalar function of time, used for references and open-loop inputs.
type Signal func(t float64) float64

func Constant(v float64) Signal {
	return func(float64) float64 { return v }
}

// Step is from before at and to from at onwards.
func Step(at, from, to float64) Signal {
	return func(t float64) float64 {
		if t < at {
			return from
		}
		return to
	}
}

func Ramp(slope, start float64) Signal {
	return func(t float64) float64 {
		if t < start {
			return 0
		}
		return slope * (t - start)
	}
}

func Sine(amplitude, freqHz, offset float64) Signal {
	w := 2 * math.Pi * freqHz
	return func(t float64) float64 {
		return offset + amplitude*math.Sin(w*t)
	}
}

// SignalSpec is the serialisable description of a Signal.
type SignalSpec struct {
	Kind      string  `yaml:"kind" json:"kind"`
	Value     float64 `yaml:"value" json:"value"`
	From      float64 `yaml:"from,omitempty" json:"from,omitempty"`
	At        float64 `yaml:"at,omitempty" json:"at,omitempty"`
	Amplitude float64 `yaml:"amplitude,omitempty" json:"amplitude,omitempty"`
	Frequency float64 `yaml:"frequency,omitempty" json:"frequency,omitempty"`
}

func (s SignalSpec) Build() (Signal, error) {
	switch strings.ToLower(s.Kind) {
	case "", "constant":
		return Constant(s.Value), nil
	case "step":
		return Step(s.At, s.From, s.Value), nil
	case "ramp":
		return Ramp(s.Value, s.At), nil
	case "sine":
		if s.Frequency < 0 {
			return nil, fmt.Errorf("sine frequency must not be negative, got %g", s.Frequency)
		}
		return Sine(s.Amplitude, s.Frequency, s.Value), nil
	default:
		return nil, fmt.Errorf("unknown signal kind: %s", s.Kind)
	}
}

func (s SignalSpec) String() string {
	switch strings.ToLower(s.Kind) {
	case "step":
		return fmt.Sprintf("step(%g->%g @%gs)", s.From, s.Value, s.At)
	case "ramp":
		return fmt.Sprintf("ramp(%g/s @%gs)", s.Value, s.At)
	case "sine":
		return fmt.Sprintf("sine(%g+%g·sin(2π·%gt))", s.Value, s.Amplitude, s.Frequency)
	default:
		return fmt.Sprintf("%g", s.Value)
	}
}
