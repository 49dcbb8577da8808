package control

import (
	"fmt"

	"github.com/san-kum/motorlab/internal/dynamo"
)

type PIDConfig struct {
	Kp float64
	Ki float64
	Kd float64
	// Dt is the sample period the integral and derivative terms assume.
	Dt        float64
	Reference Signal
}

// PID is a discrete PID law on a scalar observation:
//
//	e[k] = r(t) - y
//	u    = Kp·e[k] + Ki·Σe·Dt + Kd·(e[k] - e[k-1])/Dt
//
// There is no anti-windup and no output clamping.
type PID struct {
	Kp        float64
	Ki        float64
	Kd        float64
	Dt        float64
	Reference Signal
	sum       float64
	prevErr   float64
}

func NewPID(cfg PIDConfig) (*PID, error) {
	if cfg.Dt == 0 {
		return nil, fmt.Errorf("%w: pid sample period is zero", dynamo.ErrDivisionByZero)
	}
	ref := cfg.Reference
	if ref == nil {
		ref = Constant(0)
	}
	return &PID{
		Kp:        cfg.Kp,
		Ki:        cfg.Ki,
		Kd:        cfg.Kd,
		Dt:        cfg.Dt,
		Reference: ref,
	}, nil
}

func (p *PID) Compute(obs dynamo.State, t float64) (float64, error) {
	if len(obs) != 1 {
		return 0, fmt.Errorf("%w: pid needs a scalar observation, got %d values", dynamo.ErrDimensionMismatch, len(obs))
	}
	if p.Dt == 0 {
		return 0, fmt.Errorf("%w: pid sample period is zero", dynamo.ErrDivisionByZero)
	}

	err := p.Reference(t) - obs[0]
	p.sum += err

	u := p.Kp*err + p.Ki*p.sum*p.Dt + p.Kd*(err-p.prevErr)/p.Dt

	p.prevErr = err
	return u, nil
}

func (p *PID) Observes() dynamo.Observation { return dynamo.ObserveOutput }

// Reset clears the error sum and the previous error sample.
func (p *PID) Reset() {
	p.sum = 0
	p.prevErr = 0
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"kp": p.Kp,
		"ki": p.Ki,
		"kd": p.Kd,
		"dt": p.Dt,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	case "dt":
		if value == 0 {
			return fmt.Errorf("%w: pid sample period is zero", dynamo.ErrDivisionByZero)
		}
		p.Dt = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
