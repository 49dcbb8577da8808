package control

import (
	"fmt"

	"github.com/san-kum/motorlab/internal/dynamo"
)

// Dummy ignores its observation and returns a fixed signal. It drives
// open-loop baselines.
type Dummy struct {
	Value float64
}

func NewDummy(value float64) *Dummy {
	return &Dummy{Value: value}
}

func (d *Dummy) Compute(obs dynamo.State, t float64) (float64, error) {
	return d.Value, nil
}

func (d *Dummy) Observes() dynamo.Observation { return dynamo.ObserveOutput }

func (d *Dummy) GetParams() map[string]float64 {
	return map[string]float64{"value": d.Value}
}

func (d *Dummy) SetParam(name string, value float64) error {
	if name != "value" {
		return fmt.Errorf("unknown param: %s", name)
	}
	d.Value = value
	return nil
}
