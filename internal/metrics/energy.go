package metrics

import (
	"github.com/san-kum/motorlab/internal/dynamo"
	"github.com/san-kum/motorlab/internal/physics"
)

// InputEnergy integrates the electrical power u·i delivered to the motor
// terminals, in joules. Each sample's power is held until the next sample.
type InputEnergy struct {
	name      string
	energy    float64
	lastPower float64
	lastTime  float64
	samples   int
}

func NewInputEnergy() *InputEnergy {
	return &InputEnergy{name: "input_energy"}
}

func (e *InputEnergy) Name() string { return e.name }

func (e *InputEnergy) Observe(s dynamo.Sample) {
	if len(s.State) <= physics.Current {
		return
	}
	if e.samples > 0 {
		e.energy += e.lastPower * (s.Time - e.lastTime)
	}
	e.lastPower = s.Control * s.State[physics.Current]
	e.lastTime = s.Time
	e.samples++
}

func (e *InputEnergy) Value() float64 {
	return e.energy
}

func (e *InputEnergy) Reset() {
	e.energy = 0
	e.lastPower = 0
	e.lastTime = 0
	e.samples = 0
}
