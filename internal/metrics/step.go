package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/motorlab/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

// SettlingBand is the relative band around the final value used for
// settling time.
const SettlingBand = 0.02

// StepInfo characterises the response of a series to a step in its
// reference, measured from the first sample.
type StepInfo struct {
	Initial          float64 `json:"initial"`
	Final            float64 `json:"final"`
	Peak             float64 `json:"peak"`
	PeakTime         float64 `json:"peak_time"`
	RiseTime         float64 `json:"rise_time"`     // 10% to 90% of the change, NaN if never reached
	SettlingTime     float64 `json:"settling_time"` // last entry into the 2% band
	Overshoot        float64 `json:"overshoot"`     // percent of the change
	SteadyStateError float64 `json:"steady_state_error"`
}

// StepResponse analyses y over times against the reference value target.
func StepResponse(times, y []float64, target float64) (StepInfo, error) {
	if len(times) != len(y) {
		return StepInfo{}, fmt.Errorf("%w: %d times, %d samples", dynamo.ErrDimensionMismatch, len(times), len(y))
	}
	if len(y) < 2 {
		return StepInfo{}, fmt.Errorf("step response needs at least two samples, got %d", len(y))
	}

	info := StepInfo{
		Initial:          y[0],
		Final:            y[len(y)-1],
		SteadyStateError: target - y[len(y)-1],
	}
	change := info.Final - info.Initial

	// The peak is taken in the direction of the change.
	sign := 1.0
	if change < 0 {
		sign = -1
	}
	directed := make([]float64, len(y))
	floats.ScaleTo(directed, sign, y)
	peakIdx := floats.MaxIdx(directed)
	info.Peak = y[peakIdx]
	info.PeakTime = times[peakIdx]

	if change == 0 {
		info.RiseTime = 0
		info.SettlingTime = 0
		return info, nil
	}

	info.Overshoot = math.Max(0, (info.Peak-info.Final)/change*100)

	lo, hi := math.NaN(), math.NaN()
	for i, v := range y {
		frac := (v - info.Initial) / change
		if math.IsNaN(lo) && frac >= 0.1 {
			lo = times[i]
		}
		if math.IsNaN(hi) && frac >= 0.9 {
			hi = times[i]
			break
		}
	}
	info.RiseTime = hi - lo

	band := SettlingBand * math.Abs(change)
	info.SettlingTime = times[0]
	for i := len(y) - 1; i >= 0; i-- {
		if math.Abs(y[i]-info.Final) > band {
			if i+1 < len(times) {
				info.SettlingTime = times[i+1]
			}
			break
		}
	}
	return info, nil
}

// Summary evaluates the step response of output component 0 of a trace.
func Summary(tr *dynamo.Trace, target float64) (StepInfo, error) {
	return StepResponse(tr.Times, tr.OutputSeries(0), target)
}
