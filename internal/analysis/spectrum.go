package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Spectrum is the one-sided amplitude spectrum of a real series.
type Spectrum struct {
	Freqs []float64 // Hz
	Power []float64 // |X(f)|², mean removed
}

// PowerSpectrum transforms series sampled every dt seconds. The mean is
// removed first so a settled offset does not dominate bin 0.
func PowerSpectrum(series []float64, dt float64) (*Spectrum, error) {
	n := len(series)
	if n < 2 {
		return nil, fmt.Errorf("power spectrum needs at least two samples, got %d", n)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("sample period must be positive, got %g", dt)
	}

	centred := make([]float64, n)
	copy(centred, series)
	floats.AddConst(-floats.Sum(series)/float64(n), centred)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, centred)

	spec := &Spectrum{
		Freqs: make([]float64, len(coeffs)),
		Power: make([]float64, len(coeffs)),
	}
	for i, c := range coeffs {
		spec.Freqs[i] = fft.Freq(i) / dt
		a := cmplx.Abs(c)
		spec.Power[i] = a * a
	}
	return spec, nil
}

// DominantFrequency returns the non-DC frequency with the most power and
// that power. A series with no variation reports 0, 0.
func DominantFrequency(series []float64, dt float64) (freq, power float64, err error) {
	spec, err := PowerSpectrum(series, dt)
	if err != nil {
		return 0, 0, err
	}
	if len(spec.Power) < 2 {
		return 0, 0, nil
	}
	idx := floats.MaxIdx(spec.Power[1:]) + 1
	if spec.Power[idx] == 0 {
		return 0, 0, nil
	}
	return spec.Freqs[idx], spec.Power[idx], nil
}

// Oscillates reports whether more than minFraction of the spectral power
// outside DC sits in a single bin.
func Oscillates(series []float64, dt, minFraction float64) (bool, error) {
	spec, err := PowerSpectrum(series, dt)
	if err != nil {
		return false, err
	}
	total := floats.Sum(spec.Power[1:])
	if total == 0 || math.IsNaN(total) {
		return false, nil
	}
	return floats.Max(spec.Power[1:])/total > minFraction, nil
}
