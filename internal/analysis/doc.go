// Package analysis characterises simulated motor responses.
//
//   - [PowerSpectrum] and [DominantFrequency]: oscillation content of a
//     sampled series
//   - [Poles] and [ClosedLoopPoles]: eigenvalues of the open and closed loop
//   - [PhasePortrait]: two state components plotted against each other
//
// # Stability
//
// For a linear plant the largest real part of the closed-loop poles plays
// the role of the largest Lyapunov exponent:
//
//	poles, _ := analysis.ClosedLoopPoles(motor.A, motor.B, k)
//	if analysis.SpectralAbscissa(poles) < 0 {
//	    // every trajectory decays
//	}
package analysis
