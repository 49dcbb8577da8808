// Package control provides the controller strategies for the motor loop.
//
// Every controller implements [dynamo.Controller]: it maps one observation
// and the current time to a scalar control signal, and declares through
// Observes whether it wants the projected output or the full state.
//
//   - [Dummy]: constant signal for open-loop baselines
//   - [PID]: discrete PID on a scalar output
//   - [StateFeedback]: u = N·r - K·x on the full state
//   - [Filtered]: moving-average smoothing in front of another controller
//
// Gains for [StateFeedback] come from [LQR] (Riccati solution via the
// matrix sign function) and [FeedforwardGain].
//
// # Usage
//
//	pid, err := control.NewPID(control.PIDConfig{Kp: 100, Dt: 1e-3, Reference: control.Constant(1)})
//	sim := dynamo.New(motor, integrators.NewRK2(), pid)
//
// Controllers implementing [dynamo.Configurable] support live tuning.
package control
