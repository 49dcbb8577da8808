// Package dynamo provides the closed-loop simulation primitives.
//
// A run couples three pieces through narrow interfaces:
//
//   - [Plant]: linear system dX/dt = f(X, u) with an output projection y = C·X
//   - [Controller]: maps an observation and time to a scalar control signal
//   - [Integrator]: advances the state by one fixed step
//
// [Simulator] walks the half-open time grid arange(t0, tf, dt), asks the
// plant for the observation, asks the controller for the signal, holds the
// signal over the step and integrates. Every grid point is recorded into a
// [Trace].
//
// # Example
//
//	motor, _ := physics.NewDCMotor(physics.DefaultMotorParams())
//	pid, _ := control.NewPID(control.PIDConfig{Kp: 100, Dt: 1e-3, Reference: control.Constant(1)})
//	sim := dynamo.New(motor, integrators.NewRK2(), pid)
//	trace, err := sim.Run(ctx, dynamo.State{1, 0, 0}, cfg)
//
// # Errors
//
// A failed run returns no trace. Errors raised while stepping are wrapped in
// [*SimulationError], which carries the step index and unwraps to one of the
// package sentinels.
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe and controllers carry state. For
// parallel runs build one simulator per run and use [RunAll].
package dynamo
