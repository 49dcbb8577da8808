// Package physics provides plant models for the closed-loop simulator.
//
// [StateSpace] is a generic linear system dX/dt = A·X + B·u implementing
// [dynamo.Plant]. [DCMotor] derives A and B from [MotorParams] with the
// state ordered as [current, angle, speed]:
//
//	A = | -R/L   0  -Kv/L |      B = | 1/L |
//	    |   0    0    1   |          |  0  |
//	    | Kt/J   0  -B/J  |          |  0  |
//
// Outputs are linear projections y = C·X; [OutputMatrix] builds the usual
// single-state selections.
package physics
