// Package gait detects gait events in a stream of trunk IMU samples and
// derives per-stride metrics from them.
//
// A [Detector] consumes one [ImuSample] per fixed sample period. It tracks
// the jerk (derivative of vertical acceleration) and runs a three-phase
// state machine:
//
//	Unknown -> StanceReversal -> SwingReversal -> Unknown
//
// The stance entry test also runs during SwingReversal, so a swing whose
// initial contact was missed re-arms StanceReversal without an event.
//
// A toe-off fires from StanceReversal on a local jerk maximum; an initial
// contact fires from SwingReversal on a steep jerk drop. The foot of a
// toe-off comes from the sign of the low-pass filtered gyro signal. Each
// toe-off closes the preceding initial contact into a [GroundContact].
//
// [Detector.GroundContactInfo] and [Detector.Cadence] summarize the most
// recent strides. The detector is not safe for concurrent use; hand its
// metrics to other goroutines through smooth.Parameter.
package gait
