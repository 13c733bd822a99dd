// Package biquad provides the second-order IIR filter used to denoise the
// gait gyro channel.
//
// [History] is a Direct Form I section backed by two three-slot
// [ring.History] buffers with added feedback terms,
// y = b0*x + b1*x1 + b2*x2 + a1*y1 + a2*y2. [Coefficients] describes the
// same filter in the usual subtracted-feedback form produced by filter
// design routines; [FromCoefficients] converts between the two.
//
// [ring.History]: github.com/cwbudde/gait-sonify/dsp/ring
package biquad
