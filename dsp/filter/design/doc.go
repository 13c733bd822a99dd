// Package design provides RBJ-style biquad coefficient designers producing
// [biquad.Coefficients] for runtime processing in dsp/filter/biquad.
//
// [biquad.Coefficients]: github.com/cwbudde/gait-sonify/dsp/filter/biquad
package design
