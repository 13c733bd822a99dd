// Package spectrum provides helpers that operate on complex FFT output:
// power extraction, bin/frequency conversion, and interpolated peak search.
//
// The package does not implement an FFT itself.
package spectrum
