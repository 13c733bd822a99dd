package core

import "math"

const defaultEpsilon = 1e-12

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Modulo returns a mod n with a result in [0, n), matching MATLAB's mod for
// negative a. n must be > 0.
func Modulo(a float64, n int) float64 {
	fn := float64(n)
	return math.Mod(fn+math.Mod(a, fn), fn)
}

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}
	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}
	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}
	return diff/largest <= eps
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// This can reduce denormal-related CPU slowdowns in hot DSP loops.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}
	return x
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Sanitize replaces NaN with 0 and clamps infinities and out-of-range values
// to [-limit, limit]. It is applied where samples leave the pipeline.
func Sanitize(x, limit float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return Clamp(x, -limit, limit)
}

// SanitizeBlock applies Sanitize to every sample of buf in place and returns
// the number of non-finite samples that were replaced.
func SanitizeBlock(buf []float64, limit float64) int {
	replaced := 0
	for i, x := range buf {
		if !IsFinite(x) {
			replaced++
		}
		buf[i] = Sanitize(x, limit)
	}
	return replaced
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}
	if linear == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(linear)
}
