package spectrum

import (
	"github.com/cwbudde/algo-vecmath"
)

// Scratch holds reusable split real/imaginary storage for PowerInto.
type Scratch struct {
	re []float64
	im []float64
}

// PowerInto computes |X[k]|^2 for k in [0, len(dst)) into dst. in must hold
// at least len(dst) bins. A nil scratch allocates.
func PowerInto(dst []float64, in []complex128, s *Scratch) {
	n := min(len(dst), len(in))
	if n == 0 {
		return
	}

	if s == nil {
		s = &Scratch{}
	}

	if cap(s.re) < n {
		s.re = make([]float64, n)
		s.im = make([]float64, n)
	}

	re := s.re[:n]
	im := s.im[:n]
	for i, c := range in[:n] {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Power(dst[:n], re, im)
}

// Power returns |X[k]|^2 for every bin.
func Power(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	PowerInto(out, in, nil)

	return out
}

// BinFrequency returns the center frequency of bin k for an FFT of size n.
func BinFrequency(k float64, n int, sampleRate float64) float64 {
	if n <= 0 {
		return 0
	}

	return k * sampleRate / float64(n)
}

// FrequencyBin returns the fractional bin index of freq for an FFT of size n.
func FrequencyBin(freq float64, n int, sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}

	return freq * float64(n) / sampleRate
}

// PeakInRange returns the interpolated position and height of the largest
// value of power in bins [lo, hi]. The position is refined with a parabola
// through the peak and its neighbours. ok is false for an empty range or an
// all-zero spectrum.
func PeakInRange(power []float64, lo, hi int) (pos, height float64, ok bool) {
	lo = max(lo, 0)
	hi = min(hi, len(power)-1)
	if lo > hi {
		return 0, 0, false
	}

	best := lo
	for k := lo + 1; k <= hi; k++ {
		if power[k] > power[best] {
			best = k
		}
	}

	if power[best] <= 0 {
		return 0, 0, false
	}

	pos = float64(best)
	height = power[best]

	if best == 0 || best == len(power)-1 {
		return pos, height, true
	}

	a := power[best-1]
	b := power[best]
	c := power[best+1]

	denom := a - 2*b + c
	if denom == 0 {
		return pos, height, true
	}

	delta := 0.5 * (a - c) / denom
	if delta < -0.5 || delta > 0.5 {
		return pos, height, true
	}

	return pos + delta, b - 0.25*(a-c)*delta, true
}
