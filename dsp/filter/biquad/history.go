package biquad

import "github.com/cwbudde/gait-sonify/dsp/ring"

const historyLen = 3

// History is a Direct Form I biquad whose input and output histories live in
// two independent three-slot ring buffers:
//
//	y[n] = b0*x[n] + b1*x[n-1] + b2*x[n-2] + a1*y[n-1] + a2*y[n-2]
//
// Note that a1 and a2 are added, not subtracted.
type History struct {
	b0, b1, b2 float64
	a1, a2     float64

	ff *ring.History[float64]
	fb *ring.History[float64]
}

// NewHistory returns a History filter with zeroed state.
func NewHistory(b0, b1, b2, a1, a2 float64) *History {
	h := &History{
		ff: ring.New(historyLen, 0.0),
		fb: ring.New(historyLen, 0.0),
	}
	h.SetCoefficients(b0, b1, b2, a1, a2)

	return h
}

// FromCoefficients builds a History filter from Direct Form II Transposed
// coefficients by negating the feedback terms.
func FromCoefficients(c Coefficients) *History {
	return NewHistory(c.B0, c.B1, c.B2, -c.A1, -c.A2)
}

// SetCoefficients replaces the coefficients and keeps the filter state.
func (h *History) SetCoefficients(b0, b1, b2, a1, a2 float64) {
	h.b0, h.b1, h.b2 = b0, b1, b2
	h.a1, h.a2 = a1, a2
}

// Coefficients returns the equivalent Direct Form II Transposed coefficients.
func (h *History) Coefficients() Coefficients {
	return Coefficients{B0: h.b0, B1: h.b1, B2: h.b2, A1: -h.a1, A2: -h.a2}
}

// ProcessSample filters one input sample and returns the output.
func (h *History) ProcessSample(x float64) float64 {
	y := h.b0*x +
		h.b1*h.ff.Current() +
		h.b2*h.ff.Previous(1) +
		h.a1*h.fb.Current() +
		h.a2*h.fb.Previous(1)

	h.ff.Write(x)
	h.fb.Write(y)

	return y
}

// ProcessBlock filters buf in place.
func (h *History) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = h.ProcessSample(x)
	}
}

// Reset clears both histories to zero.
func (h *History) Reset() {
	h.ff.Clear()
	h.fb.Clear()
}
