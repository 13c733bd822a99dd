package window

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

var errMismatchedLength = errors.New("samples and coefficients must have same length")

func (t Type) String() string {
	switch t {
	case TypeRectangular:
		return "rectangular"
	case TypeHann:
		return "hann"
	case TypeHamming:
		return "hamming"
	case TypeBlackman:
		return "blackman"
	default:
		return fmt.Sprintf("window(%d)", int(t))
	}
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic generates the DFT-even (periodic) form, suited to spectral
// analysis, instead of the symmetric form.
func WithPeriodic() Option {
	return func(cfg *config) {
		cfg.periodic = true
	}
}

// Generate returns size coefficients of window t. Unknown types and sizes
// below 1 return nil.
func Generate(t Type, size int, opts ...Option) []float64 {
	if size <= 0 {
		return nil
	}

	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, size)
	if size == 1 {
		out[0] = 1
		return out
	}

	denom := float64(size - 1)
	if cfg.periodic {
		denom = float64(size)
	}

	for i := range out {
		x := 2 * math.Pi * float64(i) / denom
		switch t {
		case TypeRectangular:
			out[i] = 1
		case TypeHann:
			out[i] = 0.5 - 0.5*math.Cos(x)
		case TypeHamming:
			out[i] = 0.54 - 0.46*math.Cos(x)
		case TypeBlackman:
			out[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
		default:
			return nil
		}
	}

	return out
}

// Apply multiplies buf in place by window t.
func Apply(t Type, buf []float64, opts ...Option) {
	coeffs := Generate(t, len(buf), opts...)
	if len(coeffs) != len(buf) {
		return
	}

	vecmath.MulBlockInPlace(buf, coeffs)
}

// ApplyInto writes samples*coeffs into dst.
func ApplyInto(dst, samples, coeffs []float64) error {
	if len(samples) != len(coeffs) || len(dst) != len(samples) {
		return errMismatchedLength
	}

	vecmath.MulBlock(dst, samples, coeffs)

	return nil
}

// CoherentGain returns the mean coefficient value, the amplitude scaling a
// windowed sinusoid experiences.
func CoherentGain(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}

	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}

	return sum / float64(len(coeffs))
}
