package gait

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/gait-sonify/dsp/spectrum"
	"github.com/cwbudde/gait-sonify/dsp/window"
)

const (
	minCadenceSPM      = 60.0
	maxCadenceSPM      = 300.0
	minSpectralSamples = 64
	minSpectralFFTSize = 1024
	spectralPadFactor  = 4
)

// ErrShortHistory is returned when there are too few samples for a
// spectral estimate.
var ErrShortHistory = errors.New("gait: too few samples for spectral cadence")

// SpectralCadence estimates the step rate in steps per minute as the
// dominant frequency of accel between 60 and 300 steps/min. The signal is
// mean-removed, Hann-windowed and zero-padded before the FFT. It returns 0
// when the band holds no energy.
func SpectralCadence(accel []float64, samplePeriodMs float64) (float64, error) {
	if samplePeriodMs <= 0 || math.IsNaN(samplePeriodMs) || math.IsInf(samplePeriodMs, 0) {
		return 0, fmt.Errorf("gait sample period must be > 0 and finite: %f", samplePeriodMs)
	}

	n := len(accel)
	if n < minSpectralSamples {
		return 0, fmt.Errorf("%w: %d < %d", ErrShortHistory, n, minSpectralSamples)
	}

	buf := make([]float64, n)
	mean := 0.0
	for _, v := range accel {
		mean += v
	}
	mean /= float64(n)
	for i, v := range accel {
		buf[i] = v - mean
	}

	window.Apply(window.TypeHann, buf, window.WithPeriodic())

	size := nextPowerOfTwo(max(spectralPadFactor*n, minSpectralFFTSize))
	in := make([]complex128, size)
	for i, v := range buf {
		in[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return 0, fmt.Errorf("gait: fft plan: %w", err)
	}

	out := make([]complex128, size)
	if err := plan.Forward(out, in); err != nil {
		return 0, fmt.Errorf("gait: fft: %w", err)
	}

	power := spectrum.Power(out[:size/2+1])

	sampleRate := 1000 / samplePeriodMs
	lo := int(math.Ceil(spectrum.FrequencyBin(minCadenceSPM/60, size, sampleRate)))
	hi := int(math.Floor(spectrum.FrequencyBin(maxCadenceSPM/60, size, sampleRate)))

	pos, _, ok := spectrum.PeakInRange(power, lo, hi)
	if !ok {
		return 0, nil
	}

	return spectrum.BinFrequency(pos, size, sampleRate) * 60, nil
}

// SpectralCadence estimates cadence from the buffered acceleration history.
func (d *Detector) SpectralCadence() (float64, error) {
	return SpectralCadence(d.AccelHistory(nil), d.cfg.samplePeriodMs)
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
