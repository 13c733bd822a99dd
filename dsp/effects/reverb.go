package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
	"github.com/cwbudde/gait-sonify/dsp/core"
)

const (
	reverbNumCombs     = 8
	reverbNumAllpasses = 4

	reverbFixedGain       = 0.015
	reverbAllpassFeedback = 0.5
	reverbWetScale        = 3.0
	reverbDryScale        = 2.0
	reverbDampScale       = 0.4
	reverbRoomScale       = 0.28
	reverbRoomOffset      = 0.7

	// Tunings are calibrated for 44.1 kHz and scaled to the processing rate.
	reverbTuningSampleRate = 44100.0
	reverbStereoSpread     = 23
)

var (
	reverbCombTunings    = [reverbNumCombs]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	reverbAllpassTunings = [reverbNumAllpasses]int{556, 441, 341, 225}
)

// ReverbParameters hold the user-facing reverb controls, each in [0, 1].
type ReverbParameters struct {
	RoomSize float64
	Damping  float64
	WetLevel float64
	DryLevel float64
	Width    float64
}

// DefaultReverbParameters returns a medium room with a moderate wet mix.
func DefaultReverbParameters() ReverbParameters {
	return ReverbParameters{
		RoomSize: 0.5,
		Damping:  0.5,
		WetLevel: 0.33,
		DryLevel: 0.4,
		Width:    1,
	}
}

// Validate reports the first parameter outside [0, 1].
func (p ReverbParameters) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"room size", p.RoomSize},
		{"damping", p.Damping},
		{"wet level", p.WetLevel},
		{"dry level", p.DryLevel},
		{"width", p.Width},
	} {
		if f.value < 0 || f.value > 1 || math.IsNaN(f.value) {
			return fmt.Errorf("reverb %s must be in [0, 1]: %f", f.name, f.value)
		}
	}

	return nil
}

// Reverb is a Freeverb-style stereo reverb: eight parallel damped combs
// feeding four series allpasses per channel, with the right channel's delay
// lines offset by a fixed stereo spread.
type Reverb struct {
	params     ReverbParameters
	sampleRate float64

	gain     float64
	wet1     float64
	wet2     float64
	dry      float64
	feedback float64
	damp     float64

	combs   [2][reverbNumCombs]reverbComb
	allpass [2][reverbNumAllpasses]reverbAllpass
}

type reverbAllpass struct {
	buffer []float64
	index  int
}

func (a *reverbAllpass) process(input float64) float64 {
	bufOut := a.buffer[a.index]
	a.buffer[a.index] = input + bufOut*reverbAllpassFeedback
	a.index++
	if a.index >= len(a.buffer) {
		a.index = 0
	}
	return bufOut - input
}

func (a *reverbAllpass) reset() {
	clear(a.buffer)
	a.index = 0
}

type reverbComb struct {
	filterStore float64
	buffer      []float64
	index       int
}

func (c *reverbComb) process(input, damp, feedback float64) float64 {
	output := c.buffer[c.index]
	c.filterStore = core.FlushDenormals(output*(1-damp) + c.filterStore*damp)
	c.buffer[c.index] = input + c.filterStore*feedback
	c.index++
	if c.index >= len(c.buffer) {
		c.index = 0
	}
	return output
}

func (c *reverbComb) reset() {
	clear(c.buffer)
	c.index = 0
	c.filterStore = 0
}

// NewReverb creates a stereo reverb for the given sample rate.
func NewReverb(sampleRate float64, p ReverbParameters) (*Reverb, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("reverb sample rate must be > 0 and finite: %f", sampleRate)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	r := &Reverb{sampleRate: sampleRate}

	scale := sampleRate / reverbTuningSampleRate
	for ch := range 2 {
		spread := ch * reverbStereoSpread
		for i, tuning := range reverbCombTunings {
			r.combs[ch][i].buffer = make([]float64, scaledLength(tuning+spread, scale))
		}
		for i, tuning := range reverbAllpassTunings {
			r.allpass[ch][i].buffer = make([]float64, scaledLength(tuning+spread, scale))
		}
	}

	r.apply(p)

	return r, nil
}

func scaledLength(tuning int, scale float64) int {
	return max(1, int(float64(tuning)*scale))
}

// SampleRate returns the rate the delay lines were sized for.
func (r *Reverb) SampleRate() float64 { return r.sampleRate }

// Parameters returns the current controls.
func (r *Reverb) Parameters() ReverbParameters { return r.params }

// SetParameters replaces all controls.
func (r *Reverb) SetParameters(p ReverbParameters) error {
	if err := p.Validate(); err != nil {
		return err
	}

	r.apply(p)

	return nil
}

// SetMix changes only the wet and dry levels, clamped to [0, 1]. It is
// cheap enough to call per sample.
func (r *Reverb) SetMix(wet, dry float64) {
	p := r.params
	p.WetLevel = clampUnit(wet)
	p.DryLevel = clampUnit(dry)
	r.apply(p)
}

func (r *Reverb) apply(p ReverbParameters) {
	r.params = p

	wet := p.WetLevel * reverbWetScale
	r.wet1 = 0.5 * wet * (1 + p.Width)
	r.wet2 = 0.5 * wet * (1 - p.Width)
	r.dry = p.DryLevel * reverbDryScale
	r.gain = reverbFixedGain
	r.damp = p.Damping * reverbDampScale
	r.feedback = p.RoomSize*reverbRoomScale + reverbRoomOffset
}

// Reset clears all delay and filter state.
func (r *Reverb) Reset() {
	for ch := range r.combs {
		for i := range r.combs[ch] {
			r.combs[ch][i].reset()
		}
		for i := range r.allpass[ch] {
			r.allpass[ch][i].reset()
		}
	}
}

// ProcessStereo processes one stereo frame.
func (r *Reverb) ProcessStereo(left, right float64) (float64, float64) {
	x := (left + right) * r.gain

	var outL, outR float64
	for i := range reverbNumCombs {
		outL += r.combs[0][i].process(x, r.damp, r.feedback)
		outR += r.combs[1][i].process(x, r.damp, r.feedback)
	}
	for i := range reverbNumAllpasses {
		outL = r.allpass[0][i].process(outL)
		outR = r.allpass[1][i].process(outR)
	}

	return outL*r.wet1 + outR*r.wet2 + left*r.dry,
		outR*r.wet1 + outL*r.wet2 + right*r.dry
}

// ProcessMono processes one sample through the left network only.
func (r *Reverb) ProcessMono(input float64) float64 {
	x := input * r.gain

	var out float64
	for i := range reverbNumCombs {
		out += r.combs[0][i].process(x, r.damp, r.feedback)
	}
	for i := range reverbNumAllpasses {
		out = r.allpass[0][i].process(out)
	}

	return out*r.wet1 + input*r.dry
}

// ProcessBlock processes a block in place. Mono blocks use ProcessMono;
// otherwise the first two channels are processed as a stereo pair and any
// further channels pass through.
func (r *Reverb) ProcessBlock(block *buffer.Block) {
	switch block.NumChannels() {
	case 0:
		return
	case 1:
		buf := block.Channel(0)
		for i, v := range buf {
			buf[i] = r.ProcessMono(v)
		}
	default:
		left, right := block.Channel(0), block.Channel(1)
		for i := range left {
			left[i], right[i] = r.ProcessStereo(left[i], right[i])
		}
	}
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
