package synth

import (
	"math"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
)

// Mode selects how modulator output enters a node's phase.
type Mode uint8

const (
	// Linear adds modulation to the phase: sin(angle + m).
	Linear Mode = iota
	// Exponential scales the phase: sin(angle * 2^m).
	Exponential
)

func (m Mode) String() string {
	switch m {
	case Linear:
		return "linear"
	case Exponential:
		return "exponential"
	default:
		return "unknown"
	}
}

// ModulationMode selects how a modulator derives its frequency from the
// node it modulates.
type ModulationMode uint8

const (
	// Proportional runs the modulator at parentFrequency * ratio.
	Proportional ModulationMode = iota
	// Fixed runs the modulator at a fixed frequency in Hz.
	Fixed
)

// Osc is one node of an FM modulation tree. The zero value is not usable;
// construct with NewOsc or OscParams.Generate.
type Osc struct {
	mode       Mode
	modMode    ModulationMode
	modulators []Osc

	sampleRate float64
	angle      float64
	angleDelta float64
	amplitude  float64

	ratio         float64
	fixedFreq     float64
	peakDeviation float64
	feedback      float64
	prevSample    float64

	// modulationAmount scales modulation indices and feedback.
	modulationAmount float64

	envelope         Envelope
	envelopeSet      bool
	envelopeDisabled bool
}

// NewOsc returns an unmodulated oscillator in the given mode with unit
// amplitude and the default envelope.
func NewOsc(mode Mode) Osc {
	return Osc{
		mode:             mode,
		sampleRate:       defaultEnvelopeSampleRate,
		amplitude:        1,
		modulationAmount: 1,
		envelope:         NewEnvelope(DefaultEnvelopeParams()),
	}
}

// Mode returns the node's FM mode.
func (o *Osc) Mode() Mode { return o.mode }

// Amplitude returns the node's output amplitude. For a modulator this is
// its modulation index.
func (o *Osc) Amplitude() float64 { return o.amplitude }

// Frequency returns the node's current frequency in Hz.
func (o *Osc) Frequency() float64 {
	return o.angleDelta * o.sampleRate / (2 * math.Pi)
}

// Modulators returns the node's direct children. The slice aliases the
// node's state.
func (o *Osc) Modulators() []Osc { return o.modulators }

// Envelope returns the node's envelope.
func (o *Osc) Envelope() *Envelope { return &o.envelope }

// AddModulator appends a child modulator. Call before Prepare.
func (o *Osc) AddModulator(m Osc) {
	o.modulators = append(o.modulators, m)
}

// Prepare sets the sample rate for the whole tree and resets phase.
func (o *Osc) Prepare(sampleRate float64) {
	if sampleRate > 0 {
		o.sampleRate = sampleRate
	}

	o.Reset()
	o.envelope.SetSampleRate(o.sampleRate)

	for i := range o.modulators {
		o.modulators[i].Prepare(sampleRate)
	}
}

// SetupNote sets amplitude and frequency, then retriggers the envelopes of
// the whole tree.
func (o *Osc) SetupNote(freq, amplitude float64) {
	o.amplitude = amplitude
	o.SetFrequency(freq)

	if !o.envelopeDisabled {
		o.envelope.NoteOn()
	}
}

// SetFrequency retunes the node and recomputes every descendant's frequency
// and modulation index from it.
func (o *Osc) SetFrequency(freq float64) {
	o.angleDelta = 2 * math.Pi * freq / o.sampleRate

	for i := range o.modulators {
		m := &o.modulators[i]

		modFreq := m.fixedFreq
		if m.modMode == Proportional {
			modFreq = freq * m.ratio
		}

		// I = d / fm
		index := 0.0
		if modFreq != 0 {
			index = o.amplitude * o.modulationAmount * (m.peakDeviation / modFreq)
		}

		m.SetupNote(modFreq, index)
	}
}

// SetModulationAmount sets the global modulation scale for the tree. It
// scales feedback immediately and modulation indices from the next
// SetFrequency or SetupNote.
func (o *Osc) SetModulationAmount(amount float64) {
	o.modulationAmount = amount
	for i := range o.modulators {
		o.modulators[i].SetModulationAmount(amount)
	}
}

// SetEnvelope sets the node's envelope shape and passes it down to
// modulators that were not given their own, or to all of them with force.
func (o *Osc) SetEnvelope(params EnvelopeParams, force bool) {
	o.envelope.SetParameters(params)
	for i := range o.modulators {
		m := &o.modulators[i]
		if !m.envelopeSet || force {
			m.SetEnvelope(params, false)
		}
	}
}

// EnableEnvelope switches envelope gating for the whole tree. A node with
// its envelope disabled plays at constant amplitude and is always active.
func (o *Osc) EnableEnvelope(enabled bool) {
	o.envelopeDisabled = !enabled
	for i := range o.modulators {
		o.modulators[i].EnableEnvelope(enabled)
	}
}

// IsActive reports whether the node is producing sound.
func (o *Osc) IsActive() bool {
	return o.envelopeDisabled || o.envelope.IsActive()
}

// NextSample computes one output sample and advances the phase.
func (o *Osc) NextSample() float64 {
	modulation := 0.0
	for i := range o.modulators {
		modulation += o.modulators[i].NextSample()
	}

	fb := o.feedback * o.modulationAmount * o.prevSample

	var sample float64
	switch o.mode {
	case Exponential:
		sample = o.amplitude * math.Sin(o.angle*exp2(modulation)+fb)
	default:
		sample = o.amplitude * math.Sin(o.angle+modulation+fb)
	}

	o.angle += o.angleDelta
	o.prevSample = sample

	if o.envelopeDisabled {
		return sample
	}

	return o.envelope.Next() * sample
}

// RenderBlock adds n samples into every channel of block starting at frame
// start. A stopped node renders nothing.
func (o *Osc) RenderBlock(block *buffer.Block, start, n int) {
	if o.angleDelta == 0 {
		return
	}

	end := min(start+n, block.NumFrames())
	channels := block.NumChannels()
	for i := start; i < end; i++ {
		s := o.NextSample()
		for ch := range channels {
			block.Channel(ch)[i] += s
		}
	}
}

// Reset zeroes the phase of the whole tree.
func (o *Osc) Reset() {
	o.angle = 0
	for i := range o.modulators {
		o.modulators[i].Reset()
	}
}

// StopNote halts the tree and silences its envelopes.
func (o *Osc) StopNote() {
	o.angleDelta = 0
	o.envelope.NoteOff()
	for i := range o.modulators {
		o.modulators[i].StopNote()
	}
}

// Clone returns a deep copy of the tree.
func (o *Osc) Clone() Osc {
	c := *o
	c.envelope.scratch = nil
	if o.modulators != nil {
		c.modulators = make([]Osc, len(o.modulators))
		for i := range o.modulators {
			c.modulators[i] = o.modulators[i].Clone()
		}
	}

	return c
}
