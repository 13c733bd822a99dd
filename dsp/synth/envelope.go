package synth

import (
	"github.com/cwbudde/gait-sonify/dsp/buffer"
	"github.com/cwbudde/gait-sonify/dsp/core"
)

const (
	defaultEnvelopeSampleRate = 44100.0

	// stageEpsilon absorbs accumulation error so that a stage of T seconds
	// lasts ceil(T*sampleRate) samples.
	stageEpsilon = 1e-9
)

// EnvelopeParams configures an onset-attack-decay envelope. Times are in
// seconds; a non-positive time skips the stage.
type EnvelopeParams struct {
	Onset  float64
	Attack float64
	Decay  float64
}

// DefaultEnvelopeParams returns onset 0 with 100 ms attack and decay.
func DefaultEnvelopeParams() EnvelopeParams {
	return EnvelopeParams{Onset: 0, Attack: 0.1, Decay: 0.1}
}

type envelopeStage uint8

const (
	stageIdle envelopeStage = iota
	stageAttack
	stageDecay
)

// Envelope is a linear onset-attack-decay envelope. On NoteOn it jumps to
// the onset level, ramps up to 1 over the attack time, then ramps down to 0
// over the decay time and goes idle.
type Envelope struct {
	params     EnvelopeParams
	sampleRate float64

	stage envelopeStage
	value float64

	attackRate float64
	decayRate  float64

	scratch []float64
}

// NewEnvelope returns an idle envelope at 44.1 kHz.
func NewEnvelope(params EnvelopeParams) Envelope {
	e := Envelope{sampleRate: defaultEnvelopeSampleRate}
	e.SetParameters(params)

	return e
}

// SetSampleRate updates the rate used to convert stage times to samples.
// Non-positive rates are ignored.
func (e *Envelope) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 {
		return
	}

	e.sampleRate = sampleRate
	e.recalculateRates()
}

// SetParameters replaces the envelope shape. A running stage whose duration
// becomes zero ends immediately.
func (e *Envelope) SetParameters(params EnvelopeParams) {
	params.Onset = core.Clamp(params.Onset, 0, 1)
	e.params = params
	e.recalculateRates()
}

// Parameters returns the current envelope shape.
func (e *Envelope) Parameters() EnvelopeParams {
	return e.params
}

// NoteOn restarts the envelope from the onset level.
func (e *Envelope) NoteOn() {
	switch {
	case e.attackRate > 0:
		e.value = e.params.Onset
		e.stage = stageAttack
	case e.decayRate > 0:
		e.value = 1
		e.stage = stageDecay
	}
}

// NoteOff silences the envelope.
func (e *Envelope) NoteOff() {
	e.value = 0
	e.stage = stageIdle
}

// IsActive reports whether the envelope is in its attack or decay stage.
func (e *Envelope) IsActive() bool {
	return e.stage != stageIdle
}

// Value returns the most recent envelope output.
func (e *Envelope) Value() float64 {
	return e.value
}

// Next advances the envelope by one sample and returns its value in [0, 1].
func (e *Envelope) Next() float64 {
	switch e.stage {
	case stageIdle:
		return 0
	case stageAttack:
		e.value += e.attackRate
		if e.value >= 1-stageEpsilon {
			e.value = 1
			e.stage = stageDecay
			if e.decayRate <= 0 {
				e.stage = stageIdle
			}
		}
	case stageDecay:
		e.value -= e.decayRate
		if e.value <= stageEpsilon {
			e.value = 0
			e.stage = stageIdle
		}
	}

	return e.value
}

// ApplyToBlock multiplies frames [start, start+n) of every channel by
// successive envelope values. An idle envelope zeroes the range.
func (e *Envelope) ApplyToBlock(block *buffer.Block, start, n int) {
	if n <= 0 {
		return
	}

	if !e.IsActive() {
		block.ZeroRange(start, start+n)
		return
	}

	e.scratch = core.EnsureLen(e.scratch, n)
	for i := range e.scratch {
		e.scratch[i] = e.Next()
	}

	block.MulRange(start, e.scratch)
}

func (e *Envelope) recalculateRates() {
	e.attackRate = stageRate(e.params.Attack, e.sampleRate)
	e.decayRate = stageRate(e.params.Decay, e.sampleRate)

	if (e.stage == stageAttack && e.attackRate <= 0) ||
		(e.stage == stageDecay && (e.decayRate <= 0 || e.value <= 0)) {
		e.stage = stageIdle
	}
}

func stageRate(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return -1
	}

	return 1 / (seconds * sampleRate)
}
