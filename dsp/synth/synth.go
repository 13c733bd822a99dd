package synth

import (
	"fmt"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
	"github.com/cwbudde/gait-sonify/dsp/core"
)

// Synth renders a single carrier tree into multi-channel blocks.
type Synth struct {
	carrier  Osc
	scratch  *buffer.Block
	cfg      core.ProcessorConfig
	prepared bool
}

// NewSynth returns a synth playing carrier. Call Prepare before rendering.
func NewSynth(carrier Osc) *Synth {
	return &Synth{carrier: carrier, scratch: buffer.New(0, 0)}
}

// NewSynthFromParams builds the carrier tree from p.
func NewSynthFromParams(p SynthParams) *Synth {
	return NewSynth(p.Carrier())
}

// SetCarrier replaces the carrier tree. A prepared synth prepares the new
// tree with the same configuration.
func (s *Synth) SetCarrier(carrier Osc) {
	s.carrier = carrier
	if s.prepared {
		s.carrier.Prepare(s.cfg.SampleRate)
	}
}

// Carrier returns the carrier tree.
func (s *Synth) Carrier() *Osc {
	return &s.carrier
}

// Prepare configures the sample rate and sizes the scratch block for
// cfg.BlockSize frames of cfg.Channels channels.
func (s *Synth) Prepare(cfg core.ProcessorConfig) error {
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("synth sample rate must be > 0: %f", cfg.SampleRate)
	}

	if cfg.BlockSize <= 0 {
		return fmt.Errorf("synth block size must be > 0: %d", cfg.BlockSize)
	}

	if cfg.Channels <= 0 {
		return fmt.Errorf("synth channels must be > 0: %d", cfg.Channels)
	}

	s.cfg = cfg
	s.carrier.Prepare(cfg.SampleRate)
	s.scratch.Resize(cfg.Channels, cfg.BlockSize)
	s.prepared = true

	return nil
}

// Config returns the configuration passed to Prepare.
func (s *Synth) Config() core.ProcessorConfig {
	return s.cfg
}

// StartNote retunes the carrier and retriggers every envelope in the tree.
func (s *Synth) StartNote(freq, amplitude float64) {
	s.carrier.SetupNote(freq, amplitude)
}

// StopPlaying zeroes the phase of the tree. Envelopes keep running.
func (s *Synth) StopPlaying() {
	s.carrier.Reset()
}

// StopNote silences the tree and releases every envelope.
func (s *Synth) StopNote() {
	s.carrier.StopNote()
}

// SetModulationAmount scales FM depth and feedback across the tree.
func (s *Synth) SetModulationAmount(amount float64) {
	s.carrier.SetModulationAmount(amount)
}

// SetCarrierFrequency retunes a sounding note without retriggering the
// carrier envelope.
func (s *Synth) SetCarrierFrequency(freq float64) {
	s.carrier.SetFrequency(freq)
}

// SetEnvelope updates the carrier envelope and those inherited by
// modulators.
func (s *Synth) SetEnvelope(params EnvelopeParams) {
	s.carrier.SetEnvelope(params, false)
}

// EnableEnvelope switches envelope gating for the whole tree.
func (s *Synth) EnableEnvelope(enabled bool) {
	s.carrier.EnableEnvelope(enabled)
}

// IsActive reports whether the carrier is sounding.
func (s *Synth) IsActive() bool {
	return s.carrier.IsActive()
}

// RenderNextBlock renders n frames and adds them into out from frame start.
// Rendering goes through a scratch block so that out is only ever mixed
// into. An unprepared synth renders nothing.
func (s *Synth) RenderNextBlock(out *buffer.Block, start, n int) {
	if !s.prepared || n <= 0 {
		return
	}

	s.scratch.Resize(out.NumChannels(), n)
	s.scratch.Zero()
	s.carrier.RenderBlock(s.scratch, 0, n)
	out.AddFrom(s.scratch, start)

	if !s.carrier.IsActive() {
		s.carrier.Reset()
	}
}
