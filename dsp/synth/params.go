package synth

const (
	defaultRatio     = 2.0
	defaultFixedFreq = 100.0
)

// OscParams describes one modulator node and its subtree.
type OscParams struct {
	Mode           Mode
	ModulationMode ModulationMode

	// Ratio is used with Proportional modulation.
	Ratio float64
	// FixedFreq is used with Fixed modulation, in Hz.
	FixedFreq float64

	PeakDeviation float64
	Feedback      float64

	// Envelope overrides the envelope inherited from the parent when set.
	Envelope *EnvelopeParams

	Modulators []OscParams
}

// ProportionalParams returns parameters for a modulator running at
// ratio times its parent's frequency.
func ProportionalParams(ratio, peakDeviation float64, children ...OscParams) OscParams {
	return OscParams{
		Mode:           Linear,
		ModulationMode: Proportional,
		Ratio:          ratio,
		FixedFreq:      defaultFixedFreq,
		PeakDeviation:  peakDeviation,
		Modulators:     children,
	}
}

// FixedParams returns parameters for a modulator running at a fixed
// frequency in Hz.
func FixedParams(freq, peakDeviation float64, children ...OscParams) OscParams {
	return OscParams{
		Mode:           Linear,
		ModulationMode: Fixed,
		Ratio:          defaultRatio,
		FixedFreq:      freq,
		PeakDeviation:  peakDeviation,
		Modulators:     children,
	}
}

// Generate builds the oscillator subtree described by p.
func (p OscParams) Generate() Osc {
	osc := NewOsc(p.Mode)
	osc.modMode = p.ModulationMode
	osc.ratio = p.Ratio
	osc.fixedFreq = p.FixedFreq
	osc.peakDeviation = p.PeakDeviation
	osc.feedback = p.Feedback

	for _, child := range p.Modulators {
		osc.AddModulator(child.Generate())
	}

	if p.Envelope != nil {
		osc.SetEnvelope(*p.Envelope, false)
		osc.envelopeSet = true
	}

	return osc
}

// SynthParams describes a complete carrier tree.
type SynthParams struct {
	CarrierMode Mode
	Modulators  []OscParams
	Envelope    EnvelopeParams
}

// Carrier builds the carrier tree described by p.
func (p SynthParams) Carrier() Osc {
	carrier := NewOsc(p.CarrierMode)
	for _, m := range p.Modulators {
		carrier.AddModulator(m.Generate())
	}
	carrier.SetEnvelope(p.Envelope, false)

	return carrier
}

// DefaultPatch returns the gait-event voice: a linear carrier with an
// exponential feedback modulator carrying its own series modulator, plus
// a second parallel modulator. decay is the envelope decay time in seconds.
func DefaultPatch(decay float64) SynthParams {
	first := ProportionalParams(1.4, 500, ProportionalParams(1.4, 1.9))
	first.Feedback = 0.1
	first.Mode = Exponential

	return SynthParams{
		CarrierMode: Linear,
		Modulators: []OscParams{
			first,
			ProportionalParams(1.35, 0.5),
		},
		Envelope: EnvelopeParams{Onset: 0, Attack: 0.05, Decay: decay},
	}
}
