package synth

import (
	"math"
	"testing"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
	"github.com/cwbudde/gait-sonify/internal/testutil"
)

func TestOscReferenceSine(t *testing.T) {
	tests := []struct {
		name       string
		mode       Mode
		freq       float64
		sampleRate float64
	}{
		{name: "linear 440", mode: Linear, freq: 440, sampleRate: 44100},
		{name: "linear 1k at 48k", mode: Linear, freq: 1000, sampleRate: 48000},
		{name: "exponential unmodulated", mode: Exponential, freq: 220, sampleRate: 44100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osc := NewOsc(tt.mode)
			osc.EnableEnvelope(false)
			osc.Prepare(tt.sampleRate)
			osc.SetupNote(tt.freq, 1)

			n := 4096
			got := make([]float64, n)
			for i := range got {
				got[i] = osc.NextSample()
			}

			want := testutil.DeterministicSine(tt.freq, tt.sampleRate, 1, n)
			testutil.RequireSliceNearlyEqual(t, got, want, 1e-8)
		})
	}
}

func TestOscZeroModulationAmountIsPureSine(t *testing.T) {
	osc := DefaultPatch(0.2).Carrier()
	osc.EnableEnvelope(false)
	osc.Prepare(44100)
	osc.SetModulationAmount(0)
	osc.SetupNote(330, 1)

	want := testutil.DeterministicSine(330, 44100, 1, 1024)
	for i, w := range want {
		if got := osc.NextSample(); math.Abs(got-w) > 1e-8 {
			t.Fatalf("sample %d: got %v, want %v", i, got, w)
		}
	}
}

func TestOscModulatorFrequencies(t *testing.T) {
	params := SynthParams{
		CarrierMode: Linear,
		Modulators: []OscParams{
			ProportionalParams(2, 100, ProportionalParams(0.5, 10)),
			FixedParams(50, 25),
		},
		Envelope: DefaultEnvelopeParams(),
	}

	osc := params.Carrier()
	osc.Prepare(48000)
	osc.SetModulationAmount(2)
	osc.SetupNote(200, 0.5)

	mods := osc.Modulators()
	if len(mods) != 2 {
		t.Fatalf("len(Modulators()) = %d, want 2", len(mods))
	}

	proportional := mods[0]
	if got := proportional.Frequency(); math.Abs(got-400) > 1e-9 {
		t.Fatalf("proportional modulator frequency = %v, want 400", got)
	}
	// I = amplitude * amount * d / fm = 0.5 * 2 * 100 / 400
	if got := proportional.Amplitude(); math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("proportional modulator index = %v, want 0.25", got)
	}

	series := proportional.Modulators()[0]
	if got := series.Frequency(); math.Abs(got-200) > 1e-9 {
		t.Fatalf("series modulator frequency = %v, want 200", got)
	}
	if got := series.Amplitude(); math.Abs(got-0.25*2*10/200) > 1e-12 {
		t.Fatalf("series modulator index = %v, want %v", got, 0.25*2*10/200)
	}

	fixed := mods[1]
	if got := fixed.Frequency(); math.Abs(got-50) > 1e-9 {
		t.Fatalf("fixed modulator frequency = %v, want 50", got)
	}
	if got := fixed.Amplitude(); math.Abs(got-0.5*2*25/50) > 1e-12 {
		t.Fatalf("fixed modulator index = %v, want 0.5", got)
	}

	osc.SetFrequency(100)
	if got := osc.Modulators()[1].Frequency(); math.Abs(got-50) > 1e-9 {
		t.Fatalf("fixed modulator followed the carrier: %v", got)
	}
	if got := osc.Modulators()[0].Frequency(); math.Abs(got-200) > 1e-9 {
		t.Fatalf("proportional modulator frequency after retune = %v, want 200", got)
	}
}

func TestOscModulationChangesOutput(t *testing.T) {
	osc := DefaultPatch(0.2).Carrier()
	osc.EnableEnvelope(false)
	osc.Prepare(44100)
	osc.SetModulationAmount(1)
	osc.SetupNote(330, 1)

	want := testutil.DeterministicSine(330, 44100, 1, 256)
	maxDiff := 0.0
	for _, w := range want {
		v := osc.NextSample()
		if math.IsNaN(v) || math.Abs(v) > 1 {
			t.Fatalf("sample %v outside [-1, 1]", v)
		}
		maxDiff = math.Max(maxDiff, math.Abs(v-w))
	}

	if maxDiff < 0.1 {
		t.Fatalf("modulated output too close to a pure sine: max diff %v", maxDiff)
	}
}

func TestOscEnvelopeInheritance(t *testing.T) {
	own := EnvelopeParams{Attack: 0.5, Decay: 0.5}
	withOwn := ProportionalParams(1, 1)
	withOwn.Envelope = &own

	params := SynthParams{
		Modulators: []OscParams{withOwn, ProportionalParams(1, 1)},
		Envelope:   EnvelopeParams{Attack: 0.01, Decay: 0.02},
	}
	osc := params.Carrier()

	if got := osc.Modulators()[0].Envelope().Parameters(); got != own {
		t.Fatalf("modulator with own envelope got %+v, want %+v", got, own)
	}
	if got := osc.Modulators()[1].Envelope().Parameters(); got != params.Envelope {
		t.Fatalf("inheriting modulator got %+v, want %+v", got, params.Envelope)
	}

	shared := EnvelopeParams{Attack: 0.2, Decay: 0.3}
	osc.SetEnvelope(shared, true)
	if got := osc.Modulators()[0].Envelope().Parameters(); got != shared {
		t.Fatalf("forced update got %+v, want %+v", got, shared)
	}
}

func TestOscIsActive(t *testing.T) {
	osc := NewOsc(Linear)
	osc.Prepare(1000)

	if osc.IsActive() {
		t.Fatal("fresh oscillator with envelope should be idle")
	}

	osc.SetupNote(10, 1)
	if !osc.IsActive() {
		t.Fatal("oscillator should be active after SetupNote")
	}

	osc.EnableEnvelope(false)
	osc.StopNote()
	if !osc.IsActive() {
		t.Fatal("oscillator with envelope disabled is always active")
	}
}

func TestOscStoppedRendersNothing(t *testing.T) {
	osc := NewOsc(Linear)
	osc.EnableEnvelope(false)
	osc.Prepare(1000)

	block := buffer.FromChannels(testutil.Ones(8))
	osc.RenderBlock(block, 0, 8)
	testutil.RequireSliceNearlyEqual(t, block.Channel(0), testutil.Ones(8), 0)

	osc.SetupNote(100, 1)
	osc.StopNote()
	osc.RenderBlock(block, 0, 8)
	testutil.RequireSliceNearlyEqual(t, block.Channel(0), testutil.Ones(8), 0)
}

func TestOscRenderBlockAddsToAllChannels(t *testing.T) {
	osc := NewOsc(Linear)
	osc.EnableEnvelope(false)
	osc.Prepare(8000)
	osc.SetupNote(1000, 1)

	block := buffer.New(2, 8)
	for i := range block.Channel(1) {
		block.Channel(1)[i] = 1
	}
	osc.RenderBlock(block, 2, 16)

	sine := testutil.DeterministicSine(1000, 8000, 1, 6)
	for i := 0; i < 8; i++ {
		want := 0.0
		if i >= 2 {
			want = sine[i-2]
		}
		if math.Abs(block.Channel(0)[i]-want) > 1e-12 {
			t.Fatalf("ch0[%d] = %v, want %v", i, block.Channel(0)[i], want)
		}
		if math.Abs(block.Channel(1)[i]-(1+want)) > 1e-12 {
			t.Fatalf("ch1[%d] = %v, want %v", i, block.Channel(1)[i], 1+want)
		}
	}
}

func TestOscCloneIsIndependent(t *testing.T) {
	osc := DefaultPatch(0.2).Carrier()
	osc.Prepare(44100)
	osc.SetupNote(220, 1)

	clone := osc.Clone()
	for range 100 {
		osc.NextSample()
	}

	if clone.angle != 0 || clone.Modulators()[0].angle != 0 {
		t.Fatal("advancing the original moved the clone")
	}
}

func TestOscFeedbackScaledByModulationAmount(t *testing.T) {
	p := ProportionalParams(1, 0)
	p.Feedback = 0.9
	mod := p.Generate()
	mod.EnableEnvelope(false)
	mod.Prepare(1000)
	mod.SetModulationAmount(0)
	mod.SetupNote(50, 1)

	want := testutil.DeterministicSine(50, 1000, 1, 64)
	for i, w := range want {
		if got := mod.NextSample(); math.Abs(got-w) > 1e-9 {
			t.Fatalf("sample %d: feedback leaked with zero modulation amount: got %v want %v", i, got, w)
		}
	}
}
