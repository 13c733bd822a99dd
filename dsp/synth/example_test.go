package synth_test

import (
	"fmt"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
	"github.com/cwbudde/gait-sonify/dsp/core"
	"github.com/cwbudde/gait-sonify/dsp/synth"
)

func ExampleSynth() {
	s := synth.NewSynthFromParams(synth.DefaultPatch(0.2))
	if err := s.Prepare(core.ProcessorConfig{SampleRate: 44100, BlockSize: 512, Channels: 2}); err != nil {
		panic(err)
	}

	s.SetModulationAmount(2)
	s.StartNote(330, 0.5)

	out := buffer.New(2, 512)
	s.RenderNextBlock(out, 0, 512)

	fmt.Println(s.IsActive(), out.NumFrames())
	// Output:
	// true 512
}

func ExampleEnvelope() {
	env := synth.NewEnvelope(synth.EnvelopeParams{Onset: 0, Attack: 0.002, Decay: 0.004})
	env.SetSampleRate(1000)
	env.NoteOn()

	for env.IsActive() {
		fmt.Printf("%.2f ", env.Next())
	}
	fmt.Println()
	// Output:
	// 0.50 1.00 0.75 0.50 0.25 0.00
}
