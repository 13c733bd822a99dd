// Package synth implements a small frequency-modulation synthesizer.
//
// An [Osc] is a node in a modulation tree. Its children are modulators whose
// outputs are summed into its phase (parallel modulation); a child with
// children of its own forms a series chain. Each node is gated by an
// onset-attack-decay [Envelope]. [Synth] owns one carrier tree and renders it
// block by block into a [buffer.Block].
//
// Trees are plain values. Rebuilding from [OscParams] is the supported way to
// change topology; the mutators on Osc only touch per-note state.
package synth
