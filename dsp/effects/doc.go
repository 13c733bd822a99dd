// Package effects provides the output stage of the sonification render
// path.
//
//   - Reverb: Freeverb-style stereo reverb with room size, damping, wet/dry
//     levels and stereo width.
//   - Panner: stereo panner with selectable pan laws.
//   - Gain: constant output gain.
//
// The processors are real-time safe and allocation-free after construction.
// None of them is safe for concurrent use.
package effects
