package buffer

import (
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/gait-sonify/dsp/core"
)

// Block is a per-channel (non-interleaved) float64 audio buffer.
type Block struct {
	channels [][]float64
	frames   int
}

// New returns a zero-filled Block with the given channel and frame counts.
// Negative counts are treated as 0.
func New(channels, frames int) *Block {
	b := &Block{}
	b.Resize(channels, frames)
	return b
}

// FromChannels wraps existing channel slices without copying. All channels
// are truncated to the shortest slice.
func FromChannels(channels ...[]float64) *Block {
	frames := 0
	for i, ch := range channels {
		if i == 0 || len(ch) < frames {
			frames = len(ch)
		}
	}
	for i := range channels {
		channels[i] = channels[i][:frames]
	}
	return &Block{channels: channels, frames: frames}
}

// NumChannels returns the channel count.
func (b *Block) NumChannels() int {
	return len(b.channels)
}

// NumFrames returns the number of samples per channel.
func (b *Block) NumFrames() int {
	return b.frames
}

// Channel returns the sample slice of channel ch.
func (b *Block) Channel(ch int) []float64 {
	return b.channels[ch]
}

// Resize sets the channel and frame counts, reusing existing capacity where
// possible. Newly exposed samples are zeroed; retained samples are kept.
func (b *Block) Resize(channels, frames int) {
	if channels < 0 {
		channels = 0
	}
	if frames < 0 {
		frames = 0
	}

	if cap(b.channels) >= channels {
		b.channels = b.channels[:channels]
	} else {
		grown := make([][]float64, channels)
		copy(grown, b.channels)
		b.channels = grown
	}

	for i, ch := range b.channels {
		old := len(ch)
		if cap(ch) < frames {
			grown := make([]float64, frames)
			copy(grown, ch)
			b.channels[i] = grown
			continue
		}
		b.channels[i] = core.EnsureLen(ch, frames)
		if old < frames {
			// Reused capacity may hold stale samples from earlier use.
			core.Zero(b.channels[i][old:])
		}
	}

	b.frames = frames
}

// Zero sets every sample of every channel to 0.
func (b *Block) Zero() {
	for _, ch := range b.channels {
		core.Zero(ch)
	}
}

// ZeroRange sets samples in [start, end) of every channel to 0.
// Indices are clamped to valid bounds.
func (b *Block) ZeroRange(start, end int) {
	if start < 0 {
		start = 0
	}
	if end > b.frames {
		end = b.frames
	}
	if start >= end {
		return
	}
	for _, ch := range b.channels {
		core.Zero(ch[start:end])
	}
}

// AddFrom mixes src into b starting at frame start of b. Channels beyond the
// smaller channel count and frames beyond the end of b are ignored.
func (b *Block) AddFrom(src *Block, start int) {
	if start < 0 || start >= b.frames {
		return
	}

	n := src.frames
	if start+n > b.frames {
		n = b.frames - start
	}

	chans := len(b.channels)
	if src.NumChannels() < chans {
		chans = src.NumChannels()
	}

	for ch := 0; ch < chans; ch++ {
		dst := b.channels[ch][start : start+n]
		for i, v := range src.channels[ch][:n] {
			dst[i] += v
		}
	}
}

// Copy returns a deep copy of the block.
func (b *Block) Copy() *Block {
	c := New(len(b.channels), b.frames)
	for i := range b.channels {
		copy(c.channels[i], b.channels[i])
	}
	return c
}

// MulChannelRange multiplies frames [start, start+len(gains)) of channel ch
// element-wise by gains, clipped to the block length.
func (b *Block) MulChannelRange(ch, start int, gains []float64) {
	if start < 0 || start >= b.frames {
		return
	}

	n := min(len(gains), b.frames-start)
	vecmath.MulBlockInPlace(b.channels[ch][start:start+n], gains[:n])
}

// MulRange applies MulChannelRange to every channel.
func (b *Block) MulRange(start int, gains []float64) {
	for ch := range b.channels {
		b.MulChannelRange(ch, start, gains)
	}
}
