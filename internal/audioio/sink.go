package audioio

import (
	"context"
	"io"
	"math"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
	"github.com/cwbudde/gait-sonify/dsp/core"
)

// Sink plays or stores rendered audio.
type Sink interface {
	// Start begins accepting audio.
	Start(ctx context.Context) error

	// Stop halts output. It is safe to call Stop multiple times.
	Stop() error

	// Write delivers one block. Device backends block until the device has
	// room for it.
	Write(ctx context.Context, block *buffer.Block) error

	// Config returns the output configuration.
	Config() Config

	// Name returns the backend name.
	Name() string

	// Close releases all resources. After Close, the sink cannot be
	// restarted.
	io.Closer
}

// SinkStats contains statistics about a sink.
type SinkStats struct {
	BlocksWritten int64  `json:"blocks_written"`
	FramesWritten int64  `json:"frames_written"`
	Running       bool   `json:"running"`
	Backend       string `json:"backend"`
}

// SinkWithStats extends Sink with statistics.
type SinkWithStats interface {
	Sink
	Stats() SinkStats
}

const pcm16Max = 32767

func toPCM16(x float64) int {
	return int(math.Round(core.Clamp(x, -1, 1) * pcm16Max))
}
