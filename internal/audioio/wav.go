package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
)

const (
	wavBitDepth  = 16
	wavFormatPCM = 1
)

// WAVSink writes interleaved 16-bit PCM to a file. The header is finalized on
// Close.
type WAVSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	file    *os.File
	enc     *wav.Encoder
	buf     *audio.IntBuffer
	running bool
	closed  bool
	stats   SinkStats
}

// NewWAVSink creates cfg.Path and prepares an encoder for it.
func NewWAVSink(cfg Config, logger *slog.Logger) (*WAVSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Create(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("audioio: create %s: %w", cfg.Path, err)
	}

	return &WAVSink{
		cfg:    cfg,
		logger: logger,
		file:   f,
		enc:    wav.NewEncoder(f, cfg.SampleRate, wavBitDepth, cfg.Channels, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: cfg.Channels,
				SampleRate:  cfg.SampleRate,
			},
			Data:           make([]int, 0, cfg.BlockSize*cfg.Channels),
			SourceBitDepth: wavBitDepth,
		},
		stats: SinkStats{Backend: string(BackendWAV)},
	}, nil
}

// Start begins accepting audio.
func (w *WAVSink) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return io.ErrClosedPipe
	}

	w.running = true
	w.logger.Info("wav sink started", "path", w.cfg.Path)

	return nil
}

// Stop halts audio acceptance. Written audio is kept.
func (w *WAVSink) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.running = false

	return nil
}

// Write encodes block. A block with fewer channels than the file repeats its
// last channel; extra channels are dropped.
func (w *WAVSink) Write(ctx context.Context, block *buffer.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.running {
		return io.ErrClosedPipe
	}

	frames := block.NumFrames()
	chans := w.cfg.Channels
	srcChans := block.NumChannels()
	data := w.buf.Data[:0]
	for i := range frames {
		for ch := range chans {
			v := 0
			if srcChans > 0 {
				v = toPCM16(block.Channel(min(ch, srcChans-1))[i])
			}
			data = append(data, v)
		}
	}
	w.buf.Data = data

	if err := w.enc.Write(w.buf); err != nil {
		return fmt.Errorf("audioio: encode wav: %w", err)
	}

	w.stats.BlocksWritten++
	w.stats.FramesWritten += int64(frames)

	return nil
}

// Config returns the audio configuration.
func (w *WAVSink) Config() Config {
	return w.cfg
}

// Name returns "wav".
func (w *WAVSink) Name() string {
	return string(BackendWAV)
}

// Close finalizes the header and closes the file.
func (w *WAVSink) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.running = false

	encErr := w.enc.Close()
	fileErr := w.file.Close()
	if encErr != nil {
		return fmt.Errorf("audioio: finalize wav: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("audioio: close %s: %w", w.cfg.Path, fileErr)
	}

	w.logger.Info("wav sink closed",
		"path", w.cfg.Path,
		"frames", w.stats.FramesWritten,
	)

	return nil
}

// Stats returns sink statistics.
func (w *WAVSink) Stats() SinkStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.stats
	s.Running = w.running
	return s
}

var _ SinkWithStats = (*WAVSink)(nil)
