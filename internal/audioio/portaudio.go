//go:build portaudio

package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
	"github.com/cwbudde/gait-sonify/dsp/core"
)

// portAudioSink plays through the default output device. Write blocks until
// the device has consumed the previous buffer, which paces the caller.
type portAudioSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	out     [][]float32
	running bool
	closed  bool
	stats   SinkStats
}

func newPortAudioSink(cfg Config, logger *slog.Logger) (Sink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audioio: portaudio init: %w", err)
	}

	dev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("audioio: no default output device: %w", err)
	}

	out := make([][]float32, cfg.Channels)
	for ch := range out {
		out[ch] = make([]float32, cfg.BlockSize)
	}

	stream, err := portaudio.OpenDefaultStream(0, cfg.Channels, float64(cfg.SampleRate), cfg.BlockSize, &out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("audioio: open stream: %w", err)
	}

	logger.Info("portaudio output opened", "device", dev.Name)

	return &portAudioSink{
		cfg:    cfg,
		logger: logger,
		stream: stream,
		out:    out,
		stats:  SinkStats{Backend: string(BackendPortAudio)},
	}, nil
}

func (p *portAudioSink) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return io.ErrClosedPipe
	}
	if p.running {
		return nil
	}
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("audioio: start stream: %w", err)
	}
	p.running = true

	return nil
}

func (p *portAudioSink) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.stopLocked()
}

func (p *portAudioSink) stopLocked() error {
	if !p.running {
		return nil
	}
	p.running = false
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("audioio: stop stream: %w", err)
	}
	return nil
}

// Write sends block in device-sized chunks. A short final chunk is padded
// with silence.
func (p *portAudioSink) Write(ctx context.Context, block *buffer.Block) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.running {
		return io.ErrClosedPipe
	}

	frames := block.NumFrames()
	for start := 0; start < frames; start += p.cfg.BlockSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		n := min(p.cfg.BlockSize, frames-start)
		for ch, dst := range p.out {
			if block.NumChannels() == 0 {
				clear(dst)
				continue
			}
			// Mono blocks are duplicated across the device channels.
			src := block.Channel(min(ch, block.NumChannels()-1))[start : start+n]
			for i, v := range src {
				dst[i] = float32(core.Clamp(v, -1, 1))
			}
			clear(dst[n:])
		}

		if err := p.stream.Write(); err != nil {
			return fmt.Errorf("audioio: write stream: %w", err)
		}
	}

	p.stats.BlocksWritten++
	p.stats.FramesWritten += int64(frames)

	return nil
}

func (p *portAudioSink) Config() Config {
	return p.cfg
}

func (p *portAudioSink) Name() string {
	return string(BackendPortAudio)
}

func (p *portAudioSink) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	stopErr := p.stopLocked()
	closeErr := p.stream.Close()
	termErr := portaudio.Terminate()

	for _, err := range []error{stopErr, closeErr, termErr} {
		if err != nil {
			return fmt.Errorf("audioio: close portaudio: %w", err)
		}
	}
	return nil
}

func (p *portAudioSink) Stats() SinkStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	s.Running = p.running
	return s
}
