package audioio

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseBackend(t *testing.T) {
	for in, want := range map[string]Backend{
		"portaudio": BackendPortAudio,
		" WAV ":     BackendWAV,
		"mock":      BackendMock,
	} {
		got, err := ParseBackend(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseBackend("alsa")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"unknown backend", func(c *Config) { c.Backend = "jack" }, true},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"zero channels", func(c *Config) { c.Channels = 0 }, true},
		{"zero block size", func(c *Config) { c.BlockSize = 0 }, true},
		{"wav without path", func(c *Config) { c.Backend = BackendWAV }, true},
		{"wav with path", func(c *Config) { c.Backend = BackendWAV; c.Path = "out.wav" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMockSinkLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Backend = BackendMock

	sink, err := NewSink(cfg, quietLogger())
	require.NoError(t, err)
	mock, ok := sink.(*MockSink)
	require.True(t, ok)
	assert.Equal(t, "mock", sink.Name())

	block := buffer.New(2, 4)
	assert.ErrorIs(t, sink.Write(ctx, block), io.ErrClosedPipe, "write before start")

	require.NoError(t, sink.Start(ctx))
	block.Channel(0)[1] = 0.5
	require.NoError(t, sink.Write(ctx, block))
	block.Channel(0)[1] = -0.5
	require.NoError(t, sink.Write(ctx, block))

	blocks := mock.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, 0.5, blocks[0].Channel(0)[1], "mock must store copies")
	assert.Equal(t, -0.5, blocks[1].Channel(0)[1])

	stats := mock.Stats()
	assert.Equal(t, int64(2), stats.BlocksWritten)
	assert.Equal(t, int64(8), stats.FramesWritten)
	assert.True(t, stats.Running)

	require.NoError(t, sink.Stop())
	require.NoError(t, sink.Stop())
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	assert.ErrorIs(t, sink.Start(ctx), io.ErrClosedPipe)
}

func TestMockSinkHonorsContext(t *testing.T) {
	sink := NewMockSink(DefaultConfig(), quietLogger())
	require.NoError(t, sink.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Write(ctx, buffer.New(2, 1)), context.Canceled)
	assert.Empty(t, sink.Blocks())
}

func TestWAVSinkRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out.wav")
	cfg := Config{
		Backend:    BackendWAV,
		SampleRate: 8000,
		Channels:   2,
		BlockSize:  4,
		Path:       path,
	}

	sink, err := NewSink(cfg, quietLogger())
	require.NoError(t, err)
	require.NoError(t, sink.Start(ctx))

	block := buffer.FromChannels(
		[]float64{0, 1, -1, 2},
		[]float64{0.5, -0.5, 0, -3},
	)
	require.NoError(t, sink.Write(ctx, block))

	mono := buffer.FromChannels([]float64{0.25, 0.25})
	require.NoError(t, sink.Write(ctx, mono))
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, uint32(8000), dec.SampleRate)
	assert.Equal(t, uint16(2), dec.NumChans)
	assert.Equal(t, uint16(16), dec.BitDepth)

	want := []int{
		0, 16384,
		32767, -16384,
		-32767, 0,
		32767, -32767,
		8192, 8192,
		8192, 8192,
	}
	assert.Equal(t, want, buf.Data)
}

func TestWAVSinkCreateError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendWAV
	cfg.Path = filepath.Join(t.TempDir(), "missing", "out.wav")

	_, err := NewSink(cfg, quietLogger())
	assert.Error(t, err)
}

func TestNewSinkRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channels = -1

	_, err := NewSink(cfg, nil)
	assert.Error(t, err)
}
