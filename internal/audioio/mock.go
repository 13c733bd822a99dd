package audioio

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
)

// MockSink records copies of every written block.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	blocks  []*buffer.Block

	blocksWritten atomic.Int64
	framesWritten atomic.Int64
}

// NewMockSink creates a new mock audio sink.
func NewMockSink(cfg Config, logger *slog.Logger) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}

	return &MockSink{cfg: cfg, logger: logger}
}

// Start begins accepting audio.
func (m *MockSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}

	m.running = true
	m.logger.Info("mock audio sink started")

	return nil
}

// Stop halts audio acceptance.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		m.running = false
		m.logger.Info("mock audio sink stopped")
	}

	return nil
}

// Write records a copy of block.
func (m *MockSink) Write(ctx context.Context, block *buffer.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.running {
		return io.ErrClosedPipe
	}

	m.blocks = append(m.blocks, block.Copy())
	m.blocksWritten.Add(1)
	m.framesWritten.Add(int64(block.NumFrames()))

	return nil
}

// Blocks returns the recorded blocks.
func (m *MockSink) Blocks() []*buffer.Block {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]*buffer.Block(nil), m.blocks...)
}

// Config returns the audio configuration.
func (m *MockSink) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSink) Name() string {
	return string(BackendMock)
}

// Close releases resources.
func (m *MockSink) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	return m.Stop()
}

// Stats returns sink statistics.
func (m *MockSink) Stats() SinkStats {
	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	return SinkStats{
		BlocksWritten: m.blocksWritten.Load(),
		FramesWritten: m.framesWritten.Load(),
		Running:       running,
		Backend:       string(BackendMock),
	}
}

var _ SinkWithStats = (*MockSink)(nil)
