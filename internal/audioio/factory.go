package audioio

import (
	"fmt"
	"log/slog"
)

// NewSink creates a sink for cfg.Backend.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("creating audio sink",
		"backend", cfg.Backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"block_size", cfg.BlockSize,
	)

	switch cfg.Backend {
	case BackendMock:
		return NewMockSink(cfg, logger), nil
	case BackendWAV:
		return NewWAVSink(cfg, logger)
	case BackendPortAudio:
		return newPortAudioSink(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}
