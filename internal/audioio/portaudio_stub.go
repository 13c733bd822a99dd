//go:build !portaudio

package audioio

import (
	"fmt"
	"log/slog"
)

func newPortAudioSink(cfg Config, logger *slog.Logger) (Sink, error) {
	return nil, fmt.Errorf("%w: %s (rebuild with -tags portaudio)", ErrBackendUnavailable, BackendPortAudio)
}
