// Package audioio delivers rendered blocks to an output.
//
// Backends:
//   - PortAudio: the default output device, blocking writes (requires the
//     portaudio build tag and the PortAudio C library)
//   - WAV: a 16-bit PCM file for headless renders
//   - Mock: records blocks in memory for tests
package audioio

import (
	"errors"
	"fmt"
	"strings"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendPortAudio plays through the default PortAudio output device.
	BackendPortAudio Backend = "portaudio"
	// BackendWAV writes a WAV file.
	BackendWAV Backend = "wav"
	// BackendMock records blocks in memory.
	BackendMock Backend = "mock"
)

// ErrBackendUnavailable is returned for a backend that was not compiled in.
var ErrBackendUnavailable = errors.New("audioio: backend not available in this build")

// ParseBackend parses a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendPortAudio, BackendWAV, BackendMock:
		return b, nil
	default:
		return "", fmt.Errorf("audioio backend unknown: %q", s)
	}
}

// Config holds audio output configuration.
type Config struct {
	// Backend selects the output.
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the output rate in Hz.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of output channels.
	Channels int `yaml:"channels" json:"channels"`

	// BlockSize is the number of frames per device buffer.
	BlockSize int `yaml:"block_size" json:"block_size"`

	// Path is the output file of the WAV backend.
	Path string `yaml:"path" json:"path"`
}

// DefaultConfig returns 44.1 kHz stereo PortAudio output.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendPortAudio,
		SampleRate: 44100,
		Channels:   2,
		BlockSize:  512,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", c.BlockSize)
	}
	if c.Backend == BackendWAV && strings.TrimSpace(c.Path) == "" {
		return errors.New("wav backend requires an output path")
	}
	return nil
}
