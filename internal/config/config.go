// Package config holds the runtime configuration of the gaitsonify CLI.
//
// Values are layered, lowest priority first: built-in defaults, an optional
// YAML file, GAIT_* environment variables, command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/gait-sonify/gait"
	"github.com/cwbudde/gait-sonify/internal/audioio"
	"github.com/cwbudde/gait-sonify/internal/log"
	"github.com/cwbudde/gait-sonify/sonify"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "GAIT_"

	MinSpeed = 0.01
	MaxSpeed = 3.0
)

// LookupFunc reads an environment variable, as os.LookupEnv does.
type LookupFunc func(key string) (string, bool)

// Config holds all runtime settings.
type Config struct {
	// Capture is the IMU capture CSV to replay.
	Capture string `yaml:"capture" json:"capture"`

	// HeaderLines is the number of lines skipped before the first data row.
	HeaderLines int `yaml:"header_lines" json:"header_lines"`

	// Mode is the sonification mode name.
	Mode string `yaml:"mode" json:"mode"`

	// Speed scales the replay rate (1 is real time).
	Speed float64 `yaml:"speed" json:"speed"`

	// Realtime paces playback by the wall clock. When false the capture is
	// rendered as fast as the sink accepts it.
	Realtime bool `yaml:"realtime" json:"realtime"`

	// StrideLookback is the number of strides the metrics average over.
	StrideLookback int `yaml:"stride_lookback" json:"stride_lookback"`

	// Alternation is the detector's foot alternation policy.
	Alternation string `yaml:"alternation" json:"alternation"`

	Mapping sonify.MappingConfig `yaml:"mapping" json:"mapping"`

	Audio audioio.Config `yaml:"audio" json:"audio"`

	// FeedAddr is the listen address of the metric feed; empty disables it.
	FeedAddr string `yaml:"feed_addr" json:"feed_addr"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		HeaderLines:    215,
		Mode:           sonify.ModeRhythmic.String(),
		Speed:          1,
		Realtime:       true,
		StrideLookback: 4,
		Alternation:    gait.ToggleGuard.String(),
		Mapping:        sonify.DefaultMappingConfig(),
		Audio:          audioio.DefaultConfig(),
		LogLevel:       "info",
	}
}

// RegisterFlags binds every field to a flag on fs, using the current values
// as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Capture, "capture", c.Capture, "IMU capture CSV file (or first positional argument)")
	fs.IntVar(&c.HeaderLines, "header-lines", c.HeaderLines, "lines to skip before the first data row")
	fs.StringVar(&c.Mode, "mode", c.Mode, "sonification mode: rhythmic, constant or allpass")
	fs.Float64Var(&c.Speed, "speed", c.Speed, "replay speed (0.01 to 3)")
	fs.BoolVar(&c.Realtime, "realtime", c.Realtime, "pace playback by the wall clock")
	fs.IntVar(&c.StrideLookback, "lookback", c.StrideLookback, "strides averaged by the metrics (1 to 10)")
	fs.StringVar(&c.Alternation, "alternation", c.Alternation, "foot alternation policy: toggle-guard, trust-gyro or force-alternation")

	m := &c.Mapping
	fs.Float64Var(&m.AsymmetryThresholdLow, "threshold-low", m.AsymmetryThresholdLow, "balance above which modulation starts")
	fs.Float64Var(&m.AsymmetryThresholdHigh, "threshold-high", m.AsymmetryThresholdHigh, "balance above which reverb starts")
	fs.Float64Var(&m.CarrierLowHz, "carrier-low", m.CarrierLowHz, "carrier frequency at 100 steps/min (Hz)")
	fs.Float64Var(&m.CarrierHighHz, "carrier-high", m.CarrierHighHz, "carrier frequency at 300 steps/min (Hz)")
	fs.Float64Var(&m.ModulationMultiplier, "mod-multiplier", m.ModulationMultiplier, "FM modulation multiplier")
	fs.Float64Var(&m.DecaySeconds, "decay", m.DecaySeconds, "rhythmic note decay (s)")
	fs.Float64Var(&m.AllpassGain1, "allpass-gain1", m.AllpassGain1, "first allpass bank gain (0 to 1)")
	fs.Float64Var(&m.AllpassGain2, "allpass-gain2", m.AllpassGain2, "second allpass bank gain (0 to 1)")
	fs.Float64Var(&m.ReverbMultiplier, "reverb-multiplier", m.ReverbMultiplier, "reverb amount multiplier")

	a := &c.Audio
	fs.StringVar((*string)(&a.Backend), "backend", string(a.Backend), "audio backend: portaudio, wav or mock")
	fs.StringVar(&a.Path, "wav", a.Path, "WAV output file for the wav backend")
	fs.IntVar(&a.SampleRate, "sample-rate", a.SampleRate, "output sample rate (Hz)")
	fs.IntVar(&a.BlockSize, "block-size", a.BlockSize, "frames per render block")
	fs.IntVar(&a.Channels, "channels", a.Channels, "output channels")

	fs.StringVar(&c.FeedAddr, "feed", c.FeedAddr, "metric feed listen address, e.g. :8080 (empty disables)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn or error")
}

// Load builds the configuration from defaults, the file named by -config or
// GAIT_CONFIG, the environment and args, then validates it.
func Load(args []string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}

	path := configPath(args, lookup)

	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}

	fs := newFlagSet(&cfg, new(string))
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		cfg.Capture = fs.Arg(0)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func newFlagSet(cfg *Config, path *string) *flag.FlagSet {
	fs := flag.NewFlagSet("gaitsonify", flag.ContinueOnError)
	fs.StringVar(path, "config", *path, "YAML configuration file")
	cfg.RegisterFlags(fs)
	return fs
}

// configPath finds the config file before the other layers are applied.
// Flag errors are left for the final parse to report.
func configPath(args []string, lookup LookupFunc) string {
	var path string
	if v, ok := lookup(EnvPrefix + "CONFIG"); ok {
		path = v
	}

	scratch := Default()
	fs := newFlagSet(&scratch, &path)
	fs.SetOutput(io.Discard)
	_ = fs.Parse(args)

	return strings.TrimSpace(path)
}

// LoadFile overlays the YAML file at path onto c. Fields absent from the
// file keep their values; unknown fields are rejected.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	return nil
}

// ApplyEnv overlays GAIT_* variables onto c.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	strs := map[string]*string{
		"CAPTURE":     &c.Capture,
		"MODE":        &c.Mode,
		"ALTERNATION": &c.Alternation,
		"BACKEND":     (*string)(&c.Audio.Backend),
		"WAV":         &c.Audio.Path,
		"FEED_ADDR":   &c.FeedAddr,
		"LOG_LEVEL":   &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"HEADER_LINES": &c.HeaderLines,
		"LOOKBACK":     &c.StrideLookback,
		"SAMPLE_RATE":  &c.Audio.SampleRate,
		"BLOCK_SIZE":   &c.Audio.BlockSize,
		"CHANNELS":     &c.Audio.Channels,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config %s%s must be an integer: %q", EnvPrefix, key, v)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "REALTIME"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config %sREALTIME must be a boolean: %q", EnvPrefix, v)
		}
		c.Realtime = b
	}

	if v, ok := lookup(EnvPrefix + "SPEED"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("config %sSPEED must be a number: %q", EnvPrefix, v)
		}
		c.Speed = f
	}

	return nil
}

// Validate returns the first invalid setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Capture) == "" {
		return errors.New("config capture file is required")
	}
	if c.HeaderLines < 0 {
		return fmt.Errorf("config header lines must be >= 0: %d", c.HeaderLines)
	}
	if _, err := c.SonifyMode(); err != nil {
		return err
	}
	if !(c.Speed >= MinSpeed && c.Speed <= MaxSpeed) {
		return fmt.Errorf("config speed must be in [%g, %g]: %f", MinSpeed, MaxSpeed, c.Speed)
	}
	if c.StrideLookback < 1 || c.StrideLookback > gait.MaxStrideLookback {
		return fmt.Errorf("config stride lookback must be in [1, %d]: %d", gait.MaxStrideLookback, c.StrideLookback)
	}
	if _, err := c.AlternationPolicy(); err != nil {
		return err
	}
	if err := c.Mapping.Validate(); err != nil {
		return err
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("config audio: %w", err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// SonifyMode parses Mode.
func (c *Config) SonifyMode() (sonify.Mode, error) {
	return sonify.ParseMode(c.Mode)
}

// AlternationPolicy parses Alternation.
func (c *Config) AlternationPolicy() (gait.AlternationPolicy, error) {
	return gait.ParseAlternationPolicy(strings.ToLower(strings.TrimSpace(c.Alternation)))
}
