package gait

import (
	"fmt"
	"math"

	"github.com/cwbudde/gait-sonify/dsp/core"
	"github.com/cwbudde/gait-sonify/dsp/filter/biquad"
	"github.com/cwbudde/gait-sonify/dsp/filter/design"
)

const lowpassTolerance = 1e-6

const (
	// SamplePeriodMs is the nominal IMU sample period.
	SamplePeriodMs = 6.75

	defaultStanceWindowLow        = -1.2
	defaultStanceWindowHigh       = -0.5
	defaultLocalMinimumThreshold  = -1.5
	defaultToeOffMinIntervalMs    = 125.0
	defaultContactMinIntervalMs   = 75.0
	defaultJerkThreshold          = -12.5
	defaultAccelThreshold         = -1.0
	defaultContactLookbackSamples = 4
	defaultStrideLookback         = 4

	// MinImuHistory is the smallest accepted accelerometer history.
	MinImuHistory = 500

	defaultImuHistory     = 512
	defaultEventHistory   = 50
	defaultContactHistory = 50
	jerkHistory           = 3

	// MaxStrideLookback bounds the stride lookback so that the metric
	// windows fit in the event and contact histories.
	MaxStrideLookback = 10
)

// DefaultGyroFilter returns the gyro denoising low-pass: a second-order
// Butterworth at 5 Hz for the 6.75 ms sample period.
func DefaultGyroFilter() biquad.Coefficients {
	return biquad.Coefficients{
		B0: 0.009749109990187965,
		B1: 0.01949821998037593,
		B2: 0.009749109990187965,
		A1: -1.7019112214231407,
		A2: 0.7409076613838924,
	}
}

// Option mutates detector construction parameters.
type Option func(*config) error

type config struct {
	samplePeriodMs         float64
	stanceWindowLow        float64
	stanceWindowHigh       float64
	localMinimumThreshold  float64
	toeOffMinIntervalMs    float64
	contactMinIntervalMs   float64
	jerkThreshold          float64
	accelThreshold         float64
	contactLookbackSamples int
	strideLookback         int
	alternation            AlternationPolicy
	gyroFilter             biquad.Coefficients
	gyroCutoffHz           float64
	imuHistory             int
	eventHistory           int
	contactHistory         int
}

func defaultConfig() config {
	return config{
		samplePeriodMs:         SamplePeriodMs,
		stanceWindowLow:        defaultStanceWindowLow,
		stanceWindowHigh:       defaultStanceWindowHigh,
		localMinimumThreshold:  defaultLocalMinimumThreshold,
		toeOffMinIntervalMs:    defaultToeOffMinIntervalMs,
		contactMinIntervalMs:   defaultContactMinIntervalMs,
		jerkThreshold:          defaultJerkThreshold,
		accelThreshold:         defaultAccelThreshold,
		contactLookbackSamples: defaultContactLookbackSamples,
		strideLookback:         defaultStrideLookback,
		alternation:            ToggleGuard,
		gyroFilter:             DefaultGyroFilter(),
		imuHistory:             defaultImuHistory,
		eventHistory:           defaultEventHistory,
		contactHistory:         defaultContactHistory,
	}
}

// WithSamplePeriodMs sets the IMU sample period in milliseconds.
func WithSamplePeriodMs(ms float64) Option {
	return func(cfg *config) error {
		if err := positiveFinite("sample period", ms); err != nil {
			return err
		}

		cfg.samplePeriodMs = ms

		return nil
	}
}

// WithStanceWindow sets the acceleration range (low, high) in which the
// stance reversal may begin.
func WithStanceWindow(low, high float64) Option {
	return func(cfg *config) error {
		if !isFinite(low) || !isFinite(high) || low >= high {
			return fmt.Errorf("gait stance window must be finite with low < high: low=%f high=%f", low, high)
		}

		cfg.stanceWindowLow = low
		cfg.stanceWindowHigh = high

		return nil
	}
}

// WithLocalMinimumThreshold sets how deep the preceding acceleration minimum
// must be before a stance reversal is accepted.
func WithLocalMinimumThreshold(threshold float64) Option {
	return func(cfg *config) error {
		if !isFinite(threshold) {
			return fmt.Errorf("gait local minimum threshold must be finite: %f", threshold)
		}

		cfg.localMinimumThreshold = threshold

		return nil
	}
}

// WithToeOffMinIntervalMs sets the minimum time from an initial contact to
// the next toe-off.
func WithToeOffMinIntervalMs(ms float64) Option {
	return func(cfg *config) error {
		if err := positiveFinite("toe-off min interval", ms); err != nil {
			return err
		}

		cfg.toeOffMinIntervalMs = ms

		return nil
	}
}

// WithContactMinIntervalMs sets the minimum time from a toe-off to the next
// initial contact.
func WithContactMinIntervalMs(ms float64) Option {
	return func(cfg *config) error {
		if err := positiveFinite("initial contact min interval", ms); err != nil {
			return err
		}

		cfg.contactMinIntervalMs = ms

		return nil
	}
}

// WithJerkThreshold sets the (negative) jerk an initial contact must drop
// below, in g/s.
func WithJerkThreshold(threshold float64) Option {
	return func(cfg *config) error {
		if !isFinite(threshold) || threshold >= 0 {
			return fmt.Errorf("gait jerk threshold must be < 0 and finite: %f", threshold)
		}

		cfg.jerkThreshold = threshold

		return nil
	}
}

// WithAccelThreshold sets the (negative) acceleration an initial contact
// must drop below, in g.
func WithAccelThreshold(threshold float64) Option {
	return func(cfg *config) error {
		if !isFinite(threshold) || threshold >= 0 {
			return fmt.Errorf("gait accel threshold must be < 0 and finite: %f", threshold)
		}

		cfg.accelThreshold = threshold

		return nil
	}
}

// WithContactLookback sets how many samples an initial contact is back-dated
// from the sample that confirms it.
func WithContactLookback(samples int) Option {
	return func(cfg *config) error {
		if samples < 0 {
			return fmt.Errorf("gait contact lookback must be >= 0: %d", samples)
		}

		cfg.contactLookbackSamples = samples

		return nil
	}
}

// WithStrideLookback sets how many strides the metrics average over.
func WithStrideLookback(strides int) Option {
	return func(cfg *config) error {
		if err := validateStrideLookback(strides); err != nil {
			return err
		}

		cfg.strideLookback = strides

		return nil
	}
}

// WithAlternationPolicy sets how repeated same-foot toe-offs are labelled.
func WithAlternationPolicy(policy AlternationPolicy) Option {
	return func(cfg *config) error {
		if policy > ForceAlternation {
			return fmt.Errorf("gait alternation policy unknown: %d", policy)
		}

		cfg.alternation = policy

		return nil
	}
}

// WithGyroFilter replaces the gyro denoising filter coefficients.
func WithGyroFilter(c biquad.Coefficients) Option {
	return func(cfg *config) error {
		cfg.gyroFilter = c
		cfg.gyroCutoffHz = 0

		return nil
	}
}

// WithGyroCutoffHz designs a Butterworth gyro low-pass at the given cutoff
// for the configured sample period.
func WithGyroCutoffHz(hz float64) Option {
	return func(cfg *config) error {
		if err := positiveFinite("gyro cutoff", hz); err != nil {
			return err
		}

		cfg.gyroCutoffHz = hz

		return nil
	}
}

// WithHistorySizes sets the capacities of the IMU, event and ground-contact
// histories.
func WithHistorySizes(imu, events, contacts int) Option {
	return func(cfg *config) error {
		if imu < MinImuHistory {
			return fmt.Errorf("gait imu history must be >= %d: %d", MinImuHistory, imu)
		}

		if events < 4*MaxStrideLookback {
			return fmt.Errorf("gait event history must be >= %d: %d", 4*MaxStrideLookback, events)
		}

		if contacts < 2*MaxStrideLookback {
			return fmt.Errorf("gait contact history must be >= %d: %d", 2*MaxStrideLookback, contacts)
		}

		cfg.imuHistory = imu
		cfg.eventHistory = events
		cfg.contactHistory = contacts

		return nil
	}
}

func (cfg *config) finish() error {
	if cfg.gyroCutoffHz > 0 {
		sampleRate := 1000 / cfg.samplePeriodMs
		if cfg.gyroCutoffHz >= sampleRate/2 {
			return fmt.Errorf("gait gyro cutoff must be below Nyquist (%f Hz): %f", sampleRate/2, cfg.gyroCutoffHz)
		}

		c := design.Lowpass(cfg.gyroCutoffHz, design.ButterworthQ, sampleRate)
		if err := checkLowpass(c, cfg.gyroCutoffHz, sampleRate); err != nil {
			return err
		}

		cfg.gyroFilter = c
	}

	return nil
}

// checkLowpass rejects a designed gyro filter that does not pass DC at unity
// or is not 3 dB down at its cutoff.
func checkLowpass(c biquad.Coefficients, cutoffHz, sampleRate float64) error {
	if g := c.DCGain(); !core.NearlyEqual(g, 1, lowpassTolerance) {
		return fmt.Errorf("gait gyro filter has DC gain %f at cutoff %f Hz", g, cutoffHz)
	}

	want := core.LinearToDB(design.ButterworthQ)
	if db := c.MagnitudeDB(cutoffHz, sampleRate); !core.NearlyEqual(db, want, lowpassTolerance) {
		return fmt.Errorf("gait gyro filter is %f dB at cutoff %f Hz, want %f", db, cutoffHz, want)
	}

	return nil
}

func validateStrideLookback(strides int) error {
	if strides < 1 || strides > MaxStrideLookback {
		return fmt.Errorf("gait stride lookback must be in [1, %d]: %d", MaxStrideLookback, strides)
	}

	return nil
}

func positiveFinite(name string, v float64) error {
	if v <= 0 || !isFinite(v) {
		return fmt.Errorf("gait %s must be > 0 and finite: %f", name, v)
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
