package sonify

import (
	"fmt"
	"math"

	"github.com/cwbudde/gait-sonify/dsp/core"
)

const (
	// Asymmetry thresholds are balances; their useful range is [0.5, 0.55].
	MinAsymmetryThreshold = 0.5
	MaxAsymmetryThreshold = 0.55

	MinCarrierHz = 100.0
	MaxCarrierHz = 1000.0

	minMappedCadence = 100.0
	maxMappedCadence = 300.0
	cadenceSlope     = 1 / (maxMappedCadence - minMappedCadence)

	rhythmicModulationOffset = 2.0
	constantModulationScale  = 0.5

	panScale = 30.0

	allpassOrderScale  = 5000
	allpassSecondRatio = 1.1
)

// MappingConfig holds the user-tunable mapping knobs.
type MappingConfig struct {
	AsymmetryThresholdLow  float64 `yaml:"asymmetry_threshold_low" json:"asymmetry_threshold_low"`
	AsymmetryThresholdHigh float64 `yaml:"asymmetry_threshold_high" json:"asymmetry_threshold_high"`
	CarrierLowHz           float64 `yaml:"carrier_low_hz" json:"carrier_low_hz"`
	CarrierHighHz          float64 `yaml:"carrier_high_hz" json:"carrier_high_hz"`
	ModulationMultiplier   float64 `yaml:"modulation_multiplier" json:"modulation_multiplier"`
	DecaySeconds           float64 `yaml:"decay_seconds" json:"decay_seconds"`
	AllpassGain1           float64 `yaml:"allpass_gain1" json:"allpass_gain1"`
	AllpassGain2           float64 `yaml:"allpass_gain2" json:"allpass_gain2"`
	ReverbMultiplier       float64 `yaml:"reverb_multiplier" json:"reverb_multiplier"`
}

// DefaultMappingConfig returns the tuned defaults.
func DefaultMappingConfig() MappingConfig {
	return MappingConfig{
		AsymmetryThresholdLow:  0.51,
		AsymmetryThresholdHigh: 0.53,
		CarrierLowHz:           220,
		CarrierHighHz:          660,
		ModulationMultiplier:   20,
		DecaySeconds:           0.2,
		AllpassGain1:           0.5,
		AllpassGain2:           0.5,
		ReverbMultiplier:       10,
	}
}

// Validate returns the first invalid field.
func (c MappingConfig) Validate() error {
	if !inRange(c.AsymmetryThresholdLow, MinAsymmetryThreshold, MaxAsymmetryThreshold) ||
		!inRange(c.AsymmetryThresholdHigh, MinAsymmetryThreshold, MaxAsymmetryThreshold) {
		return fmt.Errorf("sonify asymmetry thresholds must be in [%g, %g]: low=%f high=%f",
			MinAsymmetryThreshold, MaxAsymmetryThreshold, c.AsymmetryThresholdLow, c.AsymmetryThresholdHigh)
	}

	if c.AsymmetryThresholdLow > c.AsymmetryThresholdHigh {
		return fmt.Errorf("sonify asymmetry threshold low must not exceed high: low=%f high=%f",
			c.AsymmetryThresholdLow, c.AsymmetryThresholdHigh)
	}

	if !inRange(c.CarrierLowHz, MinCarrierHz, MaxCarrierHz) ||
		!inRange(c.CarrierHighHz, MinCarrierHz, MaxCarrierHz) ||
		c.CarrierLowHz > c.CarrierHighHz {
		return fmt.Errorf("sonify carrier range must be ordered within [%g, %g] Hz: low=%f high=%f",
			MinCarrierHz, MaxCarrierHz, c.CarrierLowHz, c.CarrierHighHz)
	}

	if c.ModulationMultiplier < 0 || !core.IsFinite(c.ModulationMultiplier) {
		return fmt.Errorf("sonify modulation multiplier must be >= 0 and finite: %f", c.ModulationMultiplier)
	}

	if c.DecaySeconds <= 0 || !core.IsFinite(c.DecaySeconds) {
		return fmt.Errorf("sonify decay must be > 0 and finite: %f", c.DecaySeconds)
	}

	if !inRange(c.AllpassGain1, 0, 1) || !inRange(c.AllpassGain2, 0, 1) {
		return fmt.Errorf("sonify allpass gains must be in [0, 1]: %f, %f", c.AllpassGain1, c.AllpassGain2)
	}

	if c.ReverbMultiplier < 0 || !core.IsFinite(c.ReverbMultiplier) {
		return fmt.Errorf("sonify reverb multiplier must be >= 0 and finite: %f", c.ReverbMultiplier)
	}

	return nil
}

// Targets are the synthesis values derived from one metric snapshot.
type Targets struct {
	// Asymmetry is balance-0.5, in [-0.5, 0.5]; positive leans right.
	Asymmetry float64
	// Amount is the normalized asymmetry above the low threshold, in [0, 1].
	Amount float64

	CarrierHz     float64
	Modulation    float64
	Pan           float64
	ReverbAmount  float64
	AllpassOrder1 int
	AllpassOrder2 int
}

// Map derives the targets for mode from a balance in [0, 1] and a cadence
// in steps per minute.
func Map(mode Mode, balance, cadence float64, c MappingConfig) Targets {
	if !core.IsFinite(balance) {
		balance = 0.5
	}
	if !core.IsFinite(cadence) {
		cadence = 0
	}

	asym := balance - 0.5
	abs := math.Abs(asym)
	amount := core.Clamp(abs+0.5-c.AsymmetryThresholdLow, 0, 1)

	t := Targets{
		Asymmetry: asym,
		Amount:    amount,
		CarrierHz: CarrierFrequency(cadence, c.CarrierLowHz, c.CarrierHighHz),
		Pan:       core.Clamp(asym*panScale, -1, 1),
		ReverbAmount: core.Clamp(
			c.ReverbMultiplier*core.Clamp(abs+0.5-c.AsymmetryThresholdHigh, 0, 1), 0, 1),
	}

	switch mode {
	case ModeRhythmic:
		if amount > 0 {
			t.Modulation = rhythmicModulationOffset + c.ModulationMultiplier*amount
		}
	case ModeConstant:
		t.Modulation = c.ModulationMultiplier * constantModulationScale * amount
	case ModeAllpass:
		t.AllpassOrder1, t.AllpassOrder2 = AllpassOrders(amount)
	}

	return t
}

// CarrierFrequency maps cadence in [100, 300] steps/min linearly onto
// [lo, hi] Hz; cadences outside the range are clamped.
func CarrierFrequency(cadence, lo, hi float64) float64 {
	return lo + (hi-lo)*(core.Clamp(cadence, minMappedCadence, maxMappedCadence)-minMappedCadence)*cadenceSlope
}

// AllpassOrders returns the delay orders of the two allpass banks for a
// normalized asymmetry amount. The second bank runs slightly longer so the
// two combs never align.
func AllpassOrders(amount float64) (int, int) {
	first := int(math.Floor(allpassOrderScale * core.Clamp(amount, 0, 1)))
	if first == 0 {
		return 0, 0
	}

	return first, 1 + int(math.Ceil(float64(first)*allpassSecondRatio))
}

// MaxAllpassOrder is the largest order AllpassOrders returns.
func MaxAllpassOrder() int {
	_, second := AllpassOrders(1)
	return second
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
