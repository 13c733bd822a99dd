package sonify

import (
	"fmt"
	"strings"
)

// Mode selects how metrics are rendered.
type Mode int

const (
	// ModeRhythmic plays an enveloped FM note on every toe-off.
	ModeRhythmic Mode = iota
	// ModeConstant sustains one FM note whose pitch and depth follow the gait.
	ModeConstant
	// ModeAllpass colours a steady drone with two allpass banks whose delay
	// grows with asymmetry.
	ModeAllpass
)

func (m Mode) String() string {
	switch m {
	case ModeRhythmic:
		return "rhythmic"
	case ModeConstant:
		return "constant"
	case ModeAllpass:
		return "allpass"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode name as printed by String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rhythmic":
		return ModeRhythmic, nil
	case "constant":
		return ModeConstant, nil
	case "allpass":
		return ModeAllpass, nil
	default:
		return ModeRhythmic, fmt.Errorf("sonify mode unknown: %q", s)
	}
}

func (m Mode) valid() bool {
	return m >= ModeRhythmic && m <= ModeAllpass
}
