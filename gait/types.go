package gait

import "fmt"

// ImuSample is one trunk IMU reading: vertical acceleration in g and
// gyroscopic rate about the vertical axis.
type ImuSample struct {
	AccelY float64
	GyroY  float64
}

// Foot identifies a foot.
type Foot uint8

const (
	FootUnknown Foot = iota
	Left
	Right
)

func (f Foot) String() string {
	switch f {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Opposite returns the other foot. FootUnknown has no opposite.
func (f Foot) Opposite() Foot {
	switch f {
	case Left:
		return Right
	case Right:
		return Left
	default:
		return FootUnknown
	}
}

// Phase is the detector's gait phase.
type Phase uint8

const (
	PhaseUnknown Phase = iota
	StanceReversal
	SwingReversal
)

func (p Phase) String() string {
	switch p {
	case StanceReversal:
		return "stance-reversal"
	case SwingReversal:
		return "swing-reversal"
	default:
		return "unknown"
	}
}

// EventType identifies a gait event.
type EventType uint8

const (
	EventUnknown EventType = iota
	ToeOff
	InitialContact

	numEventTypes
)

func (t EventType) String() string {
	switch t {
	case ToeOff:
		return "toe-off"
	case InitialContact:
		return "initial-contact"
	default:
		return "unknown"
	}
}

// Event is a detected gait event. TimeMs and Sample locate the event in the
// stream; IntervalMs is the gap to the previous event of the same type, or 0
// for the first.
type Event struct {
	Type       EventType
	Foot       Foot
	TimeMs     float64
	Sample     int
	AccelValue float64
	IntervalMs float64
}

// Valid reports whether e is a real event rather than the zero value.
func (e Event) Valid() bool {
	return e.Type != EventUnknown
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%s @%.2fms #%d)", e.Type, e.Foot, e.TimeMs, e.Sample)
}

// GroundContact is the interval from an initial contact to the toe-off that
// closes it.
type GroundContact struct {
	InitialContact Event
	ToeOff         Event
	DurationMs     float64
	Foot           Foot
}

// Valid reports whether both bounding events are real.
func (c GroundContact) Valid() bool {
	return c.InitialContact.Valid() && c.ToeOff.Valid()
}

// GroundContactInfo summarizes recent ground contacts. Balance is
// RightAvgMs / (LeftAvgMs + RightAvgMs), or 0.5 when either foot has no
// contacts in the window.
type GroundContactInfo struct {
	Recent     []GroundContact
	LeftAvgMs  float64
	RightAvgMs float64
	Balance    float64
}

// AlternationPolicy decides the foot of a toe-off whose gyro sign repeats
// the previous toe-off's foot.
type AlternationPolicy uint8

const (
	// ToggleGuard forces the opposite foot on every other repeat and lets the
	// gyro sign stand on the others.
	ToggleGuard AlternationPolicy = iota
	// TrustGyro always uses the gyro sign.
	TrustGyro
	// ForceAlternation always uses the opposite of the previous toe-off.
	ForceAlternation
)

func (p AlternationPolicy) String() string {
	switch p {
	case ToggleGuard:
		return "toggle-guard"
	case TrustGyro:
		return "trust-gyro"
	case ForceAlternation:
		return "force-alternation"
	default:
		return "unknown"
	}
}

// ParseAlternationPolicy parses the String form of a policy.
func ParseAlternationPolicy(s string) (AlternationPolicy, error) {
	for _, p := range []AlternationPolicy{ToggleGuard, TrustGyro, ForceAlternation} {
		if p.String() == s {
			return p, nil
		}
	}

	return ToggleGuard, fmt.Errorf("gait alternation policy must be toggle-guard, trust-gyro or force-alternation: %q", s)
}
