package testutil

// Acceleration levels of the synthetic stride, in g.
const (
	gaitContactLevel = -1.3
	gaitSwingLevel   = -0.9
)

// Rise from the contact level through a local minimum below -1.5 g into
// the stance window, then a one-sample dip that forms a jerk maximum.
var gaitStanceRamp = []float64{-1.6, -2.0, -1.9, -1.5, -1.0, -0.8, gaitSwingLevel}

// Minimum plateau lengths, in samples, that clear the detector's default
// interval guards at a 6.75 ms sample period.
const (
	MinGaitLead    = 20
	MinGaitContact = 8
	MinGaitSwing   = 10
)

// GaitPattern describes a synthetic walk for the gait detector.
//
// The walk starts with Lead flat samples. Each of the Steps strides holds
// the contact level for LeftContact or RightContact samples, climbs the
// stance ramp into a toe-off, holds the swing level for Swing samples, then
// drops back to the contact level, which confirms an initial contact.
// Toe-offs alternate left, right, left, ...; the gyro carries +Gyro during a
// left stride and -Gyro during a right one.
//
// With default detector settings each recorded ground contact lasts
// (hold+10) samples, and toe-offs are Swing+hold+8 samples apart.
type GaitPattern struct {
	Steps        int
	Lead         int
	LeftContact  int
	RightContact int
	Swing        int
	Gyro         float64
}

// DefaultGaitPattern returns a symmetric walk of the given number of
// toe-offs: 270 ms contacts and about 120 steps/min.
func DefaultGaitPattern(steps int) GaitPattern {
	return GaitPattern{
		Steps:        steps,
		Lead:         MinGaitLead,
		LeftContact:  30,
		RightContact: 30,
		Swing:        36,
		Gyro:         1,
	}
}

// GaitStrides renders p into parallel acceleration and gyro slices.
// Plateau lengths below the minimums are raised to them.
func GaitStrides(p GaitPattern) (accel, gyro []float64) {
	lead := max(p.Lead, MinGaitLead)
	left := max(p.LeftContact, MinGaitContact)
	right := max(p.RightContact, MinGaitContact)
	swing := max(p.Swing, MinGaitSwing)

	push := func(a, g float64, n int) {
		for range n {
			accel = append(accel, a)
			gyro = append(gyro, g)
		}
	}

	sign := func(step int) float64 {
		if step%2 == 0 {
			return p.Gyro
		}
		return -p.Gyro
	}

	push(0, sign(0), lead)
	push(gaitContactLevel, sign(0), 1)

	for step := range p.Steps {
		hold := left
		if step%2 == 1 {
			hold = right
		}

		g := sign(step)
		push(gaitContactLevel, g, hold)
		for _, a := range gaitStanceRamp {
			push(a, g, 1)
		}

		next := sign(step + 1)
		push(gaitSwingLevel, next, swing)
		push(gaitContactLevel, next, 1)
	}

	push(gaitContactLevel, sign(p.Steps), 4)

	return accel, gyro
}
