package gait

// GroundContactInfo averages, per foot, the ground-contact durations among
// the most recent 2*StrideLookback contacts.
func (d *Detector) GroundContactInfo() GroundContactInfo {
	recent := validOnly(d.contacts.Samples(2*d.strideLookback), GroundContact.Valid)
	info := summarizeContacts(recent)
	info.Recent = recent

	return info
}

// GtcBalance returns the ground-contact-time balance in [0, 1]: 0 is all
// left, 1 is all right, 0.5 is symmetric or unknown.
func (d *Detector) GtcBalance() float64 {
	return d.GroundContactInfo().Balance
}

// Cadence returns the step rate in steps per minute from the toe-off
// intervals among the most recent 4*StrideLookback events, or 0 when there
// are none.
func (d *Detector) Cadence() float64 {
	return cadenceFromEvents(d.events.Samples(4 * d.strideLookback))
}

func summarizeContacts(contacts []GroundContact) GroundContactInfo {
	var (
		leftSum, rightSum float64
		leftN, rightN     int
	)

	for _, c := range contacts {
		if !c.Valid() {
			continue
		}

		switch c.Foot {
		case Left:
			leftSum += c.DurationMs
			leftN++
		case Right:
			rightSum += c.DurationMs
			rightN++
		}
	}

	info := GroundContactInfo{Balance: 0.5}
	if leftN > 0 {
		info.LeftAvgMs = leftSum / float64(leftN)
	}
	if rightN > 0 {
		info.RightAvgMs = rightSum / float64(rightN)
	}

	if leftN > 0 && rightN > 0 {
		total := info.LeftAvgMs + info.RightAvgMs
		if total > 0 {
			info.Balance = clampUnit(info.RightAvgMs / total)
		}
	}

	return info
}

// The first toe-off has no predecessor and carries a zero interval; it
// does not count towards the mean.
func cadenceFromEvents(events []Event) float64 {
	sum := 0.0
	n := 0
	for _, ev := range events {
		if ev.Type != ToeOff || ev.IntervalMs <= 0 {
			continue
		}

		sum += ev.IntervalMs
		n++
	}

	if n == 0 {
		return 0
	}

	return 60000 / (sum / float64(n))
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
