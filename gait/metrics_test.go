package gait

import (
	"math"
	"testing"
)

func contact(foot Foot, durationMs float64) GroundContact {
	return GroundContact{
		InitialContact: Event{Type: InitialContact, Foot: foot},
		ToeOff:         Event{Type: ToeOff, Foot: foot.Opposite(), TimeMs: durationMs},
		DurationMs:     durationMs,
		Foot:           foot,
	}
}

func TestSummarizeContacts(t *testing.T) {
	tests := []struct {
		name     string
		contacts []GroundContact
		left     float64
		right    float64
		balance  float64
	}{
		{
			name:    "empty",
			balance: 0.5,
		},
		{
			name:     "symmetric",
			contacts: []GroundContact{contact(Left, 300), contact(Right, 300), contact(Left, 300)},
			left:     300,
			right:    300,
			balance:  0.5,
		},
		{
			name:     "right longer",
			contacts: []GroundContact{contact(Left, 200), contact(Right, 300)},
			left:     200,
			right:    300,
			balance:  0.6,
		},
		{
			name:     "left only",
			contacts: []GroundContact{contact(Left, 250), contact(Left, 350)},
			left:     300,
			balance:  0.5,
		},
		{
			name:     "right only",
			contacts: []GroundContact{contact(Right, 280)},
			right:    280,
			balance:  0.5,
		},
		{
			name:     "invalid ignored",
			contacts: []GroundContact{contact(Left, 100), {DurationMs: 900, Foot: Right}, contact(Right, 300)},
			left:     100,
			right:    300,
			balance:  0.75,
		},
		{
			name:     "unknown foot ignored",
			contacts: []GroundContact{contact(Left, 100), contact(FootUnknown, 500), contact(Right, 100)},
			left:     100,
			right:    100,
			balance:  0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summarizeContacts(tt.contacts)
			if math.Abs(got.LeftAvgMs-tt.left) > 1e-12 ||
				math.Abs(got.RightAvgMs-tt.right) > 1e-12 ||
				math.Abs(got.Balance-tt.balance) > 1e-12 {
				t.Fatalf("summarizeContacts() = %+v, want left=%v right=%v balance=%v",
					got, tt.left, tt.right, tt.balance)
			}
		})
	}
}

func TestCadenceFromEvents(t *testing.T) {
	toeOff := func(interval float64) Event {
		return Event{Type: ToeOff, Foot: Left, IntervalMs: interval}
	}

	tests := []struct {
		name   string
		events []Event
		want   float64
	}{
		{name: "none", want: 0},
		{name: "first toe-off only", events: []Event{toeOff(0)}, want: 0},
		{name: "single interval", events: []Event{toeOff(500), toeOff(0)}, want: 120},
		{name: "mean interval", events: []Event{toeOff(400), toeOff(600)}, want: 120},
		{
			name: "contacts ignored",
			events: []Event{
				{Type: InitialContact, IntervalMs: 100},
				toeOff(1000),
			},
			want: 60,
		},
		{name: "zero events ignored", events: []Event{{}, toeOff(600)}, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cadenceFromEvents(tt.events); math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("cadenceFromEvents() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClampUnit(t *testing.T) {
	for _, tt := range []struct{ in, want float64 }{{-1, 0}, {0.25, 0.25}, {2, 1}} {
		if got := clampUnit(tt.in); got != tt.want {
			t.Fatalf("clampUnit(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
