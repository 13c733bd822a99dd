package gait

import (
	"math"
	"testing"

	"github.com/cwbudde/gait-sonify/dsp/filter/biquad"
	"github.com/cwbudde/gait-sonify/dsp/filter/design"
	"github.com/cwbudde/gait-sonify/internal/testutil"
)

type sliceSource struct {
	accel, gyro []float64
	pos         int
}

func (s *sliceSource) Next() (ImuSample, bool) {
	if s.pos >= len(s.accel) {
		return ImuSample{}, false
	}
	sample := ImuSample{AccelY: s.accel[s.pos], GyroY: s.gyro[s.pos]}
	s.pos++
	return sample, true
}

type firedEvent struct {
	sample int
	typ    EventType
}

func newTestDetector(t *testing.T, opts ...Option) *Detector {
	t.Helper()
	d, err := NewDetector(opts...)
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	return d
}

func run(d *Detector, accel, gyro []float64) []firedEvent {
	var fired []firedEvent
	src := &sliceSource{accel: accel, gyro: gyro}
	for d.ProcessNext(src) {
		for _, typ := range []EventType{ToeOff, InitialContact} {
			if d.HasEventNow(typ) {
				fired = append(fired, firedEvent{sample: d.ElapsedSamples() - 1, typ: typ})
			}
		}
	}
	return fired
}

// singleStride descends below -1.5 g, rises into the stance window, forms a
// jerk maximum, then drops sharply after a swing plateau.
func singleStride() []float64 {
	accel := make([]float64, 20)
	accel = append(accel, -0.5, -1.0, -1.6, -2.0, -1.9, -1.5, -1.0, -0.8, -0.9)
	for range 12 {
		accel = append(accel, -0.9)
	}
	return append(accel, -1.3, -1.3, -1.3, -1.3)
}

func TestDetectorSingleStride(t *testing.T) {
	d := newTestDetector(t)
	accel := singleStride()

	fired := run(d, accel, testutil.DC(1, len(accel)))

	want := []firedEvent{{sample: 28, typ: ToeOff}, {sample: 41, typ: InitialContact}}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired[%d] = %v, want %v", i, fired[i], want[i])
		}
	}

	events := d.Events()
	if len(events) != 2 {
		t.Fatalf("len(Events()) = %d, want 2", len(events))
	}

	ic, to := events[0], events[1]
	if to.Type != ToeOff || to.Foot != Left || to.Sample != 27 || math.Abs(to.TimeMs-27*SamplePeriodMs) > 1e-9 {
		t.Fatalf("toe-off = %+v", to)
	}
	if to.AccelValue != -0.8 || to.IntervalMs != 0 {
		t.Fatalf("toe-off accel=%v interval=%v, want -0.8 and 0", to.AccelValue, to.IntervalMs)
	}
	if ic.Type != InitialContact || ic.Foot != Right || ic.Sample != 37 || math.Abs(ic.TimeMs-37*SamplePeriodMs) > 1e-9 {
		t.Fatalf("initial contact = %+v", ic)
	}

	if len(d.GroundContacts()) != 0 {
		t.Fatal("an initial contact without a closing toe-off must not record a ground contact")
	}
	if d.Phase() != PhaseUnknown {
		t.Fatalf("Phase() = %v, want unknown", d.Phase())
	}
	if !d.Done() {
		t.Fatal("Done() = false after source exhausted")
	}
}

func TestDetectorFootFollowsGyroSign(t *testing.T) {
	d := newTestDetector(t)
	accel := singleStride()

	run(d, accel, testutil.DC(-1, len(accel)))

	events := d.Events()
	if len(events) != 2 || events[1].Foot != Right || events[0].Foot != Left {
		t.Fatalf("events = %v, want right toe-off then left contact", events)
	}
}

func TestDetectorWalk(t *testing.T) {
	p := testutil.DefaultGaitPattern(10)
	accel, gyro := testutil.GaitStrides(p)

	d := newTestDetector(t)
	fired := run(d, accel, gyro)

	if len(fired) != 20 {
		t.Fatalf("fired %d events, want 20", len(fired))
	}
	for i, f := range fired {
		want := ToeOff
		if i%2 == 1 {
			want = InitialContact
		}
		if f.typ != want {
			t.Fatalf("event %d = %v, want %v", i, f.typ, want)
		}
	}

	contacts := d.GroundContacts()
	if len(contacts) != 9 {
		t.Fatalf("len(GroundContacts()) = %d, want 9", len(contacts))
	}

	wantDuration := float64(p.LeftContact+10) * SamplePeriodMs
	for i, c := range contacts {
		if !c.Valid() {
			t.Fatalf("contact %d is not valid", i)
		}
		if math.Abs(c.DurationMs-wantDuration) > 1e-9 {
			t.Fatalf("contact %d duration = %v, want %v", i, c.DurationMs, wantDuration)
		}
		if c.Foot != c.InitialContact.Foot {
			t.Fatalf("contact %d foot %v differs from its initial contact %v", i, c.Foot, c.InitialContact.Foot)
		}
	}

	toeOffs := 0
	for _, ev := range d.Events() {
		if ev.Type != ToeOff {
			continue
		}
		wantFoot := Left
		if toeOffs%2 == 0 {
			// Events are newest first; the tenth toe-off is right.
			wantFoot = Right
		}
		if ev.Foot != wantFoot {
			t.Fatalf("toe-off %d from the end foot = %v, want %v", toeOffs, ev.Foot, wantFoot)
		}
		toeOffs++
	}

	info := d.GroundContactInfo()
	testutil.RequireNearlyEqual(t, info.Balance, 0.5, 1e-12)
	if len(info.Recent) != 8 {
		t.Fatalf("len(Recent) = %d, want 8", len(info.Recent))
	}
	testutil.RequireNearlyEqual(t, info.LeftAvgMs, wantDuration, 1e-9)
	testutil.RequireNearlyEqual(t, info.RightAvgMs, wantDuration, 1e-9)

	stepMs := float64(p.Swing+p.LeftContact+8) * SamplePeriodMs
	testutil.RequireNearlyEqual(t, d.Cadence(), 60000/stepMs, 1e-9)
}

func TestDetectorAsymmetricBalance(t *testing.T) {
	p := testutil.DefaultGaitPattern(10)
	p.LeftContact = 30
	p.RightContact = 50
	accel, gyro := testutil.GaitStrides(p)

	d := newTestDetector(t)
	run(d, accel, gyro)

	info := d.GroundContactInfo()
	testutil.RequireNearlyEqual(t, info.LeftAvgMs, 40*SamplePeriodMs, 1e-9)
	testutil.RequireNearlyEqual(t, info.RightAvgMs, 60*SamplePeriodMs, 1e-9)
	testutil.RequireNearlyEqual(t, info.Balance, 0.6, 1e-12)
	testutil.RequireNearlyEqual(t, d.GtcBalance(), 0.6, 1e-12)

	meanStep := float64(p.Swing+8) + float64(p.LeftContact+p.RightContact)/2
	testutil.RequireNearlyEqual(t, d.Cadence(), 60000/(meanStep*SamplePeriodMs), 1e-6)
}

func TestDetectorAlternationPolicies(t *testing.T) {
	accel, _ := testutil.GaitStrides(testutil.DefaultGaitPattern(5))
	gyro := testutil.DC(1, len(accel))

	tests := []struct {
		policy AlternationPolicy
		want   []Foot
	}{
		{policy: TrustGyro, want: []Foot{Left, Left, Left, Left, Left}},
		{policy: ForceAlternation, want: []Foot{Left, Right, Left, Right, Left}},
		{policy: ToggleGuard, want: []Foot{Left, Right, Left, Left, Right}},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			d := newTestDetector(t, WithAlternationPolicy(tt.policy))
			run(d, accel, gyro)

			var feet []Foot
			events := d.Events()
			for i := len(events) - 1; i >= 0; i-- {
				if events[i].Type == ToeOff {
					feet = append(feet, events[i].Foot)
				}
			}

			if len(feet) != len(tt.want) {
				t.Fatalf("toe-off feet = %v, want %v", feet, tt.want)
			}
			for i := range feet {
				if feet[i] != tt.want[i] {
					t.Fatalf("toe-off feet = %v, want %v", feet, tt.want)
				}
			}
		})
	}
}

func TestDetectorNoEvents(t *testing.T) {
	d := newTestDetector(t)
	run(d, testutil.DC(-1, 200), testutil.DC(1, 200))

	if got := d.Cadence(); got != 0 {
		t.Fatalf("Cadence() = %v, want 0", got)
	}
	info := d.GroundContactInfo()
	if info.Balance != 0.5 || info.LeftAvgMs != 0 || info.RightAvgMs != 0 || len(info.Recent) != 0 {
		t.Fatalf("GroundContactInfo() = %+v, want empty with balance 0.5", info)
	}
	if d.LastEvent().Valid() || d.LastGroundContact().Valid() {
		t.Fatal("no event should have been recorded")
	}
}

func TestDetectorStreamEnd(t *testing.T) {
	d := newTestDetector(t)
	src := &sliceSource{accel: []float64{0, 0}, gyro: []float64{0, 0}}

	if !d.ProcessNext(src) || !d.ProcessNext(src) {
		t.Fatal("ProcessNext() = false with samples remaining")
	}
	if d.ProcessNext(src) {
		t.Fatal("ProcessNext() = true on exhausted source")
	}
	if !d.Done() {
		t.Fatal("Done() = false after exhaustion")
	}

	d.Process(ImuSample{AccelY: 1})
	if d.ElapsedSamples() != 2 {
		t.Fatalf("ElapsedSamples() = %d after done, want 2", d.ElapsedSamples())
	}
	testutil.RequireNearlyEqual(t, d.CurrentTime(), 2*SamplePeriodMs, 1e-12)
}

func TestDetectorNonFiniteEndsStream(t *testing.T) {
	for _, s := range []ImuSample{{AccelY: math.NaN()}, {GyroY: math.Inf(1)}} {
		d := newTestDetector(t)
		d.Process(ImuSample{})
		d.Process(s)
		if !d.Done() {
			t.Fatalf("Done() = false after %+v", s)
		}
		if d.ElapsedSamples() != 1 {
			t.Fatalf("ElapsedSamples() = %d, want 1", d.ElapsedSamples())
		}
	}
}

func TestDetectorResetReplays(t *testing.T) {
	accel, gyro := testutil.GaitStrides(testutil.DefaultGaitPattern(6))

	d := newTestDetector(t)
	first := run(d, accel, gyro)
	firstInfo := d.GroundContactInfo()

	d.Reset()
	if d.Done() || d.ElapsedSamples() != 0 || d.Phase() != PhaseUnknown || len(d.Events()) != 0 {
		t.Fatal("Reset() did not restore the initial state")
	}

	second := run(d, accel, gyro)
	if len(first) != len(second) {
		t.Fatalf("replay fired %d events, first run %d", len(second), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("replay event %d = %v, first run %v", i, second[i], first[i])
		}
	}
	if d.GroundContactInfo().Balance != firstInfo.Balance {
		t.Fatal("replay balance differs")
	}
}

func TestDetectorStrideLookback(t *testing.T) {
	p := testutil.DefaultGaitPattern(10)
	accel, gyro := testutil.GaitStrides(p)

	d := newTestDetector(t, WithStrideLookback(2))
	run(d, accel, gyro)

	if got := len(d.GroundContactInfo().Recent); got != 4 {
		t.Fatalf("len(Recent) = %d, want 4", got)
	}

	if err := d.SetStrideLookback(1); err != nil {
		t.Fatalf("SetStrideLookback(1) error = %v", err)
	}
	if got := len(d.GroundContactInfo().Recent); got != 2 {
		t.Fatalf("len(Recent) = %d, want 2", got)
	}

	for _, n := range []int{0, -1, MaxStrideLookback + 1} {
		if err := d.SetStrideLookback(n); err == nil {
			t.Fatalf("SetStrideLookback(%d) expected error", n)
		}
	}
	if d.StrideLookback() != 1 {
		t.Fatalf("StrideLookback() = %d, want 1", d.StrideLookback())
	}
}

func TestDetectorHasEventNowClearsEachSample(t *testing.T) {
	d := newTestDetector(t)
	accel := singleStride()
	gyro := testutil.DC(1, len(accel))

	for i := 0; i <= 28; i++ {
		d.Process(ImuSample{AccelY: accel[i], GyroY: gyro[i]})
	}
	if !d.HasEventNow(ToeOff) {
		t.Fatal("HasEventNow(ToeOff) = false on the toe-off sample")
	}

	d.Process(ImuSample{AccelY: accel[29], GyroY: gyro[29]})
	if d.HasEventNow(ToeOff) || d.HasEventNow(InitialContact) {
		t.Fatal("HasEventNow should clear on the next sample")
	}
	if d.HasEventNow(EventType(99)) {
		t.Fatal("HasEventNow on an unknown type should be false")
	}
}

func TestNewDetectorValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{name: "zero sample period", opt: WithSamplePeriodMs(0)},
		{name: "nan sample period", opt: WithSamplePeriodMs(math.NaN())},
		{name: "reversed stance window", opt: WithStanceWindow(-0.5, -1.2)},
		{name: "nan local minimum", opt: WithLocalMinimumThreshold(math.NaN())},
		{name: "zero toe-off interval", opt: WithToeOffMinIntervalMs(0)},
		{name: "negative contact interval", opt: WithContactMinIntervalMs(-5)},
		{name: "positive jerk threshold", opt: WithJerkThreshold(1)},
		{name: "zero accel threshold", opt: WithAccelThreshold(0)},
		{name: "negative contact lookback", opt: WithContactLookback(-1)},
		{name: "zero stride lookback", opt: WithStrideLookback(0)},
		{name: "large stride lookback", opt: WithStrideLookback(MaxStrideLookback + 1)},
		{name: "unknown policy", opt: WithAlternationPolicy(AlternationPolicy(7))},
		{name: "zero gyro cutoff", opt: WithGyroCutoffHz(0)},
		{name: "gyro cutoff above nyquist", opt: WithGyroCutoffHz(100)},
		{name: "short imu history", opt: WithHistorySizes(100, 50, 50)},
		{name: "short event history", opt: WithHistorySizes(512, 10, 50)},
		{name: "short contact history", opt: WithHistorySizes(512, 50, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDetector(tt.opt); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGyroCutoffMatchesDefaultFilter(t *testing.T) {
	d := newTestDetector(t, WithGyroCutoffHz(5))
	got := d.cfg.gyroFilter
	want := DefaultGyroFilter()

	for _, pair := range [][2]float64{
		{got.B0, want.B0}, {got.B1, want.B1}, {got.B2, want.B2}, {got.A1, want.A1}, {got.A2, want.A2},
	} {
		testutil.RequireNearlyEqual(t, pair[0], pair[1], 1e-9)
	}
}

func TestSwingReversalRearmsStance(t *testing.T) {
	d := newTestDetector(t)
	for range 4 {
		d.Process(ImuSample{AccelY: -1})
	}

	// A swing whose contact drop was missed: a deep minimum followed by a
	// rise back into the stance window.
	d.phase = SwingReversal
	d.lastLocalMinimum = -2
	d.Process(ImuSample{AccelY: -0.8})

	if d.Phase() != StanceReversal {
		t.Fatalf("Phase() = %v, want StanceReversal", d.Phase())
	}
	if d.HasEventNow(InitialContact) || d.HasEventNow(ToeOff) {
		t.Fatal("re-arming stance must not emit an event")
	}
}

func TestCheckLowpass(t *testing.T) {
	const fs = 1000 / SamplePeriodMs

	for _, hz := range []float64{0.5, 5, 30, 70} {
		c := design.Lowpass(hz, design.ButterworthQ, fs)
		if err := checkLowpass(c, hz, fs); err != nil {
			t.Fatalf("checkLowpass(%v Hz) error = %v", hz, err)
		}
	}

	if err := checkLowpass(biquad.Coefficients{}, 5, fs); err == nil {
		t.Fatal("expected error for zero coefficients")
	}

	unity := biquad.Coefficients{B0: 1}
	if err := checkLowpass(unity, 5, fs); err == nil {
		t.Fatal("expected error for a filter that is flat at the cutoff")
	}
}

func TestAccelHistory(t *testing.T) {
	d := newTestDetector(t)
	for i := range 5 {
		d.Process(ImuSample{AccelY: float64(i)})
	}

	testutil.RequireSliceNearlyEqual(t, d.AccelHistory(nil), []float64{0, 1, 2, 3, 4}, 0)

	for i := range 600 {
		d.Process(ImuSample{AccelY: float64(i)})
	}
	h := d.AccelHistory(nil)
	if len(h) != defaultImuHistory || h[len(h)-1] != 599 || h[0] != float64(600-defaultImuHistory) {
		t.Fatalf("history len=%d first=%v last=%v", len(h), h[0], h[len(h)-1])
	}
}

func TestParseAlternationPolicy(t *testing.T) {
	for _, p := range []AlternationPolicy{ToggleGuard, TrustGyro, ForceAlternation} {
		got, err := ParseAlternationPolicy(p.String())
		if err != nil || got != p {
			t.Fatalf("ParseAlternationPolicy(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParseAlternationPolicy("sometimes"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDetectorJerkAndFilteredGyro(t *testing.T) {
	d := newTestDetector(t, WithGyroFilter(biquad.Coefficients{B0: 1}))

	d.Process(ImuSample{AccelY: 0.5, GyroY: 0.3})
	testutil.RequireNearlyEqual(t, d.Jerk(), 0.5/(SamplePeriodMs/1000), 1e-9)
	testutil.RequireNearlyEqual(t, d.FilteredGyro(), 0.3, 1e-15)

	d.Process(ImuSample{AccelY: 0.25, GyroY: -0.2})
	testutil.RequireNearlyEqual(t, d.Jerk(), -0.25/(SamplePeriodMs/1000), 1e-9)
	testutil.RequireNearlyEqual(t, d.FilteredGyro(), -0.2, 1e-15)
}
