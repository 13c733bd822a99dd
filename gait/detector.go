package gait

import (
	"github.com/cwbudde/gait-sonify/dsp/filter/biquad"
	"github.com/cwbudde/gait-sonify/dsp/ring"
)

// Source supplies IMU samples in chronological order. ok is false once the
// stream is exhausted or a record cannot be read.
type Source interface {
	Next() (sample ImuSample, ok bool)
}

// Detector runs the gait-event state machine over a sample stream.
type Detector struct {
	cfg config

	imu      *ring.History[ImuSample]
	jerk     *ring.History[float64]
	jerkBuf  []float64
	gyro     *biquad.History
	events   *ring.History[Event]
	contacts *ring.History[GroundContact]

	phase            Phase
	lastLocalMinimum float64
	lastToeOff       Event
	lastContact      Event
	contactOpen      bool
	canSwapFeet      bool
	filteredGyro     float64

	elapsed  int
	done     bool
	eventNow [numEventTypes]bool

	strideLookback int
}

// NewDetector creates a detector with the given options.
func NewDetector(opts ...Option) (*Detector, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}

	d := &Detector{
		cfg:            cfg,
		imu:            ring.New(cfg.imuHistory, ImuSample{}),
		jerk:           ring.New(jerkHistory, 0.0),
		jerkBuf:        make([]float64, jerkHistory),
		gyro:           biquad.FromCoefficients(cfg.gyroFilter),
		events:         ring.New(cfg.eventHistory, Event{}),
		contacts:       ring.New(cfg.contactHistory, GroundContact{}),
		strideLookback: cfg.strideLookback,
	}
	d.Reset()

	return d, nil
}

// Reset returns the detector to its initial state for a restarted stream.
// The stride lookback is kept.
func (d *Detector) Reset() {
	d.imu.Reset()
	d.jerk.Reset()
	d.gyro.Reset()
	d.events.Reset()
	d.contacts.Reset()

	d.phase = PhaseUnknown
	d.lastLocalMinimum = 0
	d.lastToeOff = Event{}
	d.lastContact = Event{}
	d.contactOpen = false
	d.canSwapFeet = true
	d.filteredGyro = 0

	d.elapsed = 0
	d.done = false
	d.eventNow = [numEventTypes]bool{}
}

// ProcessNext pulls one sample from src and processes it. It returns false,
// and marks the detector done, when src is exhausted.
func (d *Detector) ProcessNext(src Source) bool {
	if d.done {
		return false
	}

	sample, ok := src.Next()
	if !ok {
		d.done = true
		d.eventNow = [numEventTypes]bool{}
		return false
	}

	d.Process(sample)

	return !d.done
}

// Process advances the state machine by one sample. A non-finite sample
// ends the stream. Samples after the end are ignored.
func (d *Detector) Process(sample ImuSample) {
	if d.done {
		return
	}

	d.eventNow = [numEventTypes]bool{}

	if !isFinite(sample.AccelY) || !isFinite(sample.GyroY) {
		d.done = true
		return
	}

	index := d.elapsed
	d.elapsed++
	nowMs := float64(index) * d.cfg.samplePeriodMs

	prevAccel := d.imu.Current().AccelY
	d.imu.Write(sample)

	accel := sample.AccelY
	j := (accel - prevAccel) / (d.cfg.samplePeriodMs * 0.001)
	d.jerk.Write(j)

	d.filteredGyro = d.gyro.ProcessSample(sample.GyroY)

	recent := d.jerk.SamplesInto(d.jerkBuf)
	j0, j1, j2 := recent[0], recent[1], recent[2]

	if isLocalMinimum(j0, j1, j2) {
		d.lastLocalMinimum = accel
	}

	if d.phase != StanceReversal &&
		j0 > 0 &&
		accel > d.cfg.stanceWindowLow &&
		accel < d.cfg.stanceWindowHigh &&
		d.lastLocalMinimum < d.cfg.localMinimumThreshold {
		d.phase = StanceReversal
	}

	if d.phase == StanceReversal &&
		isLocalMaximum(j0, j1, j2) &&
		nowMs-d.lastContact.TimeMs > d.cfg.toeOffMinIntervalMs {
		d.emitToeOff(index, nowMs)
	} else if d.phase == SwingReversal &&
		nowMs-d.lastToeOff.TimeMs > d.cfg.contactMinIntervalMs &&
		j0 < d.cfg.jerkThreshold &&
		accel < d.cfg.accelThreshold {
		d.emitInitialContact(index, nowMs)
	}
}

// The maximum is confirmed one sample late, so the toe-off is dated to the
// preceding sample.
func (d *Detector) emitToeOff(index int, nowMs float64) {
	foot := d.toeOffFoot()

	ev := Event{
		Type:       ToeOff,
		Foot:       foot,
		TimeMs:     nowMs - d.cfg.samplePeriodMs,
		Sample:     index - 1,
		AccelValue: d.imu.Previous(1).AccelY,
	}
	if d.lastToeOff.Valid() {
		ev.IntervalMs = ev.TimeMs - d.lastToeOff.TimeMs
	}

	d.events.Write(ev)
	d.lastToeOff = ev
	d.phase = SwingReversal
	d.eventNow[ToeOff] = true

	if d.contactOpen {
		ic := d.lastContact
		d.contacts.Write(GroundContact{
			InitialContact: ic,
			ToeOff:         ev,
			DurationMs:     ev.TimeMs - ic.TimeMs,
			Foot:           ic.Foot,
		})
		d.contactOpen = false
	}
}

func (d *Detector) emitInitialContact(index int, nowMs float64) {
	lookback := d.cfg.contactLookbackSamples

	ev := Event{
		Type:       InitialContact,
		Foot:       d.lastToeOff.Foot.Opposite(),
		TimeMs:     nowMs - float64(lookback)*d.cfg.samplePeriodMs,
		Sample:     index - lookback,
		AccelValue: d.imu.Previous(lookback).AccelY,
	}
	if d.lastContact.Valid() {
		ev.IntervalMs = ev.TimeMs - d.lastContact.TimeMs
	}

	d.events.Write(ev)
	d.lastContact = ev
	d.contactOpen = true
	d.phase = PhaseUnknown
	d.eventNow[InitialContact] = true
}

func (d *Detector) toeOffFoot() Foot {
	foot := Right
	if d.filteredGyro > 0 {
		foot = Left
	}

	if !d.lastToeOff.Valid() {
		return foot
	}

	switch d.cfg.alternation {
	case ForceAlternation:
		return d.lastToeOff.Foot.Opposite()
	case ToggleGuard:
		if foot == d.lastToeOff.Foot {
			if d.canSwapFeet {
				foot = foot.Opposite()
			}
			d.canSwapFeet = !d.canSwapFeet
		}
	}

	return foot
}

// j0 is the newest jerk value.
func isLocalMinimum(j0, j1, j2 float64) bool {
	return (j0 > 0 && j1 < 0) || (j0 > 0 && j1 == 0 && j2 < 0)
}

func isLocalMaximum(j0, j1, j2 float64) bool {
	return (j0 < 0 && j1 > 0) || (j0 < 0 && j1 == 0 && j2 > 0)
}

// Done reports whether the input stream has ended.
func (d *Detector) Done() bool { return d.done }

// Phase returns the current gait phase.
func (d *Detector) Phase() Phase { return d.phase }

// ElapsedSamples returns the number of samples processed since Reset.
func (d *Detector) ElapsedSamples() int { return d.elapsed }

// CurrentTime returns the stream time in milliseconds.
func (d *Detector) CurrentTime() float64 {
	return float64(d.elapsed) * d.cfg.samplePeriodMs
}

// SamplePeriodMs returns the configured sample period.
func (d *Detector) SamplePeriodMs() float64 { return d.cfg.samplePeriodMs }

// FilteredGyro returns the most recent low-pass filtered gyro value.
func (d *Detector) FilteredGyro() float64 { return d.filteredGyro }

// Jerk returns the most recent jerk value in g/s.
func (d *Detector) Jerk() float64 { return d.jerk.Current() }

// HasEventNow reports whether an event of type t was emitted by the most
// recent Process call.
func (d *Detector) HasEventNow(t EventType) bool {
	if t >= numEventTypes {
		return false
	}

	return d.eventNow[t]
}

// LastEvent returns the most recent event, or the zero Event.
func (d *Detector) LastEvent() Event { return d.events.Current() }

// LastGroundContact returns the most recent ground contact, or the zero
// value.
func (d *Detector) LastGroundContact() GroundContact { return d.contacts.Current() }

// Events returns recorded events, most recent first.
func (d *Detector) Events() []Event {
	return validOnly(d.events.Values(), Event.Valid)
}

// GroundContacts returns recorded ground contacts, most recent first.
func (d *Detector) GroundContacts() []GroundContact {
	return validOnly(d.contacts.Values(), GroundContact.Valid)
}

// AccelHistory copies the buffered accelerations, oldest first, into dst
// and returns it. At most ElapsedSamples values are returned.
func (d *Detector) AccelHistory(dst []float64) []float64 {
	n := min(d.elapsed, d.imu.Len())
	dst = dst[:0]
	for k := n - 1; k >= 0; k-- {
		dst = append(dst, d.imu.Previous(k).AccelY)
	}

	return dst
}

// StrideLookback returns the number of strides the metrics average over.
func (d *Detector) StrideLookback() int { return d.strideLookback }

// SetStrideLookback changes the number of strides the metrics average over.
func (d *Detector) SetStrideLookback(strides int) error {
	if err := validateStrideLookback(strides); err != nil {
		return err
	}

	d.strideLookback = strides

	return nil
}

func validOnly[T any](values []T, valid func(T) bool) []T {
	out := values[:0]
	for _, v := range values {
		if valid(v) {
			out = append(out, v)
		}
	}

	return out
}
