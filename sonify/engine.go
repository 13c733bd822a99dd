package sonify

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
	"github.com/cwbudde/gait-sonify/dsp/core"
	"github.com/cwbudde/gait-sonify/dsp/effects"
	"github.com/cwbudde/gait-sonify/dsp/filter/allpass"
	"github.com/cwbudde/gait-sonify/dsp/smooth"
	"github.com/cwbudde/gait-sonify/dsp/synth"
	"github.com/cwbudde/gait-sonify/gait"
	"github.com/cwbudde/gait-sonify/internal/log"
)

const (
	noteAmplitude  = 0.5
	droneAmplitude = 0.75
	noteAttack     = 0.05
	outputGain     = 0.5
	outputLimit    = 1.0

	reverbRoomSize = 0.5
	reverbDamping  = 0.25
	reverbWidth    = 0
)

// Update reports what one analysis Tick observed.
type Update struct {
	TimeMs float64
	// Event is the gait event emitted on this sample, or the zero Event.
	Event gait.Event
	// Contact is set when Event is a toe-off that closed a ground contact.
	Contact gait.GroundContact
	Balance float64
	LeftMs  float64
	RightMs float64
	Cadence float64
	Targets Targets
}

// ContactCompleted reports whether the tick closed a ground contact.
func (u Update) ContactCompleted() bool { return u.Contact.Valid() }

// Option mutates engine construction parameters.
type Option func(*engineConfig) error

type engineConfig struct {
	mode    Mode
	mapping MappingConfig
	rule    effects.PanRule
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		mode:    ModeRhythmic,
		mapping: DefaultMappingConfig(),
		rule:    effects.PanLinear,
	}
}

// WithMode selects the sonification mode.
func WithMode(m Mode) Option {
	return func(cfg *engineConfig) error {
		if !m.valid() {
			return fmt.Errorf("sonify mode unknown: %d", m)
		}

		cfg.mode = m

		return nil
	}
}

// WithMapping replaces the mapping knobs.
func WithMapping(c MappingConfig) Option {
	return func(cfg *engineConfig) error {
		if err := c.Validate(); err != nil {
			return err
		}

		cfg.mapping = c

		return nil
	}
}

// WithPanRule selects the output pan law.
func WithPanRule(rule effects.PanRule) Option {
	return func(cfg *engineConfig) error {
		if _, err := effects.NewPanner(rule); err != nil {
			return err
		}

		cfg.rule = rule

		return nil
	}
}

// Engine drives a synth and its output stage from a gait detector.
//
// Tick and the Start/Stop requests belong to the analysis goroutine; Prepare
// and Render belong to the render goroutine. Prepare must complete before
// the first Render.
type Engine struct {
	cfg      engineConfig
	detector *gait.Detector

	// Analysis to render.
	modulation   *smooth.Parameter[float64]
	carrier      *smooth.Parameter[float64]
	pan          *smooth.Parameter[float64]
	reverbAmount *smooth.Parameter[float64]
	order1       atomic.Int64
	order2       atomic.Int64
	noteHz       atomic.Uint64
	noteSeq      atomic.Uint64
	wantPlaying  atomic.Bool
	sanitized    atomic.Int64
	clamped      atomic.Int64

	// Render only.
	synth     *synth.Synth
	ap1, ap2  *allpass.Bank
	reverb    *effects.Reverb
	panner    *effects.Panner
	gain      *effects.Gain
	pans      []float64
	playing   bool
	lastNote  uint64
	prepared  bool
	processor core.ProcessorConfig
}

// NewEngine creates an engine analysing d.
func NewEngine(d *gait.Detector, opts ...Option) (*Engine, error) {
	if d == nil {
		return nil, fmt.Errorf("sonify detector must not be nil")
	}

	cfg := defaultEngineConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	e := &Engine{
		cfg:          cfg,
		detector:     d,
		modulation:   smooth.New(0.0),
		carrier:      smooth.New(cfg.mapping.CarrierLowHz),
		pan:          smooth.New(0.0),
		reverbAmount: smooth.New(0.0),
	}

	return e, nil
}

// Mode returns the sonification mode.
func (e *Engine) Mode() Mode { return e.cfg.mode }

// Mapping returns the mapping knobs.
func (e *Engine) Mapping() MappingConfig { return e.cfg.mapping }

// Detector returns the analysed detector.
func (e *Engine) Detector() *gait.Detector { return e.detector }

// Prepare allocates the render chain for pc. It may be called again to
// change the render configuration while no Render is in flight.
func (e *Engine) Prepare(pc core.ProcessorConfig) error {
	s := synth.NewSynthFromParams(synth.DefaultPatch(e.cfg.mapping.DecaySeconds))
	if err := s.Prepare(pc); err != nil {
		return fmt.Errorf("sonify: %w", err)
	}
	s.SetModulationAmount(0)
	s.EnableEnvelope(e.cfg.mode == ModeRhythmic)

	maxOrder := MaxAllpassOrder()
	ap1, err := allpass.NewBank(pc.Channels, allpass.WithGain(1-e.cfg.mapping.AllpassGain1), allpass.WithMaxOrder(maxOrder))
	if err != nil {
		return fmt.Errorf("sonify: %w", err)
	}
	ap2, err := allpass.NewBank(pc.Channels, allpass.WithGain(1-e.cfg.mapping.AllpassGain2), allpass.WithMaxOrder(maxOrder))
	if err != nil {
		return fmt.Errorf("sonify: %w", err)
	}

	rev, err := effects.NewReverb(pc.SampleRate, effects.ReverbParameters{
		RoomSize: reverbRoomSize,
		Damping:  reverbDamping,
		WetLevel: 0,
		DryLevel: 1,
		Width:    reverbWidth,
	})
	if err != nil {
		return fmt.Errorf("sonify: %w", err)
	}

	panner, err := effects.NewPanner(e.cfg.rule)
	if err != nil {
		return fmt.Errorf("sonify: %w", err)
	}

	gain, err := effects.NewGain(outputGain)
	if err != nil {
		return fmt.Errorf("sonify: %w", err)
	}

	e.synth = s
	e.ap1, e.ap2 = ap1, ap2
	e.reverb = rev
	e.panner = panner
	e.gain = gain
	e.pans = make([]float64, pc.BlockSize)
	e.playing = false
	e.lastNote = e.noteSeq.Load()
	e.processor = pc
	e.prepared = true

	log.Debug("sonify engine prepared",
		"mode", e.cfg.mode.String(),
		"sample_rate", pc.SampleRate,
		"block_size", pc.BlockSize,
		"channels", pc.Channels)

	return nil
}

// ProcessorConfig returns the configuration passed to Prepare.
func (e *Engine) ProcessorConfig() core.ProcessorConfig { return e.processor }

// Start requests playback. The render side starts the sustained note of the
// constant and allpass modes on its next block.
func (e *Engine) Start() {
	e.wantPlaying.Store(true)
	log.Debug("sonify start requested", "mode", e.cfg.mode.String())
}

// Stop requests silence. The render side stops the synth and drops the
// modulation depth to zero.
func (e *Engine) Stop() {
	e.wantPlaying.Store(false)
	e.modulation.Set(0, true)
	log.Debug("sonify stop requested")
}

// Reset stops playback and returns the detector and every render target to
// its initial state, for replaying a stream from the start. It belongs to
// the analysis goroutine.
func (e *Engine) Reset() {
	e.Stop()
	e.detector.Reset()
	e.carrier.Reset(e.cfg.mapping.CarrierLowHz)
	e.pan.Reset(0)
	e.reverbAmount.Reset(0)
	e.order1.Store(0)
	e.order2.Store(0)
	log.Debug("sonify engine reset")
}

// Playing reports whether playback is requested.
func (e *Engine) Playing() bool { return e.wantPlaying.Load() }

// SanitizedSamples returns how many non-finite output samples were
// suppressed so far.
func (e *Engine) SanitizedSamples() int64 { return e.sanitized.Load() }

// ClampedOrders returns how many allpass order updates fell outside the
// preallocated delay lines and were clamped.
func (e *Engine) ClampedOrders() int64 { return e.clamped.Load() }

// Tick advances the detector by one sample from src and publishes new
// targets to the render side. It returns false when the stream has ended.
func (e *Engine) Tick(src gait.Source) (Update, bool) {
	d := e.detector
	if !d.ProcessNext(src) {
		return Update{TimeMs: d.CurrentTime()}, false
	}

	return e.update(), true
}

// Observe publishes targets for the detector's current state without
// advancing it, for callers that feed the detector themselves.
func (e *Engine) Observe() Update {
	return e.update()
}

func (e *Engine) update() Update {
	d := e.detector
	info := d.GroundContactInfo()
	cadence := d.Cadence()
	t := Map(e.cfg.mode, info.Balance, cadence, e.cfg.mapping)

	u := Update{
		TimeMs:  d.CurrentTime(),
		Balance: info.Balance,
		LeftMs:  info.LeftAvgMs,
		RightMs: info.RightAvgMs,
		Cadence: cadence,
		Targets: t,
	}

	toeOff := d.HasEventNow(gait.ToeOff)
	if toeOff || d.HasEventNow(gait.InitialContact) {
		u.Event = d.LastEvent()
	}
	if toeOff {
		if c := d.LastGroundContact(); c.Valid() && c.ToeOff == u.Event {
			u.Contact = c
		}
	}

	e.publish(t, toeOff)

	return u
}

func (e *Engine) publish(t Targets, toeOff bool) {
	if e.wantPlaying.Load() {
		e.modulation.Set(t.Modulation, false)
	}
	e.carrier.Set(t.CarrierHz, false)
	e.pan.Set(t.Pan, false)
	e.reverbAmount.Set(t.ReverbAmount, false)
	e.order1.Store(int64(t.AllpassOrder1))
	e.order2.Store(int64(t.AllpassOrder2))

	if e.cfg.mode == ModeRhythmic && toeOff {
		e.noteHz.Store(math.Float64bits(t.CarrierHz))
		e.noteSeq.Add(1)
	}
}

// setAllpassOrder clamps order to the preallocated delay lines of b.
func (e *Engine) setAllpassOrder(b *allpass.Bank, order int64) {
	limit := int64(b.Capacity())
	if order < 0 || order > limit {
		order = max(0, min(order, limit))
		e.clamped.Add(1)
	}

	if err := b.SetOrder(int(order)); err != nil {
		e.clamped.Add(1)
	}
}

// Render fills every frame of out. An unprepared engine renders silence.
func (e *Engine) Render(out *buffer.Block) {
	out.Zero()
	if !e.prepared {
		return
	}

	n := out.NumFrames()
	if n == 0 {
		return
	}

	e.applyTransport()
	e.applyBlockTargets()

	e.synth.RenderNextBlock(out, 0, n)

	if e.cfg.mode == ModeAllpass && e.playing {
		e.setAllpassOrder(e.ap1, e.order1.Load())
		e.setAllpassOrder(e.ap2, e.order2.Load())
		e.ap1.ProcessBlock(out)
		e.ap2.ProcessBlock(out)
	}

	e.renderReverb(out)
	e.renderPan(out)
	e.gain.ProcessBlock(out)

	replaced := 0
	for ch := range out.NumChannels() {
		replaced += core.SanitizeBlock(out.Channel(ch), outputLimit)
	}
	if replaced > 0 {
		e.sanitized.Add(int64(replaced))
	}
}

func (e *Engine) applyTransport() {
	want := e.wantPlaying.Load()
	if want == e.playing {
		return
	}
	e.playing = want

	if !want {
		e.synth.StopNote()
		e.synth.StopPlaying()
		e.synth.SetModulationAmount(0)
		e.ap1.Reset()
		e.ap2.Reset()
		return
	}

	lo := e.cfg.mapping.CarrierLowHz
	switch e.cfg.mode {
	case ModeConstant:
		e.synth.StartNote(lo, noteAmplitude)
	case ModeAllpass:
		e.synth.StartNote(lo, droneAmplitude)
	}
	// Notes requested while stopped are dropped.
	e.lastNote = e.noteSeq.Load()
}

func (e *Engine) applyBlockTargets() {
	mod := e.modulation.Advance()
	freq := e.carrier.Advance()

	if !e.playing {
		return
	}

	switch e.cfg.mode {
	case ModeRhythmic:
		e.synth.SetModulationAmount(mod)
		if seq := e.noteSeq.Load(); seq != e.lastNote {
			e.lastNote = seq
			e.synth.SetEnvelope(synth.EnvelopeParams{Onset: 0, Attack: noteAttack, Decay: e.cfg.mapping.DecaySeconds})
			e.synth.StartNote(math.Float64frombits(e.noteHz.Load()), noteAmplitude)
		}
	case ModeConstant:
		e.synth.SetModulationAmount(mod)
		e.synth.SetCarrierFrequency(freq)
	case ModeAllpass:
		e.synth.SetModulationAmount(0)
	}
}

func (e *Engine) renderReverb(out *buffer.Block) {
	switch out.NumChannels() {
	case 0:
		return
	case 1:
		buf := out.Channel(0)
		for i, v := range buf {
			amount := e.reverbAmount.Advance()
			e.reverb.SetMix(amount, 1-amount)
			buf[i] = e.reverb.ProcessMono(v)
		}
	default:
		left, right := out.Channel(0), out.Channel(1)
		for i := range left {
			amount := e.reverbAmount.Advance()
			e.reverb.SetMix(amount, 1-amount)
			left[i], right[i] = e.reverb.ProcessStereo(left[i], right[i])
		}
	}
}

func (e *Engine) renderPan(out *buffer.Block) {
	n := out.NumFrames()
	e.pans = core.EnsureLen(e.pans, n)
	for i := range n {
		e.pans[i] = e.pan.Advance()
	}
	e.panner.ProcessBlockRamp(out, e.pans)
}
