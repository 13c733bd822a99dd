package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cwbudde/gait-sonify/capture"
	"github.com/cwbudde/gait-sonify/dsp/buffer"
	"github.com/cwbudde/gait-sonify/dsp/core"
	"github.com/cwbudde/gait-sonify/gait"
	"github.com/cwbudde/gait-sonify/internal/audioio"
	"github.com/cwbudde/gait-sonify/internal/config"
	"github.com/cwbudde/gait-sonify/internal/feed"
	"github.com/cwbudde/gait-sonify/sonify"
)

// tailSeconds of audio are rendered after the capture ends so the last note
// and the reverb can decay.
const tailSeconds = 0.25

type runner struct {
	cfg     config.Config
	session string
	logger  *slog.Logger

	reader   *capture.Reader
	detector *gait.Detector
	engine   *sonify.Engine
	sink     audioio.Sink
	hub      *feed.Hub
	pool     *buffer.Pool

	sum *summary
}

// run replays cfg.Capture until it ends or ctx is done. The returned summary
// is non-nil once the capture was opened.
func run(ctx context.Context, cfg config.Config, session string, logger *slog.Logger) (*summary, error) {
	r, err := newRunner(cfg, session, logger)
	if err != nil {
		return nil, err
	}
	defer r.close()

	if cfg.FeedAddr != "" {
		r.hub = feed.NewHub(logger)
		feedCtx, stopFeed := context.WithCancel(ctx)
		defer stopFeed()
		go func() {
			if err := feed.ListenAndServe(feedCtx, cfg.FeedAddr, r.hub); err != nil {
				logger.Error("feed server failed", "addr", cfg.FeedAddr, "error", err)
			}
		}()
	}

	if err := r.sink.Start(ctx); err != nil {
		return r.sum, fmt.Errorf("start %s sink: %w", r.sink.Name(), err)
	}

	r.engine.Start()

	logger.Info("sonification started",
		"capture", cfg.Capture,
		"mode", r.engine.Mode().String(),
		"backend", r.sink.Name(),
		"speed", cfg.Speed,
		"realtime", cfg.Realtime,
	)

	if cfg.Realtime {
		err = r.runRealtime(ctx)
	} else {
		err = r.runOffline(ctx)
	}

	r.finish()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Info("sonification interrupted")
		return r.sum, nil
	}

	return r.sum, err
}

func newRunner(cfg config.Config, session string, logger *slog.Logger) (*runner, error) {
	mode, err := cfg.SonifyMode()
	if err != nil {
		return nil, err
	}
	policy, err := cfg.AlternationPolicy()
	if err != nil {
		return nil, err
	}

	reader, err := capture.Open(cfg.Capture, capture.WithHeaderLines(cfg.HeaderLines))
	if err != nil {
		return nil, err
	}

	d, err := gait.NewDetector(
		gait.WithStrideLookback(cfg.StrideLookback),
		gait.WithAlternationPolicy(policy),
	)
	if err != nil {
		reader.Close()
		return nil, err
	}

	engine, err := sonify.NewEngine(d, sonify.WithMode(mode), sonify.WithMapping(cfg.Mapping))
	if err != nil {
		reader.Close()
		return nil, err
	}

	pc := core.ApplyProcessorOptions(
		core.WithSampleRate(float64(cfg.Audio.SampleRate)),
		core.WithBlockSize(cfg.Audio.BlockSize),
		core.WithChannels(cfg.Audio.Channels),
	)
	if err := engine.Prepare(pc); err != nil {
		reader.Close()
		return nil, err
	}

	sink, err := audioio.NewSink(cfg.Audio, logger)
	if err != nil {
		reader.Close()
		return nil, err
	}

	return &runner{
		cfg:      cfg,
		session:  session,
		logger:   logger,
		reader:   reader,
		detector: d,
		engine:   engine,
		sink:     sink,
		pool:     buffer.NewPool(),
		sum:      &summary{},
	}, nil
}

func (r *runner) close() {
	if err := r.sink.Close(); err != nil {
		r.logger.Error("close audio sink", "error", err)
	}
	if err := r.reader.Close(); err != nil {
		r.logger.Warn("close capture", "error", err)
	}
}

// tick advances the analysis by one capture sample.
func (r *runner) tick() bool {
	u, ok := r.engine.Tick(r.reader)
	if !ok {
		return false
	}

	if u.Event.Valid() {
		r.sum.events++
		r.logger.Debug("gait event",
			"type", u.Event.Type.String(),
			"foot", u.Event.Foot.String(),
			"time_ms", u.Event.TimeMs,
			"sample", u.Event.Sample,
		)
	}

	if u.ContactCompleted() {
		r.sum.contacts++
		r.logger.Info("stride",
			"time_ms", u.TimeMs,
			"foot", u.Contact.Foot.String(),
			"contact_ms", u.Contact.DurationMs,
			"balance", u.Balance,
			"left_avg_ms", u.LeftMs,
			"right_avg_ms", u.RightMs,
			"cadence", u.Cadence,
		)
		if r.hub != nil {
			if err := r.hub.Broadcast(feed.FromUpdate(r.session, u)); err != nil {
				r.logger.Warn("feed broadcast", "error", err)
			}
		}
	}

	return true
}

// runOffline interleaves analysis and rendering on one goroutine, advancing
// the capture by as many samples as each block covers.
func (r *runner) runOffline(ctx context.Context) error {
	block := r.pool.Get(r.cfg.Audio.Channels, r.cfg.Audio.BlockSize)
	defer r.pool.Put(block)

	perBlock := r.samplesPerBlock()
	pending := 0.0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pending += perBlock
		for pending >= 1 {
			pending--
			if !r.tick() {
				return r.renderTail(ctx, block)
			}
		}

		if err := r.renderBlock(ctx, block); err != nil {
			return err
		}
	}
}

// runRealtime ticks the analysis on a wall-clock ticker while a second
// goroutine renders. Device sinks pace the render loop by blocking; other
// sinks are paced by a block-rate ticker.
func (r *runner) runRealtime(ctx context.Context) error {
	renderCtx, stopRender := context.WithCancel(ctx)
	defer stopRender()

	renderErr := make(chan error, 1)
	go func() { renderErr <- r.renderLoop(renderCtx) }()

	period := time.Duration(r.detector.SamplePeriodMs() / r.cfg.Speed * float64(time.Millisecond))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for running := true; running; {
		select {
		case <-ctx.Done():
			stopRender()
			<-renderErr
			return ctx.Err()
		case err := <-renderErr:
			return err
		case <-ticker.C:
			running = r.tick()
		}
	}

	select {
	case <-ctx.Done():
	case err := <-renderErr:
		return err
	case <-time.After(time.Duration(tailSeconds * float64(time.Second))):
	}

	stopRender()
	if err := <-renderErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (r *runner) renderLoop(ctx context.Context) error {
	block := r.pool.Get(r.cfg.Audio.Channels, r.cfg.Audio.BlockSize)
	defer r.pool.Put(block)

	var pace <-chan time.Time
	if r.sink.Name() != string(audioio.BackendPortAudio) {
		blockDur := time.Duration(float64(r.cfg.Audio.BlockSize) / float64(r.cfg.Audio.SampleRate) * float64(time.Second))
		t := time.NewTicker(blockDur)
		defer t.Stop()
		pace = t.C
	}

	for {
		if err := r.renderBlock(ctx, block); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if pace == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-pace:
		}
	}
}

func (r *runner) renderBlock(ctx context.Context, block *buffer.Block) error {
	r.engine.Render(block)
	if err := r.sink.Write(ctx, block); err != nil {
		return fmt.Errorf("write %s sink: %w", r.sink.Name(), err)
	}
	r.sum.blocks++
	return nil
}

func (r *runner) renderTail(ctx context.Context, block *buffer.Block) error {
	blocks := int(math.Ceil(tailSeconds * float64(r.cfg.Audio.SampleRate) / float64(r.cfg.Audio.BlockSize)))
	for range blocks {
		if err := r.renderBlock(ctx, block); err != nil {
			return err
		}
	}

	r.engine.Stop()
	return r.renderBlock(ctx, block)
}

// samplesPerBlock is the number of capture samples one render block covers
// at the configured speed.
func (r *runner) samplesPerBlock() float64 {
	blockMs := float64(r.cfg.Audio.BlockSize) / float64(r.cfg.Audio.SampleRate) * 1000
	return blockMs * r.cfg.Speed / r.detector.SamplePeriodMs()
}

func (r *runner) finish() {
	r.engine.Stop()
	if err := r.sink.Stop(); err != nil {
		r.logger.Warn("stop audio sink", "error", err)
	}

	if err := r.reader.Err(); err != nil {
		r.logger.Warn("capture ended early", "error", err)
	}

	d := r.detector
	info := d.GroundContactInfo()
	s := r.sum
	s.capture = r.cfg.Capture
	s.mode = r.engine.Mode().String()
	s.samples = d.ElapsedSamples()
	s.durationMs = d.CurrentTime()
	s.balance = info.Balance
	s.leftMs = info.LeftAvgMs
	s.rightMs = info.RightAvgMs
	s.cadence = d.Cadence()
	if spm, err := d.SpectralCadence(); err == nil {
		s.spectralCadence = spm
		s.hasSpectral = true
	}
	s.sanitized = r.engine.SanitizedSamples()
	s.clampedOrders = r.engine.ClampedOrders()
	if ws, ok := r.sink.(audioio.SinkWithStats); ok {
		s.frames = ws.Stats().FramesWritten
	}
	if r.hub != nil {
		s.feedSent = r.hub.Stats().MessagesSent
	}

	r.logger.Info("sonification finished",
		"samples", s.samples,
		"events", s.events,
		"contacts", s.contacts,
		"balance", s.balance,
		"cadence", s.cadence,
	)
}
