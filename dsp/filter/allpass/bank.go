package allpass

import (
	"fmt"
	"math"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
	"github.com/cwbudde/gait-sonify/dsp/core"
)

const (
	defaultGain     = 0.5
	defaultMaxOrder = 0
)

// Option mutates bank construction parameters.
type Option func(*bankConfig) error

type bankConfig struct {
	gain     float64
	order    int
	maxOrder int
}

func defaultBankConfig() bankConfig {
	return bankConfig{
		gain:     defaultGain,
		maxOrder: defaultMaxOrder,
	}
}

// WithGain sets the allpass coefficient g in [0, 1].
func WithGain(gain float64) Option {
	return func(cfg *bankConfig) error {
		if err := validateGain(gain); err != nil {
			return err
		}

		cfg.gain = gain

		return nil
	}
}

// WithOrder sets the initial order (delay in samples).
func WithOrder(order int) Option {
	return func(cfg *bankConfig) error {
		if order < 0 {
			return fmt.Errorf("allpass order must be >= 0: %d", order)
		}

		cfg.order = order

		return nil
	}
}

// WithMaxOrder preallocates delay storage for orders up to maxOrder so that
// later SetOrder calls within that range never allocate.
func WithMaxOrder(maxOrder int) Option {
	return func(cfg *bankConfig) error {
		if maxOrder < 0 {
			return fmt.Errorf("allpass max order must be >= 0: %d", maxOrder)
		}

		cfg.maxOrder = maxOrder

		return nil
	}
}

// Bank holds one allpass delay line pair and write cursor per channel.
type Bank struct {
	gain  float64
	order int

	ff     [][]float64
	fb     [][]float64
	cursor []int
}

// NewBank creates a bank for the given number of channels.
func NewBank(channels int, opts ...Option) (*Bank, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("allpass channels must be > 0: %d", channels)
	}

	cfg := defaultBankConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	capacity := max(cfg.maxOrder, cfg.order)

	b := &Bank{
		gain:   cfg.gain,
		order:  cfg.order,
		ff:     make([][]float64, channels),
		fb:     make([][]float64, channels),
		cursor: make([]int, channels),
	}
	for ch := range channels {
		b.ff[ch] = make([]float64, capacity)
		b.fb[ch] = make([]float64, capacity)
	}

	return b, nil
}

// NumChannels returns the channel count.
func (b *Bank) NumChannels() int { return len(b.cursor) }

// Gain returns the allpass coefficient.
func (b *Bank) Gain() float64 { return b.gain }

// Order returns the current order.
func (b *Bank) Order() int { return b.order }

// Capacity returns the largest order the delay lines currently hold
// without reallocation.
func (b *Bank) Capacity() int { return len(b.ff[0]) }

// SetGain updates the allpass coefficient g in [0, 1].
func (b *Bank) SetGain(gain float64) error {
	if err := validateGain(gain); err != nil {
		return err
	}

	b.gain = gain

	return nil
}

// SetOrder changes the delay order. Orders beyond Capacity grow the delay
// lines, keeping their existing contents at the same indices. Every channel
// cursor is wrapped into the new order.
func (b *Bank) SetOrder(order int) error {
	if order < 0 {
		return fmt.Errorf("allpass order must be >= 0: %d", order)
	}

	if order == b.order {
		return nil
	}

	if order > b.Capacity() {
		for ch := range b.ff {
			b.ff[ch] = grow(b.ff[ch], order)
			b.fb[ch] = grow(b.fb[ch], order)
		}
	}

	b.order = order
	if order > 0 {
		for ch := range b.cursor {
			b.cursor[ch] = int(core.Modulo(float64(b.cursor[ch]), order))
		}
	}

	return nil
}

// ProcessSample filters one sample on channel ch. Order 0 passes the input
// through and rewinds the channel cursor.
func (b *Bank) ProcessSample(ch int, x float64) float64 {
	if b.order == 0 {
		b.cursor[ch] = 0
		return x
	}

	ff := b.ff[ch]
	fb := b.fb[ch]
	pos := b.cursor[ch]

	// The slot at the cursor holds the pair written N samples ago.
	y := b.gain*x + ff[pos] - b.gain*fb[pos]

	ff[pos] = x
	fb[pos] = y

	pos++
	if pos >= b.order {
		pos = 0
	}
	b.cursor[ch] = pos

	return y
}

// ProcessBlock filters every channel of block that the bank has state for
// and adds the filtered signal onto the dry signal in place.
func (b *Bank) ProcessBlock(block *buffer.Block) {
	channels := min(block.NumChannels(), b.NumChannels())
	for ch := range channels {
		buf := block.Channel(ch)
		for i, x := range buf {
			buf[i] = x + b.ProcessSample(ch, x)
		}
	}
}

// Reset clears all delay lines and cursors without changing order or gain.
func (b *Bank) Reset() {
	for ch := range b.ff {
		clear(b.ff[ch])
		clear(b.fb[ch])
		b.cursor[ch] = 0
	}
}

func grow(line []float64, size int) []float64 {
	next := make([]float64, size)
	copy(next, line)

	return next
}

func validateGain(gain float64) error {
	if gain < 0 || gain > 1 || math.IsNaN(gain) {
		return fmt.Errorf("allpass gain must be in [0, 1]: %f", gain)
	}

	return nil
}
