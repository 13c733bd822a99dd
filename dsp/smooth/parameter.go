package smooth

import (
	"math"
	"sync/atomic"
)

const (
	// DefaultQ is the fraction of the remaining distance covered per Advance.
	DefaultQ = 0.01

	// Threshold is the distance below which Advance snaps to the target.
	Threshold = 1e-6
)

// Float is the set of value types a Parameter can smooth.
type Float interface {
	~float32 | ~float64
}

// Parameter slews its current value toward a target by current += q*(target-current)
// on every Advance.
//
// A Parameter must not be copied after first use.
type Parameter[T Float] struct {
	target atomic.Uint64
	snap   atomic.Bool

	current T
	q       T
}

// New returns a Parameter resting at initial with the default rate.
func New[T Float](initial T) *Parameter[T] {
	return NewWithRate(initial, T(DefaultQ))
}

// NewWithRate returns a Parameter resting at initial that covers fraction q
// of the remaining distance per Advance. q outside (0, 1] falls back to
// DefaultQ.
func NewWithRate[T Float](initial, q T) *Parameter[T] {
	if !(q > 0 && q <= 1) {
		q = T(DefaultQ)
	}

	p := &Parameter[T]{current: initial, q: q}
	p.storeTarget(initial)

	return p
}

// Set updates the target. With skipSmoothing the reader side jumps to the
// target on its next Advance or Current call instead of slewing.
func (p *Parameter[T]) Set(target T, skipSmoothing bool) {
	p.storeTarget(target)
	if skipSmoothing {
		p.snap.Store(true)
	}
}

// Target returns the most recently set target.
func (p *Parameter[T]) Target() T {
	return T(math.Float64frombits(p.target.Load()))
}

// Advance moves the current value one step toward the target and returns it.
//
// The snap flag is consumed before the target is loaded. Set stores the
// target before raising the flag, so a consumed snap always lands on a target
// at least as recent as the Set that requested it.
func (p *Parameter[T]) Advance() T {
	if p.snap.Swap(false) {
		p.current = p.Target()
		return p.current
	}

	target := p.Target()

	if p.current == target {
		return p.current
	}

	delta := target - p.current
	if math.Abs(float64(delta)) < Threshold {
		p.current = target
		return p.current
	}

	next := p.current + p.q*delta
	if next == p.current {
		// The step is below the precision of T at this magnitude.
		next = target
	}
	p.current = next

	return p.current
}

// Current returns the smoothed value without advancing it, applying a
// pending skip-smoothing Set first.
func (p *Parameter[T]) Current() T {
	if p.snap.CompareAndSwap(true, false) {
		p.current = p.Target()
	}

	return p.current
}

// Reset sets both target and current value to v.
func (p *Parameter[T]) Reset(v T) {
	p.Set(v, true)
}

// Settled reports whether the current value equals the target.
func (p *Parameter[T]) Settled() bool {
	return p.Current() == p.Target()
}

func (p *Parameter[T]) storeTarget(v T) {
	p.target.Store(math.Float64bits(float64(v)))
}
