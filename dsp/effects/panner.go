package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
	"github.com/cwbudde/gait-sonify/dsp/core"
)

// PanRule selects the pan law.
type PanRule int

const (
	// PanLinear fades each side linearly; the centre is at unity on both
	// channels and a hard pan doubles the louder side.
	PanLinear PanRule = iota
	// PanBalanced keeps the louder side at unity and attenuates the other.
	PanBalanced
	// PanSin3dB is a constant-power sine law scaled to unity at the centre and
	// +3 dB on the louder side at a hard pan.
	PanSin3dB
	// PanSquareRoot3dB is a constant-power square-root law.
	PanSquareRoot3dB
)

func (r PanRule) String() string {
	switch r {
	case PanLinear:
		return "linear"
	case PanBalanced:
		return "balanced"
	case PanSin3dB:
		return "sin3dB"
	case PanSquareRoot3dB:
		return "squareRoot3dB"
	default:
		return "unknown"
	}
}

// PanGains returns the left and right gains for pan in [-1, 1] (-1 hard
// left) under rule. Out-of-range pan values are clamped.
func PanGains(rule PanRule, pan float64) (float64, float64) {
	n := 0.5 * (clampPan(pan) + 1)

	switch rule {
	case PanBalanced:
		return 2 * min(0.5, 1-n), 2 * min(0.5, n)
	case PanSin3dB:
		return math.Sqrt2 * math.Sin(0.5*math.Pi*(1-n)), math.Sqrt2 * math.Sin(0.5*math.Pi*n)
	case PanSquareRoot3dB:
		return math.Sqrt2 * math.Sqrt(1-n), math.Sqrt2 * math.Sqrt(n)
	default:
		return 2 * (1 - n), 2 * n
	}
}

// Panner applies a pan law to stereo blocks.
type Panner struct {
	rule        PanRule
	pan         float64
	left, right float64

	leftGains  []float64
	rightGains []float64
}

// NewPanner creates a centred panner.
func NewPanner(rule PanRule) (*Panner, error) {
	if rule < PanLinear || rule > PanSquareRoot3dB {
		return nil, fmt.Errorf("panner rule unknown: %d", rule)
	}

	p := &Panner{rule: rule}
	p.SetPan(0)

	return p, nil
}

// Rule returns the pan law.
func (p *Panner) Rule() PanRule { return p.rule }

// Pan returns the current position.
func (p *Panner) Pan() float64 { return p.pan }

// SetPan sets the position, clamped to [-1, 1]. NaN centres the panner.
func (p *Panner) SetPan(pan float64) {
	p.pan = clampPan(pan)
	p.left, p.right = PanGains(p.rule, p.pan)
}

// Gains returns the left and right gains for the current position.
func (p *Panner) Gains() (float64, float64) { return p.left, p.right }

// ProcessStereo pans one frame.
func (p *Panner) ProcessStereo(left, right float64) (float64, float64) {
	return left * p.left, right * p.right
}

// ProcessBlock pans the first two channels of block at the current
// position. Blocks with fewer than two channels are left untouched.
func (p *Panner) ProcessBlock(block *buffer.Block) {
	if block.NumChannels() < 2 {
		return
	}

	for i, v := range block.Channel(0) {
		block.Channel(0)[i] = v * p.left
	}
	for i, v := range block.Channel(1) {
		block.Channel(1)[i] = v * p.right
	}
}

// ProcessBlockRamp pans frame i of block at pans[i], starting at frame 0.
// The position after the call is the last one applied.
func (p *Panner) ProcessBlockRamp(block *buffer.Block, pans []float64) {
	if block.NumChannels() < 2 || len(pans) == 0 {
		return
	}

	n := min(len(pans), block.NumFrames())
	p.leftGains = core.EnsureLen(p.leftGains, n)
	p.rightGains = core.EnsureLen(p.rightGains, n)

	for i, pan := range pans[:n] {
		p.leftGains[i], p.rightGains[i] = PanGains(p.rule, pan)
	}

	block.MulChannelRange(0, 0, p.leftGains)
	block.MulChannelRange(1, 0, p.rightGains)

	p.SetPan(pans[n-1])
}

func clampPan(pan float64) float64 {
	if math.IsNaN(pan) {
		return 0
	}

	return core.Clamp(pan, -1, 1)
}
