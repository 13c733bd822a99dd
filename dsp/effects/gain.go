package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/gait-sonify/dsp/buffer"
)

// Gain scales every channel by a constant level.
type Gain struct {
	level float64
}

// NewGain creates a gain stage. The level is linear and must be >= 0.
func NewGain(level float64) (*Gain, error) {
	g := &Gain{}
	if err := g.SetLevel(level); err != nil {
		return nil, err
	}

	return g, nil
}

// Level returns the linear gain.
func (g *Gain) Level() float64 { return g.level }

// SetLevel changes the linear gain.
func (g *Gain) SetLevel(level float64) error {
	if level < 0 || math.IsNaN(level) || math.IsInf(level, 0) {
		return fmt.Errorf("gain level must be >= 0 and finite: %f", level)
	}

	g.level = level

	return nil
}

// ProcessSample scales one sample.
func (g *Gain) ProcessSample(x float64) float64 { return x * g.level }

// ProcessBlock scales block in place.
func (g *Gain) ProcessBlock(block *buffer.Block) {
	for ch := range block.NumChannels() {
		buf := block.Channel(ch)
		for i, v := range buf {
			buf[i] = v * g.level
		}
	}
}
