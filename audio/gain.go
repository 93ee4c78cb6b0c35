// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"math"
	"sync/atomic"
)

// MaxGain is the loudest volume a Gain stage accepts.
const MaxGain = 1.5

// Gain scales a source by a volume that can be changed from any goroutine.
type Gain struct {
	src  Source
	gain atomic.Uint32 // float32 bits
}

func NewGain(src Source, gain float32) *Gain {
	g := &Gain{src: src}
	g.SetGain(gain)

	return g
}

func (g *Gain) SampleRate() int { return g.src.SampleRate() }
func (g *Gain) Channels() int   { return g.src.Channels() }
func (g *Gain) BufSize() int    { return g.src.BufSize() }
func (g *Gain) Close() error {
	if err := g.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// SetGain stores a linear gain clamped to [0, MaxGain].
func (g *Gain) SetGain(v float32) {
	v = min(max(v, 0), MaxGain)
	g.gain.Store(math.Float32bits(v))
}

func (g *Gain) Gain() float32 { return math.Float32frombits(g.gain.Load()) }

func (g *Gain) ReadSamples(dst []float32) (int, error) {
	n, err := g.src.ReadSamples(dst)

	v := g.Gain()
	if v != 1 {
		for i := range n {
			dst[i] *= v
		}
	}

	return n, err
}
