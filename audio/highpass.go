// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"math"
	"sync/atomic"
)

// DefaultHighPassHz removes DC and sub-audio rumble without touching
// audible content.
const DefaultHighPassHz = 20.0

// HighPass runs a source through a 2-pole topology-preserving state
// variable high-pass filter (Butterworth Q). The cutoff can be changed from
// any goroutine; the new value is picked up at the start of the next block.
type HighPass struct {
	src    Source
	cutoff atomic.Uint64 // float64 bits

	applied float64 // cutoff the coefficients were computed for
	g, k    float64
	a1      float64
	a2      float64
	a3      float64

	ic1eq []float64
	ic2eq []float64
}

func NewHighPass(src Source, cutoffHz float64) *HighPass {
	h := &HighPass{
		src:     src,
		k:       math.Sqrt2,
		applied: -1,
		ic1eq:   make([]float64, max(src.Channels(), 1)),
		ic2eq:   make([]float64, max(src.Channels(), 1)),
	}
	h.SetCutoff(cutoffHz)

	return h
}

func (h *HighPass) SampleRate() int { return h.src.SampleRate() }
func (h *HighPass) Channels() int   { return h.src.Channels() }
func (h *HighPass) BufSize() int    { return h.src.BufSize() }
func (h *HighPass) Close() error {
	if err := h.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// SetCutoff stores the cutoff frequency in Hz. Values are kept between
// 1 Hz and just under Nyquist when applied.
func (h *HighPass) SetCutoff(hz float64) {
	h.cutoff.Store(math.Float64bits(hz))
}

func (h *HighPass) Cutoff() float64 {
	return math.Float64frombits(h.cutoff.Load())
}

// Reset clears the filter state.
func (h *HighPass) Reset() {
	clear(h.ic1eq)
	clear(h.ic2eq)
}

func (h *HighPass) ReadSamples(dst []float32) (int, error) {
	n, err := h.src.ReadSamples(dst)
	if n == 0 {
		return 0, err
	}

	h.updateCoefficients()

	ch := len(h.ic1eq)
	for i := range n {
		c := i % ch
		x := float64(dst[i])

		v3 := x - h.ic2eq[c]
		v1 := h.a1*h.ic1eq[c] + h.a2*v3
		v2 := h.ic2eq[c] + h.a2*h.ic1eq[c] + h.a3*v3

		h.ic1eq[c] = 2*v1 - h.ic1eq[c]
		h.ic2eq[c] = 2*v2 - h.ic2eq[c]

		dst[i] = float32(x - h.k*v1 - v2)
	}

	return n, err
}

func (h *HighPass) updateCoefficients() {
	hz := h.Cutoff()
	if hz == h.applied {
		return
	}
	h.applied = hz

	rate := float64(h.src.SampleRate())
	if rate <= 0 {
		rate = 44100
	}
	hz = min(max(hz, 1), rate*0.49)

	h.g = math.Tan(math.Pi * hz / rate)
	h.a1 = 1 / (1 + h.g*(h.g+h.k))
	h.a2 = h.g * h.a1
	h.a3 = h.g * h.a2
}
