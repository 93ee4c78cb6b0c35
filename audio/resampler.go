// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"

	"github.com/ik5/audloop/utils"
)

// Resample converts interleaved frames from one sample rate to another with
// cubic interpolation and returns a new buffer. When downsampling, a one-pole
// low-pass runs over the input first to tame aliasing.
func Resample(data []float32, channels, fromRate, toRate int) ([]float32, error) {
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("resample %d -> %d: %w", fromRate, toRate, ErrInvalidSampleRate)
	}
	if len(data)%channels != 0 {
		return nil, ErrInvalidDstSize
	}

	in := data
	if fromRate > toRate {
		in = lowPass(data, channels, 0.5)
	}
	if fromRate == toRate {
		out := make([]float32, len(in))
		copy(out, in)
		return out, nil
	}

	frames := len(in) / channels
	if frames == 0 {
		return []float32{}, nil
	}

	outFrames := int(int64(frames) * int64(toRate) / int64(fromRate))
	out := make([]float32, outFrames*channels)
	ratio := float64(fromRate) / float64(toRate)

	// frame i of the input, clamped to the edges
	at := func(i, c int) float32 {
		i = min(max(i, 0), frames-1)
		return in[i*channels+c]
	}

	for f := range outFrames {
		pos := float64(f) * ratio
		i := int(pos)
		alpha := float32(pos - float64(i))

		for c := range channels {
			out[f*channels+c] = utils.CubicInterpolate(at(i-1, c), at(i, c), at(i+1, c), at(i+2, c), alpha)
		}
	}

	return out, nil
}

// ResampleSource converts a MemorySource to toRate. The source is returned
// untouched when it already runs at that rate.
func ResampleSource(m *MemorySource, toRate int) (*MemorySource, error) {
	if m.SampleRate() == toRate {
		return m, nil
	}

	data, err := Resample(m.Data(), m.Channels(), m.SampleRate(), toRate)
	if err != nil {
		return nil, err
	}

	return NewMemorySource(data, m.Channels(), toRate)
}

// lowPass applies y[n] = alpha*x[n] + (1-alpha)*y[n-1] per channel, seeding
// the state with the first frame to avoid a warm-up transient.
func lowPass(data []float32, channels int, alpha float32) []float32 {
	out := make([]float32, len(data))
	if len(data) < channels {
		return out
	}

	state := make([]float32, channels)
	copy(state, data[:channels])

	for i, x := range data {
		c := i % channels
		y := alpha*x + (1-alpha)*state[c]
		state[c] = y
		out[i] = y
	}

	return out
}
