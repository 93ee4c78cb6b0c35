// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelMixer adapts a source to a fixed output channel count.
// Mixing down to mono averages all input channels; any other mapping copies
// input channel c to output channel c and repeats the last input channel
// for the outputs the source does not have.
type ChannelMixer struct {
	src      Source
	channels int
	tmp      []float32
}

func NewChannelMixer(src Source, channels int) *ChannelMixer {
	return &ChannelMixer{
		src:      src,
		channels: max(channels, 1),
		tmp:      make([]float32, 4096),
	}
}

// NewMonoMixer mixes src down to a single channel.
func NewMonoMixer(src Source) *ChannelMixer { return NewChannelMixer(src, 1) }

func (m *ChannelMixer) SampleRate() int { return m.src.SampleRate() }
func (m *ChannelMixer) Channels() int   { return m.channels }
func (m *ChannelMixer) BufSize() int    { return m.src.BufSize() }

// Frames forwards the upstream length, or 0 when it is unknown.
func (m *ChannelMixer) Frames() int64 {
	if l, ok := m.src.(Lengther); ok {
		return l.Frames()
	}
	return 0
}

func (m *ChannelMixer) Close() error {
	err := m.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

func (m *ChannelMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if len(dst)%m.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	srcCh := m.src.Channels()
	if srcCh == m.channels {
		return m.src.ReadSamples(dst)
	}

	frames := len(dst) / m.channels
	need := frames * srcCh

	// Grow tmp buffer if needed (but don't shrink to avoid thrashing)
	if cap(m.tmp) < need {
		m.tmp = make([]float32, max(need, 8192))
	}

	n, err := m.src.ReadSamples(m.tmp[:need])
	if n == 0 {
		return 0, err
	}

	got := n / srcCh
	RemapChannels(dst, m.channels, m.tmp[:got*srcCh], srcCh)

	return got * m.channels, err
}

// RemapChannels converts interleaved frames in src (srcCh channels) into dst
// (dstCh channels) and returns the number of frames converted, bounded by
// whichever buffer is shorter.
//
// dstCh == 1 averages every source channel. Otherwise output channel c reads
// source channel min(c, srcCh-1), which pads missing channels with the last
// available one and drops extra source channels.
func RemapChannels(dst []float32, dstCh int, src []float32, srcCh int) int {
	if dstCh <= 0 || srcCh <= 0 {
		return 0
	}

	frames := min(len(dst)/dstCh, len(src)/srcCh)

	switch {
	case dstCh == srcCh:
		copy(dst[:frames*dstCh], src[:frames*srcCh])

	case dstCh == 1:
		inv := float32(1) / float32(srcCh)
		if srcCh == 2 {
			for f := range frames {
				idx := f << 1
				dst[f] = (src[idx] + src[idx+1]) * 0.5
			}
			break
		}
		for f := range frames {
			sum := float32(0)
			base := f * srcCh
			for c := range srcCh {
				sum += src[base+c]
			}
			dst[f] = sum * inv
		}

	case srcCh == 1:
		for f := range frames {
			v := src[f]
			out := dst[f*dstCh : (f+1)*dstCh]
			for c := range out {
				out[c] = v
			}
		}

	default:
		for f := range frames {
			in := src[f*srcCh : (f+1)*srcCh]
			out := dst[f*dstCh : (f+1)*dstCh]
			for c := range out {
				out[c] = in[min(c, srcCh-1)]
			}
		}
	}

	return frames
}
