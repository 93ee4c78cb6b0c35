// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"io"
	"sync/atomic"
)

// PositionableSource is a seekable, finite source driven by a Waveform.
// It counts the calls the looper makes so tests can assert on seek and read
// patterns. Frames past the end read as silence.
type PositionableSource struct {
	sampleRate int
	channels   int
	length     int64
	waveform   Waveform

	pos int64

	Prepared  bool
	BlockSize int
	Closed    bool
	Seeks     int
	Reads     int
	// Short, when positive, caps every ReadSamples call to that many frames
	// to simulate an upstream shortfall.
	Short int

	readsAt atomic.Int64
}

func NewPositionableSource(sampleRate, channels int, length int64, waveform Waveform) *PositionableSource {
	return &PositionableSource{
		sampleRate: sampleRate,
		channels:   channels,
		length:     length,
		waveform:   waveform,
	}
}

func (p *PositionableSource) SampleRate() int { return p.sampleRate }
func (p *PositionableSource) Channels() int   { return p.channels }
func (p *PositionableSource) BufSize() int    { return 4096 }

func (p *PositionableSource) Close() error {
	p.Closed = true
	return nil
}

func (p *PositionableSource) Prepare(blockSize, _ int) {
	p.Prepared = true
	p.BlockSize = blockSize
}

func (p *PositionableSource) Release() { p.Prepared = false }

func (p *PositionableSource) SetReadPosition(pos int64) {
	p.Seeks++
	p.pos = pos
}

func (p *PositionableSource) ReadPosition() int64 { return p.pos }
func (p *PositionableSource) TotalLength() int64  { return p.length }

// ReadsAt reports how many positional reads were served.
func (p *PositionableSource) ReadsAt() int64 { return p.readsAt.Load() }

// Frame returns the samples of one frame as the source would produce them.
func (p *PositionableSource) Frame(frame int64) []float32 {
	out := make([]float32, p.channels)
	p.fill(out, frame)
	return out
}

func (p *PositionableSource) ReadSamples(dst []float32) (int, error) {
	p.Reads++

	frames := len(dst) / p.channels
	if p.Short > 0 {
		frames = min(frames, p.Short)
	}

	n := p.fill(dst[:frames*p.channels], p.pos)
	p.pos += int64(frames)

	if p.pos >= p.length {
		return n, io.EOF
	}
	return n, nil
}

// ReadFramesAt serves positional reads without touching the cursor.
func (p *PositionableSource) ReadFramesAt(dst []float32, pos int64) (int, error) {
	p.readsAt.Add(1)

	n := p.fill(dst, pos)
	if pos+int64(len(dst)/p.channels) > p.length {
		return n, io.EOF
	}
	return n, nil
}

// fill writes frames starting at pos and returns the number of samples that
// fell inside the stream.
func (p *PositionableSource) fill(dst []float32, pos int64) int {
	n := 0
	for f := range len(dst) / p.channels {
		frame := pos + int64(f)
		inside := frame >= 0 && frame < p.length
		for ch := range p.channels {
			v := float32(0)
			if inside {
				v = p.waveform(frame, ch)
				n++
			}
			dst[f*p.channels+ch] = v
		}
	}
	return n
}
