// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// Lengther is implemented by decoders that know their length in frames
// before the stream is consumed. LoadSource uses it to size its buffer.
type Lengther interface {
	Frames() int64
}

// MemorySource is a fully decoded, positionable stream held in memory.
//
// The read cursor is owned by a single consumer. ReadFramesAt only reads the
// immutable sample data and may run concurrently with ReadSamples.
type MemorySource struct {
	data       []float32 // interleaved
	channels   int
	sampleRate int
	frames     int64
	pos        int64
	blockSize  int
}

// NewMemorySource wraps interleaved samples. len(data) is truncated to a
// whole number of frames.
func NewMemorySource(data []float32, channels, sampleRate int) (*MemorySource, error) {
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}

	frames := int64(len(data) / channels)

	return &MemorySource{
		data:       data[:frames*int64(channels)],
		channels:   channels,
		sampleRate: sampleRate,
		frames:     frames,
		blockSize:  4096,
	}, nil
}

// LoadSource drains src into memory and closes it.
func LoadSource(src Source) (*MemorySource, error) {
	channels := src.Channels()
	if channels <= 0 {
		return nil, ErrInvalidChannels
	}

	var data []float32
	if l, ok := src.(Lengther); ok && l.Frames() > 0 {
		data = make([]float32, 0, l.Frames()*int64(channels))
	}

	bufSize := src.BufSize()
	if bufSize < channels {
		bufSize = 4096
	}
	// keep reads frame aligned
	bufSize -= bufSize % channels
	buf := make([]float32, bufSize)

	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = src.Close()
			return nil, fmt.Errorf("loading source: %w", err)
		}
		if n == 0 {
			// Decoders may return (0, nil) while refilling; treat a dry
			// read as the end to avoid spinning forever.
			break
		}
	}

	if err := src.Close(); err != nil {
		return nil, fmt.Errorf("closing source: %w", err)
	}

	return NewMemorySource(data, channels, src.SampleRate())
}

func (m *MemorySource) SampleRate() int { return m.sampleRate }
func (m *MemorySource) Channels() int   { return m.channels }
func (m *MemorySource) BufSize() int    { return m.blockSize * m.channels }
func (m *MemorySource) Close() error    { return nil }

func (m *MemorySource) Prepare(blockSize, _ int) {
	if blockSize > 0 {
		m.blockSize = blockSize
	}
}

func (m *MemorySource) Release() {}

func (m *MemorySource) SetReadPosition(pos int64) { m.pos = pos }
func (m *MemorySource) ReadPosition() int64       { return m.pos }
func (m *MemorySource) TotalLength() int64        { return m.frames }

// Data exposes the interleaved samples. Callers must not modify them.
func (m *MemorySource) Data() []float32 { return m.data }

// ReadSamples copies frames from the cursor and advances it by the number of
// frames requested. Frames outside the stream are written as silence, and
// io.EOF is returned once the read touches the end.
func (m *MemorySource) ReadSamples(dst []float32) (int, error) {
	if len(dst)%m.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if m.pos >= m.frames {
		clear(dst)
		m.pos += int64(len(dst) / m.channels)
		return 0, io.EOF
	}

	n := m.copyFrames(dst, m.pos)
	m.pos += int64(len(dst) / m.channels)

	if m.pos >= m.frames {
		return n, io.EOF
	}
	return n, nil
}

// ReadFramesAt implements FrameReaderAt.
func (m *MemorySource) ReadFramesAt(dst []float32, pos int64) (int, error) {
	if len(dst)%m.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if pos < 0 {
		return 0, ErrNegativePosition
	}
	if pos >= m.frames {
		clear(dst)
		return 0, io.EOF
	}

	n := m.copyFrames(dst, pos)
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

// copyFrames fills dst from frame pos, zeroing whatever falls outside
// [0, frames). It returns the number of samples taken from the stream.
func (m *MemorySource) copyFrames(dst []float32, pos int64) int {
	ch := int64(m.channels)
	want := int64(len(dst)) / ch

	skip := int64(0)
	if pos < 0 {
		skip = min(-pos, want)
		clear(dst[:skip*ch])
		pos = 0
	}

	avail := max(min(want-skip, m.frames-pos), 0)
	n := copy(dst[skip*ch:(skip+avail)*ch], m.data[pos*ch:(pos+avail)*ch])
	clear(dst[(skip+avail)*ch:])

	return n
}
