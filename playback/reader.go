// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync/atomic"

	"github.com/ik5/audloop/audio"
)

const bytesPerSample = 4

// Reader turns a Source into little endian float32 bytes for the device.
// It never ends: a missing, finished or failing source plays silence, and
// the first upstream error other than io.EOF is kept for Err.
//
// The source can be swapped from another goroutine while the device reads.
type Reader struct {
	channels int
	src      atomic.Pointer[audio.Source]
	err      atomic.Pointer[error]

	samples  []float32
	scratch  []byte
	leftover []byte
}

// NewReader renders channels interleaved channels. src may be nil.
func NewReader(src audio.Source, channels int) (*Reader, error) {
	if channels <= 0 {
		return nil, audio.ErrInvalidChannels
	}

	r := &Reader{channels: channels}
	if err := r.SetSource(src); err != nil {
		return nil, err
	}
	return r, nil
}

// SetSource replaces the source. nil plays silence.
func (r *Reader) SetSource(src audio.Source) error {
	if src == nil {
		r.src.Store(nil)
		return nil
	}
	if src.Channels() != r.channels {
		return audio.ErrInvalidChannels
	}

	r.src.Store(&src)
	return nil
}

// Err returns the first upstream error seen, if any.
func (r *Reader) Err() error {
	if p := r.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Prealloc sizes the internal buffers for device reads of up to n bytes.
func (r *Reader) Prealloc(n int) {
	frames := (n + r.frameBytes() - 1) / r.frameBytes()
	r.grow(frames * r.channels)
}

func (r *Reader) frameBytes() int { return r.channels * bytesPerSample }

func (r *Reader) grow(samples int) {
	if cap(r.samples) < samples {
		r.samples = make([]float32, samples)
		r.scratch = make([]byte, samples*bytesPerSample)
	}
}

// Read fills p completely. Device reads that split a frame keep the rest
// of it for the next call.
func (r *Reader) Read(p []byte) (int, error) {
	n := copy(p, r.leftover)
	r.leftover = r.leftover[n:]
	if n == len(p) {
		return n, nil
	}
	p = p[n:]

	frames := (len(p) + r.frameBytes() - 1) / r.frameBytes()
	count := frames * r.channels
	r.grow(count)
	samples := r.samples[:count]

	r.render(samples)

	buf := r.scratch[:count*bytesPerSample]
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*bytesPerSample:], math.Float32bits(s))
	}

	m := copy(p, buf)
	r.leftover = buf[m:]

	return n + m, nil
}

func (r *Reader) render(dst []float32) {
	sp := r.src.Load()
	if sp == nil {
		clear(dst)
		return
	}

	got, err := (*sp).ReadSamples(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		r.err.CompareAndSwap(nil, &err)
		got = 0
	}
	clear(dst[max(got, 0):])
}
