// SPDX-License-Identifier: EPL-2.0

package loop

import (
	"sync"
	"sync/atomic"

	"github.com/ik5/audloop/audio"
)

// headCache holds the first crossfade-length frames of the loop so the
// tail can be blended with them without seeking back every pass. It is
// owned by the render goroutine.
type headCache struct {
	start  int64
	length int64
	valid  bool
	buf    []float32
}

func (h *headCache) matches(start, length int64) bool {
	return h.valid && h.start == start && h.length == length
}

// rebuild refills the cache with one seek-and-read through read. The buffer
// only grows.
func (h *headCache) rebuild(start, length int64, channels int, read func(dst []float32, pos int64)) {
	need := int(length) * channels
	if cap(h.buf) < need {
		h.buf = make([]float32, need)
	} else {
		h.buf = h.buf[:need]
		clear(h.buf)
	}

	read(h.buf, start)

	h.start = start
	h.length = length
	h.valid = true
}

func (h *headCache) invalidate() { h.valid = false }

// headSnapshot is an immutable head cache published by headRebuilder.
type headSnapshot struct {
	start   int64
	length  int64
	samples []float32
}

// headRebuilder fills head caches on its own goroutine from a positional
// reader and publishes them through an atomic pointer, so the render path
// never seeks. Requests carry start and length in two atomics; a torn pair
// builds a snapshot nobody asked for, which the render path rejects and
// requests again.
type headRebuilder struct {
	reader      audio.FrameReaderAt
	srcChannels int
	channels    int

	current atomic.Pointer[headSnapshot]

	wantStart  atomic.Int64
	wantLength atomic.Int64
	wake       chan struct{}

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	builds atomic.Int64
}

func newHeadRebuilder(reader audio.FrameReaderAt, srcChannels, channels int) *headRebuilder {
	h := &headRebuilder{
		reader:      reader,
		srcChannels: srcChannels,
		channels:    channels,
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	go h.run()

	return h
}

// lookup returns the snapshot for (start, length) if it is ready and asks
// for it otherwise. It never blocks and never allocates.
func (h *headRebuilder) lookup(start, length int64) *headSnapshot {
	if snap := h.current.Load(); snap != nil && snap.start == start && snap.length == length {
		return snap
	}

	h.request(start, length)

	return nil
}

func (h *headRebuilder) request(start, length int64) {
	h.wantStart.Store(start)
	h.wantLength.Store(length)

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *headRebuilder) run() {
	defer close(h.done)

	for {
		select {
		case <-h.stop:
			return
		case <-h.wake:
		}

		start, length := h.wantStart.Load(), h.wantLength.Load()
		if length <= 0 || start < 0 {
			continue
		}
		if snap := h.current.Load(); snap != nil && snap.start == start && snap.length == length {
			continue
		}

		h.current.Store(h.build(start, length))
		h.builds.Add(1)
	}
}

func (h *headRebuilder) build(start, length int64) *headSnapshot {
	raw := make([]float32, int(length)*h.srcChannels)
	// shortfalls stay silent
	_, _ = h.reader.ReadFramesAt(raw, start)

	samples := raw
	if h.srcChannels != h.channels {
		samples = make([]float32, int(length)*h.channels)
		audio.RemapChannels(samples, h.channels, raw, h.srcChannels)
	}

	return &headSnapshot{start: start, length: length, samples: samples}
}

// close stops the goroutine and waits for it to exit.
func (h *headRebuilder) close() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}
