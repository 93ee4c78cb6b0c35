// SPDX-License-Identifier: EPL-2.0

package loop

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ik5/audloop/audio"
)

// Unbounded is what TotalLength reports while the looper repeats forever.
const Unbounded int64 = math.MaxInt64

// Ownership says whether a Looper is responsible for closing its upstream.
type Ownership int

const (
	// Borrowed leaves the upstream open on Close.
	Borrowed Ownership = iota
	// Owned closes the upstream on Close.
	Owned
)

func (o Ownership) String() string {
	if o == Owned {
		return "owned"
	}
	return "borrowed"
}

// Looper turns a finite positionable source into an endless stream that
// repeats a region and blends the end of every pass into the start of the
// next one.
//
// Parameters are independent atomics. Setters may run on any goroutine while
// ReadSamples runs on the render goroutine; each block reads them once at the
// top. A block can therefore see a new end with an old start when an update
// races the block boundary. That mix is valid for one block at most and the
// next block corrects it, so no lock is taken on the render path.
//
// ReadSamples, Prepare and Release must be called from a single goroutine.
type Looper struct {
	src         audio.PositionableSource
	ownership   Ownership
	channels    int
	srcChannels int
	async       bool

	loopStart atomic.Int64
	loopEnd   atomic.Int64
	looping   atomic.Bool
	crossfade atomic.Int64
	curveX    atomic.Uint64 // float64 bits
	curveY    atomic.Uint64 // float64 bits
	pos       atomic.Int64

	// render goroutine state
	fade      FadeTable
	head      headCache
	scratch   []float32
	rebuilder *headRebuilder

	closeOnce sync.Once
	closeErr  error
}

// New wraps src. The loop starts enabled and covers the whole source with no
// crossfade.
func New(src audio.PositionableSource, opts ...Option) *Looper {
	l := &Looper{
		src:         src,
		srcChannels: max(src.Channels(), 1),
	}
	l.channels = l.srcChannels

	for _, opt := range opts {
		opt(l)
	}

	l.loopEnd.Store(src.TotalLength())
	l.looping.Store(true)
	l.SetCrossfadeCurve(DefaultCurve.X, DefaultCurve.Y)
	l.fade.Rebuild(l.CrossfadeCurve())

	if l.async {
		if reader, ok := src.(audio.FrameReaderAt); ok {
			l.rebuilder = newHeadRebuilder(reader, l.srcChannels, l.channels)
		}
	}

	return l
}

// SetLoopRange sets the region to repeat. An invalid range is stored as
// given; while it stays invalid the looper forwards the upstream unchanged.
func (l *Looper) SetLoopRange(start, end int64) {
	l.loopStart.Store(start)
	l.loopEnd.Store(end)
}

func (l *Looper) LoopStart() int64 { return l.loopStart.Load() }
func (l *Looper) LoopEnd() int64   { return l.loopEnd.Load() }

// LoopRange returns both ends. They are loaded separately and may be torn
// while a concurrent SetLoopRange is in flight.
func (l *Looper) LoopRange() Region {
	return Region{Start: l.loopStart.Load(), End: l.loopEnd.Load()}
}

func (l *Looper) SetLooping(on bool) { l.looping.Store(on) }
func (l *Looper) IsLooping() bool    { return l.looping.Load() }

// SetCrossfadeLength sets the requested crossfade in frames. Negative values
// mean no crossfade. The length used when rendering is additionally clamped
// to half the loop.
func (l *Looper) SetCrossfadeLength(frames int) {
	l.crossfade.Store(int64(max(frames, 0)))
}

func (l *Looper) CrossfadeLength() int { return int(l.crossfade.Load()) }

// SetCrossfadeCurve sets the fade curve control point, clamped to
// [CurveMin, CurveMax] on both axes.
func (l *Looper) SetCrossfadeCurve(x, y float64) {
	c := Curve{X: x, Y: y}.Clamp()
	l.curveX.Store(math.Float64bits(c.X))
	l.curveY.Store(math.Float64bits(c.Y))
}

func (l *Looper) CrossfadeCurve() Curve {
	return Curve{
		X: math.Float64frombits(l.curveX.Load()),
		Y: math.Float64frombits(l.curveY.Load()),
	}
}

func (l *Looper) SampleRate() int { return l.src.SampleRate() }
func (l *Looper) Channels() int   { return l.channels }
func (l *Looper) BufSize() int    { return l.src.BufSize() }

// Ownership reports whether Close closes the upstream.
func (l *Looper) Ownership() Ownership { return l.ownership }

// Prepare prepares the upstream and sizes the channel conversion buffer for
// blocks of blockSize frames.
func (l *Looper) Prepare(blockSize, sampleRate int) {
	l.src.Prepare(blockSize, sampleRate)

	if l.srcChannels != l.channels && blockSize > 0 {
		if need := blockSize * l.srcChannels; cap(l.scratch) < need {
			l.scratch = make([]float32, need)
		}
	}

	if l.rebuilder != nil {
		r := l.LoopRange()
		if xfade := r.ClampCrossfade(l.crossfade.Load()); xfade > 0 {
			l.rebuilder.request(r.Start, xfade)
		}
	}
}

func (l *Looper) Release() {
	l.src.Release()
}

// Close stops the background head cache builder, if any, and closes the
// upstream when the looper owns it. A looper built WithAsyncHeadCache leaks
// its builder goroutine until Close is called.
func (l *Looper) Close() error {
	l.closeOnce.Do(func() {
		if l.rebuilder != nil {
			l.rebuilder.close()
		}
		if l.ownership == Owned {
			if err := l.src.Close(); err != nil {
				l.closeErr = fmt.Errorf("closing upstream: %w", err)
			}
		}
	})

	return l.closeErr
}

func (l *Looper) SetReadPosition(pos int64) { l.pos.Store(pos) }

// ReadPosition is the raw next frame. It is only folded into the loop when
// the next block is rendered.
func (l *Looper) ReadPosition() int64 { return l.pos.Load() }

// TotalLength is Unbounded while looping over a valid region and the
// upstream length otherwise.
func (l *Looper) TotalLength() int64 {
	if l.looping.Load() && l.LoopRange().Valid() {
		return Unbounded
	}
	return l.src.TotalLength()
}

// ReadSamples renders len(dst)/Channels() frames. While looping over a valid
// region it always fills dst completely and returns a nil error; upstream
// errors and shortfalls are not retried and leave the affected frames as
// the upstream wrote them.
func (l *Looper) ReadSamples(dst []float32) (int, error) {
	if len(dst)%l.channels != 0 {
		return 0, audio.ErrInvalidDstSize
	}

	pos := l.pos.Load()

	if !l.looping.Load() {
		return l.forward(dst, pos)
	}

	r := l.LoopRange()
	if !r.Valid() {
		return l.forward(dst, pos)
	}

	xfade, head := l.crossfadeFor(r)
	xfadeStart := r.CrossfadeStart(xfade)
	pos = r.Wrap(pos, xfade)

	ch := int64(l.channels)
	frames := int64(len(dst)) / ch

	for off := int64(0); off < frames; {
		n := min(frames-off, r.Boundary(pos, xfade)-pos)
		chunk := dst[off*ch : (off+n)*ch]

		l.readAt(chunk, pos)
		if xfade > 0 && pos >= xfadeStart {
			l.blend(chunk, head, pos-xfadeStart, xfade)
		}

		pos += n
		off += n

		if pos >= r.End {
			pos = r.Restart(xfade)
		}
	}

	l.pos.Store(pos)

	return len(dst), nil
}

// forward passes the upstream through with only position bookkeeping.
func (l *Looper) forward(dst []float32, pos int64) (int, error) {
	l.src.SetReadPosition(pos)
	n, err := l.read(dst)
	l.pos.Store(l.src.ReadPosition())

	return n, err
}

// crossfadeFor resolves the crossfade length for this block and makes sure
// the fade table and head cache match it. A zero length means plain looping.
func (l *Looper) crossfadeFor(r Region) (int64, []float32) {
	xfade := r.ClampCrossfade(l.crossfade.Load())
	if xfade == 0 {
		return 0, nil
	}

	l.fade.Refresh(l.CrossfadeCurve())

	if l.rebuilder != nil {
		snap := l.rebuilder.lookup(r.Start, xfade)
		if snap == nil {
			// loop plainly until the background build lands
			return 0, nil
		}
		return xfade, snap.samples
	}

	if !l.head.matches(r.Start, xfade) {
		// The only backward seek on the render path. On a file-backed
		// upstream this can block on I/O; use WithAsyncHeadCache to move it
		// off the render goroutine.
		l.head.rebuild(r.Start, xfade, l.channels, l.readAt)
	}

	return xfade, l.head.buf
}

// blend mixes the tail in chunk with the cached head. offset is the
// position of chunk's first frame inside the crossfade window.
func (l *Looper) blend(chunk, head []float32, offset, xfade int64) {
	ch := l.channels
	scale := 1 / float64(xfade)

	for f := range len(chunk) / ch {
		idx := offset + int64(f)
		fadeIn := l.fade.Lookup(float32(float64(idx) * scale))
		fadeOut := 1 - fadeIn

		tail := chunk[f*ch : (f+1)*ch]
		h := head[int(idx)*ch : (int(idx)+1)*ch]
		for c := range tail {
			tail[c] = tail[c]*fadeOut + h[c]*fadeIn
		}
	}
}

// readAt performs one seek and one read against the upstream.
func (l *Looper) readAt(dst []float32, pos int64) {
	l.src.SetReadPosition(pos)
	_, _ = l.read(dst)
}

// read pulls len(dst)/channels frames, converting the channel layout when
// the upstream differs from the output.
func (l *Looper) read(dst []float32) (int, error) {
	if l.srcChannels == l.channels {
		return l.src.ReadSamples(dst)
	}

	frames := len(dst) / l.channels
	need := frames * l.srcChannels
	if cap(l.scratch) < need {
		l.scratch = make([]float32, need)
	}

	// Remap the whole block, not just the counted frames, so whatever the
	// upstream wrote past its end lands in dst as it would without a remap.
	n, err := l.src.ReadSamples(l.scratch[:need])
	audio.RemapChannels(dst, l.channels, l.scratch[:need], l.srcChannels)

	return n / l.srcChannels * l.channels, err
}
