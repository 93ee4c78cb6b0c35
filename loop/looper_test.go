// SPDX-License-Identifier: EPL-2.0

package loop

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audloop/audio"
	"github.com/ik5/audloop/internal/audiotest"
)

func newRamp(channels int, length int64) *audiotest.PositionableSource {
	return audiotest.NewPositionableSource(44100, channels, length, audiotest.Ramp)
}

// render pulls frames in blocks of blockSize and returns everything produced.
func render(t *testing.T, l *Looper, frames, blockSize int) []float32 {
	t.Helper()

	ch := l.Channels()
	out := make([]float32, 0, frames*ch)
	buf := make([]float32, blockSize*ch)

	for remaining := frames; remaining > 0; {
		n := min(blockSize, remaining)
		got, err := l.ReadSamples(buf[:n*ch])
		require.NoError(t, err)
		require.Equal(t, n*ch, got)

		out = append(out, buf[:n*ch]...)
		remaining -= n
	}

	return out
}

func TestLooper_Defaults(t *testing.T) {
	t.Parallel()

	src := newRamp(2, 1000)
	l := New(src)

	assert.True(t, l.IsLooping())
	assert.Equal(t, Region{Start: 0, End: 1000}, l.LoopRange())
	assert.Equal(t, 0, l.CrossfadeLength())
	assert.Equal(t, DefaultCurve, l.CrossfadeCurve())
	assert.Equal(t, 2, l.Channels())
	assert.Equal(t, 44100, l.SampleRate())
	assert.Equal(t, Borrowed, l.Ownership())
	assert.Equal(t, Unbounded, l.TotalLength())
}

func TestLooper_ExactWraparoundWithoutCrossfade(t *testing.T) {
	t.Parallel()

	tests := []struct {
		start, end int64
		blockSize  int
	}{
		{start: 0, end: 100, blockSize: 7},
		{start: 0, end: 100, blockSize: 100},
		{start: 37, end: 38, blockSize: 1},
		{start: 250, end: 4000, blockSize: 512},
		{start: 1, end: 9999, blockSize: 4096},
	}

	for _, tt := range tests {
		src := newRamp(1, 10000)
		l := New(src)
		l.SetLoopRange(tt.start, tt.end)
		l.SetReadPosition(tt.start)

		out := render(t, l, int(tt.end-tt.start), tt.blockSize)

		assert.Equal(t, tt.start, l.ReadPosition(), "loop [%d,%d) block %d", tt.start, tt.end, tt.blockSize)
		for i, v := range out {
			require.Equal(t, audiotest.Ramp(tt.start+int64(i), 0), v)
		}
	}
}

func TestLooper_PlainLoopPosition(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 60000)
	l := New(src)
	l.SetLoopRange(0, 50000)

	out := render(t, l, 50000, 441)
	assert.Equal(t, int64(0), l.ReadPosition())
	assert.Equal(t, audiotest.Ramp(49999, 0), out[49999])

	out = render(t, l, 25000, 441)
	assert.Equal(t, int64(25000), l.ReadPosition())
	assert.Equal(t, audiotest.Ramp(0, 0), out[0], "second pass restarts at loop start")
	assert.Equal(t, audiotest.Ramp(24999, 0), out[24999])
}

func TestLooper_CrossfadeScenario(t *testing.T) {
	t.Parallel()

	const (
		loopEnd = 100000
		xfade   = 1000
	)

	src := newRamp(1, 200000)
	l := New(src)
	l.SetLoopRange(0, loopEnd)
	l.SetCrossfadeLength(xfade)
	l.SetCrossfadeCurve(0.25, 0.75)
	l.Prepare(512, 44100)

	out := render(t, l, loopEnd, 512)
	table := NewFadeTable(Curve{X: 0.25, Y: 0.75})

	for i := range loopEnd - xfade {
		require.Equal(t, audiotest.Ramp(int64(i), 0), out[i], "frame %d must be raw upstream", i)
	}

	for k := range xfade {
		i := loopEnd - xfade + k
		tail := audiotest.Ramp(int64(i), 0)
		head := audiotest.Ramp(int64(k), 0)
		g := table.Lookup(float32(float64(k) / xfade))

		require.InDelta(t, tail*(1-g)+head*g, out[i], 1e-7, "crossfade frame %d", i)
	}

	assert.Equal(t, audiotest.Ramp(loopEnd-xfade, 0), out[loopEnd-xfade], "first crossfade frame is pure tail")
	assert.InDelta(t, audiotest.Ramp(xfade-1, 0), out[loopEnd-1], 1e-4, "last crossfade frame is head")

	assert.Equal(t, int64(xfade), l.ReadPosition(), "next pass starts after the head")

	next := render(t, l, 1, 1)
	assert.Equal(t, audiotest.Ramp(xfade, 0), next[0])
}

func TestLooper_SecondPassCrossfadesAgain(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 2000)
	l := New(src)
	l.SetLoopRange(0, 1000)
	l.SetCrossfadeLength(100)

	// first pass is 1000 frames, every later pass is 900
	out := render(t, l, 1000+900, 64)

	first := out[900:1000]
	second := out[1000+800 : 1000+900]
	assert.Equal(t, first, second, "every crossfade zone renders the same blend")
	assert.Equal(t, int64(100), l.ReadPosition())
}

func TestLooper_CrossfadeClampedToHalfLoop(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 2000)
	l := New(src)
	l.SetLoopRange(0, 1000)
	l.SetCrossfadeLength(800)

	out := render(t, l, 1000, 128)

	assert.Equal(t, 800, l.CrossfadeLength(), "the requested value is kept")
	assert.Equal(t, int64(500), l.head.length, "the rendered window is half the loop")
	assert.Equal(t, audiotest.Ramp(499, 0), out[499])
	assert.NotEqual(t, audiotest.Ramp(750, 0), out[750])
	assert.Equal(t, int64(500), l.ReadPosition())
}

func TestLooper_InvalidRangeForwards(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 5000)
	l := New(src)
	l.SetLoopRange(100, 50)
	l.SetCrossfadeLength(10)

	assert.Equal(t, int64(5000), l.TotalLength())

	out := render(t, l, 300, 100)
	for i, v := range out {
		require.Equal(t, audiotest.Ramp(int64(i), 0), v)
	}
	assert.Equal(t, int64(300), l.ReadPosition())

	// Fixing the range brings looping back on the next block.
	l.SetLoopRange(0, 400)
	assert.Equal(t, Unbounded, l.TotalLength())
	render(t, l, 100, 100)
	assert.Equal(t, int64(10), l.ReadPosition())
}

func TestLooper_LoopingDisabled(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 100)
	l := New(src)
	l.SetLoopRange(0, 50)
	l.SetLooping(false)

	assert.Equal(t, int64(100), l.TotalLength())

	buf := make([]float32, 60)
	n, err := l.ReadSamples(buf)
	require.NoError(t, err)
	assert.Equal(t, 60, n)
	assert.Equal(t, audiotest.Ramp(59, 0), buf[59], "no wrap at loop end")
	assert.Equal(t, int64(60), l.ReadPosition())

	n, err = l.ReadSamples(buf)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 40, n)
}

func TestLooper_FarAheadCursorIsRefolded(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 100000)
	l := New(src)
	l.SetLoopRange(0, 100000)
	l.SetCrossfadeLength(1000)

	l.SetReadPosition(1000500)
	out := render(t, l, 1, 1)

	assert.Equal(t, audiotest.Ramp(10500, 0), out[0])
	assert.Equal(t, int64(10501), l.ReadPosition())
}

func TestLooper_HeadCacheAndTableRebuildOnChange(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 10000)
	l := New(src)
	l.SetLoopRange(1000, 5000)
	l.SetCrossfadeLength(200)

	render(t, l, 10, 10)
	require.True(t, l.head.matches(1000, 200))
	assert.Equal(t, audiotest.Ramp(1000, 0), l.head.buf[0])

	l.SetCrossfadeLength(300)
	render(t, l, 10, 10)
	assert.True(t, l.head.matches(1000, 300))

	l.SetLoopRange(2000, 5000)
	render(t, l, 10, 10)
	assert.True(t, l.head.matches(2000, 300))
	assert.Equal(t, audiotest.Ramp(2000, 0), l.head.buf[0])

	l.SetCrossfadeCurve(0.6, 0.3)
	render(t, l, 10, 10)
	assert.Equal(t, Curve{X: 0.6, Y: 0.3}, l.fade.Curve())
}

func TestLooper_HeadCacheSkippedWithoutCrossfade(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 1000)
	l := New(src)
	l.SetLoopRange(0, 500)

	render(t, l, 1200, 100)
	assert.False(t, l.head.valid)
}

func TestLooper_ChannelPadding(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 4000)
	l := New(src, WithChannels(2))
	l.SetLoopRange(0, 2000)
	l.SetCrossfadeLength(500)
	l.Prepare(256, 44100)

	require.Equal(t, 2, l.Channels())

	out := render(t, l, 2000, 256)
	for f := range 2000 {
		require.Equal(t, out[2*f], out[2*f+1], "frame %d: missing channel repeats the last one", f)
	}
	assert.Equal(t, audiotest.Ramp(10, 0), out[20])
}

func TestLooper_ChannelDownmix(t *testing.T) {
	t.Parallel()

	src := newRamp(2, 100)
	l := New(src, WithChannels(1))

	out := render(t, l, 10, 10)
	for f, v := range out {
		want := (audiotest.Ramp(int64(f), 0) + audiotest.Ramp(int64(f), 1)) / 2
		assert.InDelta(t, want, v, 1e-7)
	}
}

func TestLooper_InvalidDstSize(t *testing.T) {
	t.Parallel()

	l := New(newRamp(2, 100))

	_, err := l.ReadSamples(make([]float32, 3))
	assert.ErrorIs(t, err, audio.ErrInvalidDstSize)
}

func TestLooper_UpstreamShortfallIsNotRetried(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 1000)
	src.Short = 4
	l := New(src)
	l.SetLoopRange(0, 1000)

	buf := []float32{9, 9, 9, 9, 9, 9, 9, 9}
	n, err := l.ReadSamples(buf)

	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, 1, src.Reads)
	assert.Equal(t, audiotest.Ramp(3, 0), buf[3])
	assert.Equal(t, float32(9), buf[4], "unfilled frames are left as they were")
	assert.Equal(t, int64(8), l.ReadPosition())
}

func TestLooper_RemapPastUpstreamEndIsSilent(t *testing.T) {
	t.Parallel()

	mono := New(newRamp(1, 100), WithChannels(2))
	mono.SetLoopRange(0, 200)
	mono.SetReadPosition(150)

	stereo := New(newRamp(2, 100))
	stereo.SetLoopRange(0, 200)
	stereo.SetReadPosition(150)

	got := []float32{9, 9, 9, 9}
	want := []float32{9, 9, 9, 9}

	_, err := mono.ReadSamples(got)
	require.NoError(t, err)
	_, err = stereo.ReadSamples(want)
	require.NoError(t, err)

	assert.Equal(t, make([]float32, 4), got, "frames past the upstream end are silent")
	assert.Equal(t, want, got, "remapped output matches the same-layout path")
}

func TestLooper_RemapStraddlingUpstreamEnd(t *testing.T) {
	t.Parallel()

	l := New(newRamp(1, 100), WithChannels(2))
	l.SetLooping(false)
	l.SetReadPosition(98)

	buf := []float32{9, 9, 9, 9, 9, 9, 9, 9}
	n, err := l.ReadSamples(buf)

	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 4, n, "only frames inside the upstream are counted")

	r98, r99 := audiotest.Ramp(98, 0), audiotest.Ramp(99, 0)
	assert.Equal(t, []float32{r98, r98, r99, r99, 0, 0, 0, 0}, buf)
}

func TestLooper_HeadCacheSeeksOncePerRebuild(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 20000)
	l := New(src)
	l.SetLoopRange(0, 10000)
	l.SetCrossfadeLength(200)
	l.Prepare(256, 44100)

	buf := make([]float32, 256)

	_, err := l.ReadSamples(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Seeks, "one head cache build and one block read")
	assert.Equal(t, 2, src.Reads)

	_, err = l.ReadSamples(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Seeks, "a cached head costs no extra seek")
	assert.Equal(t, 3, src.Reads)

	l.SetCrossfadeLength(300)
	_, err = l.ReadSamples(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, src.Seeks, "a new crossfade length rebuilds once")
	assert.Equal(t, 5, src.Reads)

	_, err = l.ReadSamples(buf)
	require.NoError(t, err)
	assert.Equal(t, 6, src.Seeks)
	assert.Equal(t, 6, src.Reads)

	l.SetLoopRange(100, 10000)
	_, err = l.ReadSamples(buf)
	require.NoError(t, err)
	assert.Equal(t, 8, src.Seeks, "a new loop start rebuilds once")
	assert.Equal(t, 8, src.Reads)
	assert.Equal(t, int64(5*256), l.ReadPosition())
}

func TestLooper_PrepareReleaseAndOwnership(t *testing.T) {
	t.Parallel()

	borrowed := newRamp(1, 10)
	l := New(borrowed)
	l.Prepare(128, 48000)
	assert.True(t, borrowed.Prepared)
	assert.Equal(t, 128, borrowed.BlockSize)

	l.Release()
	assert.False(t, borrowed.Prepared)

	require.NoError(t, l.Close())
	assert.False(t, borrowed.Closed)

	owned := newRamp(1, 10)
	l = New(owned, WithOwnership(Owned))
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.True(t, owned.Closed)
	assert.Equal(t, "owned", Owned.String())
	assert.Equal(t, "borrowed", Borrowed.String())
}

func TestLooper_CurveIsClamped(t *testing.T) {
	t.Parallel()

	l := New(newRamp(1, 10))
	l.SetCrossfadeCurve(0, 2)

	assert.Equal(t, Curve{X: CurveMin, Y: CurveMax}, l.CrossfadeCurve())

	l.SetCrossfadeLength(-5)
	assert.Equal(t, 0, l.CrossfadeLength())
}

// hideReaderAt strips ReadFramesAt so the looper cannot rebuild in the
// background.
type hideReaderAt struct {
	audio.PositionableSource
}

func TestLooper_AsyncHeadCache(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 4000)
	l := New(src, WithAsyncHeadCache())
	t.Cleanup(func() { _ = l.Close() })

	l.SetLoopRange(0, 2000)
	l.SetCrossfadeLength(300)
	require.NotNil(t, l.rebuilder)

	l.Prepare(64, 44100)

	require.Eventually(t, func() bool {
		snap := l.rebuilder.current.Load()
		return snap != nil && snap.start == 0 && snap.length == 300
	}, 2*time.Second, time.Millisecond)

	syncSrc := newRamp(1, 4000)
	ref := New(syncSrc)
	ref.SetLoopRange(0, 2000)
	ref.SetCrossfadeLength(300)

	got := render(t, l, 5000, 64)
	want := render(t, ref, 5000, 64)

	assert.Equal(t, want, got)
	assert.Equal(t, ref.ReadPosition(), l.ReadPosition())
	assert.False(t, l.head.valid, "the render path never builds the cache itself")
	assert.Positive(t, src.ReadsAt())
}

func TestLooper_AsyncLoopsPlainlyUntilReady(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 4000)
	l := New(src, WithAsyncHeadCache())
	t.Cleanup(func() { _ = l.Close() })

	l.SetLoopRange(0, 1000)
	l.SetCrossfadeLength(100)

	// Nothing has been requested yet, so this block cannot have a snapshot.
	out := render(t, l, 1000, 1000)
	assert.Equal(t, audiotest.Ramp(999, 0), out[999], "no blend without a snapshot")
	assert.Equal(t, int64(0), l.ReadPosition())

	require.Eventually(t, func() bool {
		return l.rebuilder.builds.Load() > 0
	}, 2*time.Second, time.Millisecond)
}

func TestLooper_AsyncCloseStopsBuilderOnBorrowed(t *testing.T) {
	t.Parallel()

	src := newRamp(1, 1000)
	l := New(src, WithAsyncHeadCache())
	require.NotNil(t, l.rebuilder)
	assert.Equal(t, Borrowed, l.Ownership())

	require.NoError(t, l.Close())

	select {
	case <-l.rebuilder.done:
	default:
		t.Fatal("builder goroutine still running after Close")
	}
	assert.False(t, src.Closed, "a borrowed upstream stays open")
}

func TestLooper_AsyncFallsBackWithoutReaderAt(t *testing.T) {
	t.Parallel()

	l := New(hideReaderAt{newRamp(1, 100)}, WithAsyncHeadCache())
	assert.Nil(t, l.rebuilder)
	require.NoError(t, l.Close())
}

// TestLooper_ConcurrentParameterUpdates hammers the setters while blocks are
// rendered; run with -race.
func TestLooper_ConcurrentParameterUpdates(t *testing.T) {
	t.Parallel()

	src := newRamp(2, 50000)
	l := New(src)
	l.Prepare(256, 44100)

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}

			start := int64(i%7) * 1000
			l.SetLoopRange(start, start+int64(5000+i%3000))
			l.SetCrossfadeLength(i % 4000)
			l.SetCrossfadeCurve(float64(i%10)/10, float64(i%7)/7)
			l.SetLooping(i%13 != 0)
		}
	}()

	buf := make([]float32, 256*2)
	for range 2000 {
		_, err := l.ReadSamples(buf)
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
		}
	}

	close(stop)
	wg.Wait()
}

func TestLooper_SteadyStateZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	src := newRamp(2, 100000)
	l := New(src)
	l.SetLoopRange(1000, 20000)
	l.SetCrossfadeLength(2000)
	l.Prepare(512, 44100)

	buf := make([]float32, 512*2)
	_, _ = l.ReadSamples(buf) // builds the head cache

	allocs := testing.AllocsPerRun(200, func() {
		_, _ = l.ReadSamples(buf)
	})

	assert.Zero(t, allocs)
}

func BenchmarkLooper_Crossfade(b *testing.B) {
	src := newRamp(2, 200000)
	l := New(src)
	l.SetLoopRange(0, 20000)
	l.SetCrossfadeLength(8000)
	l.Prepare(512, 44100)

	buf := make([]float32, 512*2)

	b.ReportAllocs()

	for b.Loop() {
		_, _ = l.ReadSamples(buf)
	}
}
