// SPDX-License-Identifier: EPL-2.0

// Package loop repeats a region of a positionable audio source forever and
// crossfades the end of each pass into the start of the next.
//
// # Zones
//
// With a loop region [start, end) and a crossfade of n frames, every frame
// of the region falls in one of two zones:
//
//	start          end-n        end
//	  |---- normal ---|-- crossfade --|
//
// In the normal zone frames pass through from the upstream. In the crossfade
// zone the tail read from the upstream is mixed with the first n frames of
// the region (the head), which were read once and cached:
//
//	out = tail*(1-fadeIn(p)) + head*fadeIn(p),  p = (pos-(end-n))/n
//
// Because the head has already been heard at the end of the crossfade, each
// pass after the first restarts at start+n, and the distance between
// crossfades is (end-start)-n. The crossfade is clamped to half the region.
//
// # Fade curve
//
// fadeIn is a quadratic Bezier from (0,0) to (1,1) with a single control
// point, both coordinates in [0.05, 0.95]. The curve is parametric, so x is
// solved for t before y(t) is evaluated; the result is tabulated at 257
// points and interpolated while rendering.
//
// # Usage
//
//	mem, _ := audio.LoadSource(decoded)
//	l := loop.New(mem, loop.WithChannels(2))
//	l.SetLoopRange(44100, 8*44100)
//	l.SetCrossfadeLength(4410)
//	l.SetCrossfadeCurve(0.25, 0.75)
//	l.Prepare(512, 44100)
//
//	buf := make([]float32, 512*2)
//	for {
//	    l.ReadSamples(buf) // never runs out while looping
//	}
//
// # Concurrency
//
// Every parameter is its own atomic value and may be set from any goroutine.
// The render goroutine reads them at the start of each block, which can pair
// a new value with an old one for a single block. Rebuilding the head cache
// seeks the upstream on the render goroutine unless WithAsyncHeadCache is
// used with an upstream that implements audio.FrameReaderAt.
package loop
