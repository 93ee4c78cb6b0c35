// SPDX-License-Identifier: EPL-2.0

package layer

import (
	"github.com/ik5/audloop/audio"
	"github.com/ik5/audloop/loop"
)

// MaxCrossfadeMs is the longest crossfade a layer accepts.
const MaxCrossfadeMs = 5000.0

// Config describes how a layer is loaded and its initial parameters.
//
// The zero value is not a usable default: its Volume is 0, which renders
// silence, and its LoopEnd of 0 leaves an empty range, so nothing loops.
// Start from DefaultConfig and override fields from there.
type Config struct {
	// LoopStart and LoopEnd are frames at the file's own sample rate. A
	// negative or out of range end means the end of the file; a negative
	// start, or one at or after the end, means the beginning.
	LoopStart int64
	LoopEnd   int64

	CrossfadeMs float64
	CurveX      float64
	CurveY      float64

	// Volume is a linear gain; 0 is silent.
	Volume     float32
	HighPassHz float64

	// SampleRate is the rate the layer renders at. The decoded file is
	// resampled once at load. Zero keeps the file rate.
	SampleRate int
	// Channels is the output channel count. Zero keeps the file layout.
	Channels int

	// AsyncHeadCache moves head cache rebuilds off the render goroutine.
	AsyncHeadCache bool
}

// DefaultConfig plays the whole file at unity gain with no crossfade.
func DefaultConfig() Config {
	return Config{
		LoopStart:  -1,
		LoopEnd:    -1,
		CurveX:     loop.DefaultCurve.X,
		CurveY:     loop.DefaultCurve.Y,
		Volume:     1,
		HighPassHz: audio.DefaultHighPassHz,
	}
}

// resolveRange applies the loop range defaults against a source of total
// frames.
func resolveRange(start, end, total int64) (int64, int64) {
	if end < 0 || end > total {
		end = total
	}
	if start < 0 || start >= end {
		start = 0
	}
	return start, end
}

// msToFrames converts a crossfade duration to frames at rate, clamped to
// [0, MaxCrossfadeMs].
func msToFrames(ms float64, rate int) int {
	if !(ms > 0) {
		return 0
	}
	ms = min(ms, MaxCrossfadeMs)
	return int(ms * float64(rate) / 1000)
}

// scaleFrames converts a frame index between sample rates, rounding down.
func scaleFrames(frame int64, from, to int) int64 {
	if from == to || from <= 0 {
		return frame
	}
	return frame * int64(to) / int64(from)
}

// scaleFramesUp is scaleFrames rounding up, for exclusive range ends.
func scaleFramesUp(frame int64, from, to int) int64 {
	if from == to || from <= 0 {
		return frame
	}
	return (frame*int64(to) + int64(from) - 1) / int64(from)
}
