// SPDX-License-Identifier: EPL-2.0

// Package layer loads one sound file into a looping voice: decode, hold in
// memory at the playback rate, loop with a crossfade, high-pass and gain.
//
// All setters are safe to call while another goroutine renders.
package layer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/ik5/audloop/audio"
	"github.com/ik5/audloop/loop"
)

// Layer is a playable, looping sound. It implements audio.Source; while
// stopped it renders silence.
type Layer struct {
	name     string
	fileRate int
	rate     int

	mem      *audio.MemorySource
	looper   *loop.Looper
	highPass *audio.HighPass
	gain     *audio.Gain

	playing atomic.Bool
	logger  *slog.Logger
}

// Load decodes path with the decoder registered for its extension.
func Load(path string, reg *audio.Registry, cfg Config, logger *slog.Logger) (*Layer, error) {
	dec, ok := reg.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", filepath.Ext(path), ErrUnsupportedFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return New(filepath.Base(path), src, cfg, logger)
}

// New drains src into memory and builds the layer around it. src is closed.
func New(name string, src audio.Source, cfg Config, logger *slog.Logger) (*Layer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("layer", name)

	fileRate := src.SampleRate()

	// convert the layout once while loading instead of on every block
	if cfg.Channels > 0 && cfg.Channels != src.Channels() {
		logger.Debug("remixing", "from", src.Channels(), "to", cfg.Channels)
		src = audio.NewChannelMixer(src, cfg.Channels)
	}

	mem, err := audio.LoadSource(src)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", name, err)
	}
	if mem.TotalLength() == 0 {
		return nil, ErrEmptySource
	}

	fileFrames := mem.TotalLength()
	start, end := resolveRange(cfg.LoopStart, cfg.LoopEnd, fileFrames)

	rate := fileRate
	if cfg.SampleRate > 0 && cfg.SampleRate != fileRate {
		rate = cfg.SampleRate

		mem, err = audio.ResampleSource(mem, rate)
		if err != nil {
			return nil, fmt.Errorf("resampling %s: %w", name, err)
		}

		// A non-empty range stays non-empty after scaling.
		total := mem.TotalLength()
		start = scaleFrames(start, fileRate, rate)
		end = min(max(scaleFramesUp(end, fileRate, rate), start+1), total)
		if start >= end {
			start = max(end-1, 0)
		}

		logger.Debug("resampled", "from", fileRate, "to", rate, "frames", mem.TotalLength())
	}

	opts := []loop.Option{loop.WithOwnership(loop.Owned)}
	if cfg.AsyncHeadCache {
		opts = append(opts, loop.WithAsyncHeadCache())
	}

	looper := loop.New(mem, opts...)
	looper.SetLoopRange(start, end)
	looper.SetReadPosition(start)
	looper.SetCrossfadeLength(msToFrames(cfg.CrossfadeMs, rate))
	looper.SetCrossfadeCurve(cfg.CurveX, cfg.CurveY)

	highPassHz := cfg.HighPassHz
	if highPassHz <= 0 {
		highPassHz = audio.DefaultHighPassHz
	}
	highPass := audio.NewHighPass(looper, highPassHz)

	l := &Layer{
		name:     name,
		fileRate: fileRate,
		rate:     rate,
		mem:      mem,
		looper:   looper,
		highPass: highPass,
		gain:     audio.NewGain(highPass, cfg.Volume),
		logger:   logger,
	}

	logger.Info("layer loaded",
		"file_rate", fileRate,
		"rate", rate,
		"channels", looper.Channels(),
		"frames", fileFrames,
		"loop_start", start,
		"loop_end", end,
		"crossfade", looper.CrossfadeLength(),
	)

	return l, nil
}

func (l *Layer) Name() string { return l.name }

// FileSampleRate is the rate of the decoded file before resampling.
func (l *Layer) FileSampleRate() int { return l.fileRate }

func (l *Layer) SampleRate() int { return l.rate }
func (l *Layer) Channels() int   { return l.looper.Channels() }
func (l *Layer) BufSize() int    { return l.looper.BufSize() }

// Frames is the length of the loaded audio at the render rate.
func (l *Layer) Frames() int64 { return l.mem.TotalLength() }

// Looper exposes the engine for direct parameter control.
func (l *Layer) Looper() *loop.Looper { return l.looper }

// Prepare sizes the render path for blocks of blockSize frames.
func (l *Layer) Prepare(blockSize int) {
	l.looper.Prepare(blockSize, l.rate)
}

func (l *Layer) Release() { l.looper.Release() }

func (l *Layer) Start() {
	if !l.playing.Swap(true) {
		l.logger.Debug("playback started")
	}
}

func (l *Layer) Stop() {
	if l.playing.Swap(false) {
		l.logger.Debug("playback stopped")
	}
}

func (l *Layer) IsPlaying() bool { return l.playing.Load() }

// ReadSamples renders the next block. A stopped layer fills dst with
// silence and does not advance.
func (l *Layer) ReadSamples(dst []float32) (int, error) {
	if !l.playing.Load() {
		if len(dst)%l.Channels() != 0 {
			return 0, audio.ErrInvalidDstSize
		}
		clear(dst)
		return len(dst), nil
	}

	return l.gain.ReadSamples(dst)
}

// Close stops the layer and releases the engine and its buffers.
func (l *Layer) Close() error {
	l.Stop()

	if err := l.gain.Close(); err != nil {
		return fmt.Errorf("closing layer %s: %w", l.name, err)
	}
	return nil
}

// SetLoopRange sets the loop in frames at the render rate.
func (l *Layer) SetLoopRange(start, end int64) { l.looper.SetLoopRange(start, end) }

func (l *Layer) SetLooping(on bool) { l.looper.SetLooping(on) }

// SetCrossfadeMs sets the crossfade duration, clamped to [0, MaxCrossfadeMs].
func (l *Layer) SetCrossfadeMs(ms float64) {
	l.looper.SetCrossfadeLength(msToFrames(ms, l.rate))
}

// CrossfadeMs reports the requested crossfade as a duration.
func (l *Layer) CrossfadeMs() float64 {
	return float64(l.looper.CrossfadeLength()) * 1000 / float64(l.rate)
}

func (l *Layer) SetCrossfadeSamples(frames int) { l.looper.SetCrossfadeLength(frames) }

func (l *Layer) SetCrossfadeCurve(x, y float64) { l.looper.SetCrossfadeCurve(x, y) }

// SetVolume sets the linear gain, clamped to [0, audio.MaxGain].
func (l *Layer) SetVolume(v float32) { l.gain.SetGain(v) }
func (l *Layer) Volume() float32     { return l.gain.Gain() }

func (l *Layer) SetHighPass(hz float64) { l.highPass.SetCutoff(hz) }
func (l *Layer) HighPass() float64      { return l.highPass.Cutoff() }

// Settings is a point-in-time view of a layer's parameters.
type Settings struct {
	Name        string  `json:"name"`
	Playing     bool    `json:"playing"`
	Looping     bool    `json:"looping"`
	LoopStart   int64   `json:"loop_start"`
	LoopEnd     int64   `json:"loop_end"`
	Crossfade   int     `json:"crossfade_samples"`
	CrossfadeMs float64 `json:"crossfade_ms"`
	CurveX      float64 `json:"curve_x"`
	CurveY      float64 `json:"curve_y"`
	Volume      float32 `json:"volume"`
	HighPassHz  float64 `json:"highpass_hz"`
	SampleRate  int     `json:"sample_rate"`
}

// Settings reads every parameter. Values are loaded one at a time and may
// mix old and new values while a setter runs concurrently.
func (l *Layer) Settings() Settings {
	r := l.looper.LoopRange()
	c := l.looper.CrossfadeCurve()

	return Settings{
		Name:        l.name,
		Playing:     l.IsPlaying(),
		Looping:     l.looper.IsLooping(),
		LoopStart:   r.Start,
		LoopEnd:     r.End,
		Crossfade:   l.looper.CrossfadeLength(),
		CrossfadeMs: l.CrossfadeMs(),
		CurveX:      c.X,
		CurveY:      c.Y,
		Volume:      l.Volume(),
		HighPassHz:  l.HighPass(),
		SampleRate:  l.rate,
	}
}
