// SPDX-License-Identifier: EPL-2.0

// Package playback plays a Source on the default audio device through oto.
// The device callback pulls blocks from the source on oto's goroutine, so
// the source must be safe to render while its parameters change.
//
// Streamer exposes the same sources to beep pipelines instead.
package playback

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/ik5/audloop/audio"
)

// DefaultBufferSize is the device buffer length used when none is given.
const DefaultBufferSize = 40 * time.Millisecond

// Player owns the oto context. oto allows one context per process, so a
// program should create a single Player.
type Player struct {
	ctx    *oto.Context
	player *oto.Player
	reader *Reader
	logger *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewPlayer opens the device at src's rate and layout and waits until it is
// ready.
func NewPlayer(src audio.Source, bufferSize time.Duration, logger *slog.Logger) (*Player, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	reader, err := NewReader(src, src.Channels())
	if err != nil {
		return nil, err
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   src.SampleRate(),
		ChannelCount: src.Channels(),
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	// one device buffer, so the first reads do not allocate
	reader.Prealloc(int(bufferSize.Seconds()*float64(src.SampleRate())) * reader.frameBytes())

	logger.Info("audio device ready",
		"rate", src.SampleRate(),
		"channels", src.Channels(),
		"buffer", bufferSize,
	)

	return &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(reader),
		reader: reader,
		logger: logger,
	}, nil
}

// Reader exposes the byte stream the device pulls from.
func (p *Player) Reader() *Reader { return p.reader }

func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.player.Play()
		p.started = true
		p.logger.Debug("device playback started")
	}
}

// Pause stops pulling from the source. Start resumes.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		p.player.Pause()
		p.started = false
		p.logger.Debug("device playback paused")
	}
}

func (p *Player) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// Err reports a device error, or else the first error from the source.
func (p *Player) Err() error {
	if err := p.player.Err(); err != nil {
		return err
	}
	return p.reader.Err()
}

func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = false
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("closing player: %w", err)
	}
	return nil
}
