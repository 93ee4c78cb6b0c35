// SPDX-License-Identifier: EPL-2.0

// Package audloop loops a region of decoded audio forever, blending the end
// of every pass into the start of the next with a shaped crossfade.
//
// The engine lives in the loop package and works on any positionable PCM
// source. This package ties it to the decoders and offers offline
// rendering helpers.
//
// # Supported Formats
//
// NewRegistry knows these extensions:
//   - wav (integer PCM, 8 to 32 bits) via formats/wav
//   - mp3 via formats/mp3
//   - ogg, oga via formats/vorbis
//   - aiff, aif via formats/aiff
//
// # Quick Start
//
// Load a file as a layer, pick a loop and a crossfade, and render:
//
//	cfg := layer.DefaultConfig()
//	cfg.LoopStart, cfg.LoopEnd = 44100, 176400
//	cfg.CrossfadeMs = 250
//
//	l, err := layer.Load("pad.wav", audloop.NewRegistry(), cfg, slog.Default())
//	if err != nil {
//	    return err
//	}
//	defer l.Close()
//
//	l.Start()
//	samples, err := audloop.Render(l, 10*int64(l.SampleRate()), 4096)
//
// # Lower Level
//
// The pieces can be assembled by hand:
//
//	src, _ := wav.Decoder{}.Decode(f)
//	mem, _ := audio.LoadSource(src)
//
//	lp := loop.New(mem, loop.WithOwnership(loop.Owned))
//	lp.SetLoopRange(1000, 50000)
//	lp.SetCrossfadeLength(2048)
//	lp.Prepare(512, mem.SampleRate())
//
//	buf := make([]float32, 512*lp.Channels())
//	for {
//	    lp.ReadSamples(buf) // never ends while looping
//	}
//
// Loop, crossfade and curve parameters can be changed from any goroutine
// while another one renders. See the loop package for the exact rules.
package audloop
