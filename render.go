// SPDX-License-Identifier: EPL-2.0

package audloop

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audloop/audio"
	"github.com/ik5/audloop/formats/aiff"
	"github.com/ik5/audloop/formats/mp3"
	"github.com/ik5/audloop/formats/vorbis"
	"github.com/ik5/audloop/formats/wav"
	"github.com/ik5/audloop/utils"
)

// NewRegistry returns a registry with every bundled decoder, keyed by file
// extension.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("wav", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("aif", aiff.Decoder{})

	return reg
}

// Render pulls up to frames frames from src in blocks of bufSize samples.
// It stops early at the end of a finite source. A looping source never
// ends, so frames bounds the result. bufSize <= 0 uses src.BufSize().
//
// src is not closed.
func Render(src audio.Source, frames int64, bufSize int) ([]float32, error) {
	ch := src.Channels()
	if ch <= 0 {
		return nil, audio.ErrInvalidChannels
	}
	if frames <= 0 {
		return []float32{}, nil
	}

	if bufSize <= 0 {
		bufSize = src.BufSize()
	}
	// whole frames only
	bufSize = max(bufSize-bufSize%ch, ch)

	total := frames * int64(ch)
	out := make([]float32, 0, total)
	buf := make([]float32, bufSize)

	for int64(len(out)) < total {
		want := min(int64(bufSize), total-int64(len(out)))

		n, err := src.ReadSamples(buf[:want])
		out = append(out, buf[:n]...)

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("rendering: %w", err)
		}
		if n == 0 {
			break
		}
	}

	return out, nil
}

// RenderInt16 is Render with the result converted to 16-bit PCM.
func RenderInt16(src audio.Source, frames int64, bufSize int) ([]int16, error) {
	samples, err := Render(src, frames, bufSize)

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = utils.Float32ToInt16(s)
	}

	return pcm, err
}
