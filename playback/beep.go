// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"errors"
	"io"

	"github.com/gopxl/beep/v2"

	"github.com/ik5/audloop/audio"
)

// Streamer adapts a Source to beep.Streamer so a layer can feed a beep
// mixer or speaker. Mono is played on both sides; sources with more than
// two channels contribute their first two.
type Streamer struct {
	src  audio.Source
	buf  []float32
	err  error
	done bool
}

func NewStreamer(src audio.Source) *Streamer {
	return &Streamer{src: src}
}

// Format describes the stream for beep.
func (s *Streamer) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(s.src.SampleRate()),
		NumChannels: 2,
		Precision:   bytesPerSample,
	}
}

func (s *Streamer) Stream(samples [][2]float64) (int, bool) {
	if s.done || s.err != nil {
		return 0, false
	}

	ch := s.src.Channels()
	need := len(samples) * ch
	if cap(s.buf) < need {
		s.buf = make([]float32, need)
	}
	buf := s.buf[:need]

	n, err := s.src.ReadSamples(buf)
	frames := n / ch

	for i := range frames {
		l := buf[i*ch]
		r := l
		if ch > 1 {
			r = buf[i*ch+1]
		}
		samples[i] = [2]float64{float64(l), float64(r)}
	}

	switch {
	case errors.Is(err, io.EOF):
		s.done = true
	case err != nil:
		s.err = err
		return 0, false
	}

	return frames, frames > 0
}

// Err reports the upstream error that ended the stream, if any.
func (s *Streamer) Err() error { return s.err }

var _ beep.Streamer = (*Streamer)(nil)
