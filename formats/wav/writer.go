// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/audloop/audio"
	"github.com/ik5/audloop/utils"
)

const (
	writeBitDepth = 16
	writeChunk    = 8192
)

// Writer streams interleaved float32 frames into a 16-bit PCM WAV. The
// header sizes are patched on Close, so the destination must seek.
type Writer struct {
	enc      *wav.Encoder
	channels int
	buf      *goaudio.IntBuffer
	frames   int64
}

func NewWriter(w io.WriteSeeker, sampleRate, channels int) (*Writer, error) {
	if channels <= 0 {
		return nil, ErrInvalidChannelCount
	}
	if sampleRate <= 0 {
		return nil, audio.ErrInvalidSampleRate
	}

	return &Writer{
		enc:      wav.NewEncoder(w, sampleRate, writeBitDepth, channels, formatPCM),
		channels: channels,
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: channels,
				SampleRate:  sampleRate,
			},
			Data:           make([]int, 0, writeChunk),
			SourceBitDepth: writeBitDepth,
		},
	}, nil
}

// Write encodes samples, which must hold whole frames.
func (w *Writer) Write(samples []float32) error {
	if len(samples)%w.channels != 0 {
		return audio.ErrInvalidDstSize
	}

	for len(samples) > 0 {
		n := min(len(samples), writeChunk-writeChunk%w.channels)

		w.buf.Data = w.buf.Data[:n]
		for i, s := range samples[:n] {
			w.buf.Data[i] = utils.Float32ToInt(s, writeBitDepth)
		}

		if err := w.enc.Write(w.buf); err != nil {
			return fmt.Errorf("encoding wav: %w", err)
		}

		w.frames += int64(n / w.channels)
		samples = samples[n:]
	}

	return nil
}

// Frames reports how many frames have been written.
func (w *Writer) Frames() int64 { return w.frames }

// Close finalizes the header. It does not close the underlying writer.
func (w *Writer) Close() error {
	if err := w.enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}
	return nil
}

// Write encodes a complete buffer of interleaved samples as a 16-bit WAV.
func Write(w io.WriteSeeker, sampleRate, channels int, samples []float32) error {
	ww, err := NewWriter(w, sampleRate, channels)
	if err != nil {
		return err
	}

	return errors.Join(ww.Write(samples), ww.Close())
}
