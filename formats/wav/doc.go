// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and encodes WAV files on top of github.com/go-audio/wav.
//
// The Decoder reads integer PCM at 8, 16, 24 and 32 bits, including
// WAVE_FORMAT_EXTENSIBLE headers, and normalizes samples to float32 in
// [-1, 1]. Sources it returns report their length through Frames, so
// audio.LoadSource can size its buffer in one allocation.
//
//	f, _ := os.Open("loop.wav")
//	src, err := wav.Decoder{}.Decode(f)
//	if errors.Is(err, wav.ErrNotWavFile) {
//	    // not RIFF/WAVE
//	}
//
// Inputs that cannot seek are buffered in memory first, because the chunk
// walker needs to jump around the file.
//
// Writer encodes 16-bit PCM and patches the header sizes on Close, so it
// needs an io.WriteSeeker such as *os.File:
//
//	out, _ := os.Create("render.wav")
//	w, _ := wav.NewWriter(out, 48000, 2)
//	w.Write(samples)
//	w.Close()
package wav
