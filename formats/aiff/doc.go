// SPDX-License-Identifier: EPL-2.0

// Package aiff provides AIFF (Audio Interchange File Format) decoding.
//
// This package uses github.com/go-audio/aiff to decode AIFF files.
// Signed PCM at 8, 16, 24 and 32 bits is supported, with any channel count
// and sample rate. Samples come out as float32 in [-1.0, 1.0].
//
//	f, _ := os.Open("pad.aif")
//	src, err := aiff.Decoder{}.Decode(f)
//	if err != nil {
//	    // Handle error
//	}
//	mem, _ := audio.LoadSource(src)
//
// Sources report their COMM chunk frame count through Frames. AIFF-C
// compressed variants are rejected by the underlying decoder.
package aiff
