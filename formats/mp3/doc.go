// SPDX-License-Identifier: EPL-2.0

// Package mp3 provides MP3 audio file decoding.
//
// This package uses github.com/hajimehoshi/go-mp3 to decode MP3 files.
// Output is always stereo, as go-mp3 duplicates mono streams, with samples
// as float32 in [-1.0, 1.0].
//
//	f, _ := os.Open("beat.mp3")
//	src, err := mp3.Decoder{}.Decode(f)
//	if err != nil {
//	    // Handle error
//	}
//
// When the input is an io.Seeker the decoder knows the stream length up
// front and reports it through Frames; otherwise Frames is 0 and the length
// is only known once the stream has been drained.
package mp3
