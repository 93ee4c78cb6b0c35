// SPDX-License-Identifier: EPL-2.0

// Package vorbis provides Ogg Vorbis audio file decoding.
//
// This package uses github.com/jfreymuth/oggvorbis, which decodes straight
// to float32, so samples pass through without conversion.
//
//	f, _ := os.Open("rain.ogg")
//	src, err := vorbis.Decoder{}.Decode(f)
//	if err != nil {
//	    // Handle error
//	}
//
// Frames reports the stream length when the input is seekable and 0
// otherwise.
package vorbis
