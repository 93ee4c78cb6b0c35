// SPDX-License-Identifier: EPL-2.0

// Package audio provides the stream contracts and processing stages the
// looper is built from.
//
// This package contains:
//   - Source and PositionableSource, the pull contracts for PCM
//   - MemorySource, a decoded stream that can be seeked and read at random
//   - Resample for load-time sample rate conversion
//   - ChannelMixer and RemapChannels for channel layout conversion
//   - HighPass and Gain, the stages after the looper
//   - Registry for decoders by format key
//
// # Sources
//
// A Source fills interleaved float32 buffers in [-1, 1]:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// A PositionableSource adds a frame cursor and a known length, plus
// Prepare and Release around playback. A FrameReaderAt can be read at any
// position without moving that cursor, which lets the head of a loop be
// cached from another goroutine.
//
// # Loading
//
// Decoders stream. Looping needs random access, so streams are drained into
// memory first and converted to the device rate once:
//
//	src, _ := wav.Decoder{}.Decode(f)
//	mem, _ := audio.LoadSource(src)
//	mem, _ = audio.ResampleSource(mem, 48000)
//
// # Error Handling
//
// ReadSamples returns io.EOF when no more data is available. Other errors
// indicate problems with the source or processing:
//
//	for {
//	    n, err := source.ReadSamples(buf)
//	    if err == io.EOF {
//	        break // Normal end of stream
//	    }
//	    if err != nil {
//	        return err // Processing error
//	    }
//	    // Process n samples from buf
//	}
package audio
