// SPDX-License-Identifier: EPL-2.0

package loop

// Option configures a Looper at construction.
type Option func(*Looper)

// WithOwnership sets whether Close closes the upstream. The default is
// Borrowed.
func WithOwnership(o Ownership) Option {
	return func(l *Looper) { l.ownership = o }
}

// WithChannels sets the output channel count. Missing upstream channels
// repeat the last available one; a mono output averages the upstream.
func WithChannels(n int) Option {
	return func(l *Looper) {
		if n > 0 {
			l.channels = n
		}
	}
}

// WithAsyncHeadCache rebuilds the head cache on a background goroutine so
// the render path never seeks. It needs an upstream implementing
// audio.FrameReaderAt and is ignored otherwise. Blocks rendered before a
// rebuild completes loop without a crossfade.
//
// The looper then owns a goroutine that only Close stops. Call Close when
// done with the looper even if the upstream is Borrowed; Close still leaves
// a borrowed upstream open.
func WithAsyncHeadCache() Option {
	return func(l *Looper) { l.async = true }
}
