// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrInvalidChannels is returned when a channel count is not positive.
	ErrInvalidChannels = errors.New("channel count must be positive")

	// ErrInvalidSampleRate is returned when a sample rate is not positive.
	ErrInvalidSampleRate = errors.New("sample rate must be positive")

	// ErrNegativePosition is returned by positional reads before frame 0.
	ErrNegativePosition = errors.New("negative read position")
)
