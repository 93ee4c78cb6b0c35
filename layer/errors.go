// SPDX-License-Identifier: EPL-2.0

package layer

import "errors"

var (
	// ErrUnsupportedFormat is returned when no decoder is registered for a
	// file extension.
	ErrUnsupportedFormat = errors.New("no decoder for file format")

	// ErrEmptySource is returned when a decoded file holds no frames.
	ErrEmptySource = errors.New("source has no audio")
)
