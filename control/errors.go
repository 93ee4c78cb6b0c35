// SPDX-License-Identifier: EPL-2.0

package control

import "errors"

var (
	// ErrEmptyParams is returned for a parameter message that sets nothing.
	ErrEmptyParams = errors.New("control: message sets no parameters")

	// ErrNegativeRange is returned when a loop bound is negative.
	ErrNegativeRange = errors.New("control: loop bounds must not be negative")
)
