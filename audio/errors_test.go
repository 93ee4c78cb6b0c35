// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors_Messages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{ErrInvalidDstSize, "dst size must be multiple of channels"},
		{ErrInvalidChannels, "channel count must be positive"},
		{ErrInvalidSampleRate, "sample rate must be positive"},
		{ErrNegativePosition, "negative read position"},
	}

	for _, tt := range tests {
		if tt.err == nil {
			t.Fatalf("sentinel for %q is nil", tt.want)
		}
		if tt.err.Error() != tt.want {
			t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
		}
	}
}

func TestErrors_Distinct(t *testing.T) {
	t.Parallel()

	all := []error{ErrInvalidDstSize, ErrInvalidChannels, ErrInvalidSampleRate, ErrNegativePosition}

	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("errors.Is(%v, %v) = true, want false", a, b)
			}
		}
	}
}

func TestErrors_Wrapping(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("reading block: %w", ErrInvalidDstSize)
	if !errors.Is(wrapped, ErrInvalidDstSize) {
		t.Error("errors.Is() failed for wrapped ErrInvalidDstSize")
	}

	joined := errors.Join(ErrInvalidChannels, errors.New("additional context"))
	if !errors.Is(joined, ErrInvalidChannels) {
		t.Error("errors.Is() failed for joined ErrInvalidChannels")
	}
}
