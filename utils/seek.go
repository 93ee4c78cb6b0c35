// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"bytes"
	"fmt"
	"io"
)

// ReadSeeker returns r itself when it can seek and otherwise buffers the
// whole stream in memory. Container decoders that jump between chunks need
// this.
func ReadSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("buffering stream: %w", err)
	}

	return bytes.NewReader(data), nil
}
