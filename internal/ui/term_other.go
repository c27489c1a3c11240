//go:build !unix

package ui

import (
	"io"
	"os"
	"time"
)

// newTimeoutReader bounds reads with a file deadline where the platform
// supports one; otherwise reads block.
func newTimeoutReader(f *os.File, timeout time.Duration) io.Reader {
	_ = f.SetReadDeadline(time.Now().Add(timeout))
	return f
}
