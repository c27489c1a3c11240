//go:build unix

package ui

import (
	"errors"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// errReportTimeout is returned when the terminal does not answer in time.
var errReportTimeout = errors.New("terminal did not report cursor position")

// timeoutReader reads from a file descriptor, waiting at most until
// deadline for input. Nothing is left blocked on the descriptor once Read
// returns.
type timeoutReader struct {
	fd       int
	deadline time.Time
}

func newTimeoutReader(f *os.File, timeout time.Duration) io.Reader {
	//nolint:gosec // G115: fd values are small
	return &timeoutReader{fd: int(f.Fd()), deadline: time.Now().Add(timeout)}
}

func (r *timeoutReader) Read(p []byte) (int, error) {
	for {
		wait := time.Until(r.deadline)
		if wait <= 0 {
			return 0, errReportTimeout
		}
		fds := []unix.PollFd{{Fd: int32(r.fd), Events: unix.POLLIN}} //nolint:gosec // G115
		n, err := unix.Poll(fds, int(wait.Milliseconds())+1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, errReportTimeout
		}

		read, err := unix.Read(r.fd, p)
		if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if read == 0 {
			return 0, io.EOF
		}
		return read, nil
	}
}
