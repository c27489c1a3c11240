//go:build unix

package platform

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ReadAt reads up to len(p) bytes at off with pread(2). At end of file it
// returns a short count (possibly zero) and a nil error.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	for {
		n, err := unix.Pread(f.fd, p, off)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if n < 0 {
			n = 0
		}
		return n, err
	}
}

// WriteAt writes all of p at off with pwrite(2), looping over short writes.
// It returns the number of bytes written, which is len(p) unless err is
// non-nil.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	written := 0
	for written < len(p) {
		n, err := unix.Pwrite(f.fd, p[written:], off+int64(written))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, unix.EIO
		}
		written += n
	}
	return written, nil
}
