//go:build !unix

package platform

import (
	"errors"
	"io"
)

// ReadAt reads up to len(p) bytes at off. At end of file it returns a short
// count (possibly zero) and a nil error, matching pread(2).
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.f.ReadAt(p, off)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

// WriteAt writes all of p at off.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	return f.f.WriteAt(p, off)
}
