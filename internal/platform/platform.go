// Package platform provides file handles whose reads and writes address an
// explicit offset instead of a shared cursor, so one handle can be used by
// many goroutines at once.
package platform

import (
	"fmt"
	"os"
)

// File wraps an *os.File for positional I/O. ReadAt and WriteAt never move
// the file cursor and are safe for concurrent use; callers writing from
// several goroutines must keep their byte ranges disjoint.
type File struct {
	f  *os.File
	fd int
}

// OpenSource opens path read-only.
func OpenSource(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return wrap(f), nil
}

// CreateTarget opens path for writing, creating it if needed and truncating
// it to zero length.
func CreateTarget(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return wrap(f), nil
}

//nolint:gosec // G115: fd values are small non-negative integers
func wrap(f *os.File) *File {
	return &File{f: f, fd: int(f.Fd())}
}

// Name returns the path the file was opened with.
func (f *File) Name() string { return f.f.Name() }

// Size returns the current length of the file in bytes.
func (f *File) Size() (int64, error) {
	info, err := f.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", f.f.Name(), err)
	}
	return info.Size(), nil
}

// Preallocate reserves size bytes for the file. It is advisory: failures
// are ignored since not every filesystem supports it.
func (f *File) Preallocate(size int64) {
	if size <= 0 {
		return
	}
	preallocate(f.fd, size)
}

// Sync flushes written data to stable storage.
func (f *File) Sync() error { return f.f.Sync() }

// Close closes the underlying file.
func (f *File) Close() error { return f.f.Close() }
