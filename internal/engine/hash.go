package engine

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/bamsammich/splitcp/internal/platform"
)

const hashChunk = 256 * 1024

// HashFile returns the hex BLAKE3 digest of the file at path. It reads
// through the same positional path the copy workers use.
func HashFile(path string) (string, error) {
	f, err := platform.OpenSource(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return "", err
	}

	h := blake3.New()
	buf := make([]byte, hashChunk)
	for off := int64(0); off < size; {
		n, err := f.ReadAt(buf[:min(int64(len(buf)), size-off)], off)
		if err != nil {
			return "", fmt.Errorf("hash %s: %w", path, err)
		}
		if n == 0 {
			return "", fmt.Errorf("hash %s at %d: %w", path, off, io.ErrUnexpectedEOF)
		}
		_, _ = h.Write(buf[:n])
		off += int64(n)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
