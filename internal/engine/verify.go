package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrChecksumMismatch is returned by Verify when source and target differ.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// VerifyError records a single checksum mismatch.
type VerifyError struct {
	SrcHash string
	DstHash string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%v: source %s, target %s", ErrChecksumMismatch, e.SrcHash, e.DstHash)
}

func (e *VerifyError) Is(target error) bool { return target == ErrChecksumMismatch }

// Verify compares the BLAKE3 checksums of src and dst, hashing both files
// concurrently. A mismatch is reported as a *VerifyError.
func Verify(src, dst string) error {
	var (
		wg               sync.WaitGroup
		srcHash, dstHash string
		srcErr, dstErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		srcHash, srcErr = HashFile(src)
	}()
	go func() {
		defer wg.Done()
		dstHash, dstErr = HashFile(dst)
	}()
	wg.Wait()

	if err := errors.Join(srcErr, dstErr); err != nil {
		return err
	}
	if srcHash != dstHash {
		return &VerifyError{SrcHash: srcHash, DstHash: dstHash}
	}
	slog.Debug("checksums match", "blake3", srcHash)
	return nil
}
