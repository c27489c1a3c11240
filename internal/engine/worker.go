package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/bamsammich/splitcp/internal/event"
	"github.com/bamsammich/splitcp/internal/stats"
)

// ReaderAt reads at an explicit offset. Unlike io.ReaderAt, a short read at
// end of file returns a nil error, as pread(2) does.
type ReaderAt interface {
	ReadAt(p []byte, off int64) (int, error)
}

// WriterAt writes all of p at an explicit offset.
type WriterAt interface {
	WriteAt(p []byte, off int64) (int, error)
}

// RangeError reports the failure of the worker that owned Range.
type RangeError struct {
	Err    error
	Range  Range
	Copied int64 // bytes of the range written before the failure
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("worker %d %s: %v", e.Range.Index, e.Range, e.Err)
}

func (e *RangeError) Unwrap() error { return e.Err }

// rangeWorker holds what every worker shares: both handles, the chunk size,
// the event channel and the optional bandwidth limiter.
type rangeWorker struct {
	src     ReaderAt
	dst     WriterAt
	events  chan<- event.Event
	stats   stats.Writer
	limiter *rate.Limiter
	bufSize int
}

// run copies rng from src to dst in increasing offset order, sending one
// event after every write. It returns a *RangeError on failure.
func (w *rangeWorker) run(ctx context.Context, rng Range) error {
	copied, err := w.copyRange(ctx, rng)
	if err != nil {
		w.stats.AddRangesFailed(1)
		return &RangeError{Range: rng, Err: err, Copied: copied}
	}
	w.stats.AddRangesCompleted(1)
	return nil
}

func (w *rangeWorker) copyRange(ctx context.Context, rng Range) (int64, error) {
	if rng.Len() <= 0 {
		return 0, nil
	}

	buf := make([]byte, w.bufSize)
	cursor := rng.Start
	for {
		n := min(int64(len(buf)), rng.End-cursor)
		if n <= 0 {
			return cursor - rng.Start, nil
		}
		if err := ctx.Err(); err != nil {
			return cursor - rng.Start, err
		}

		read, err := w.src.ReadAt(buf[:n], cursor)
		if err != nil {
			return cursor - rng.Start, fmt.Errorf("read at %d: %w", cursor, err)
		}
		if read == 0 {
			// The source ended before the range did.
			return cursor - rng.Start, fmt.Errorf("read at %d: %w", cursor, io.ErrUnexpectedEOF)
		}

		if w.limiter != nil {
			if err := w.limiter.WaitN(ctx, read); err != nil {
				return cursor - rng.Start, err
			}
		}

		written, err := w.dst.WriteAt(buf[:read], cursor)
		if written > 0 {
			w.stats.AddBytesCopied(int64(written))
		}
		if err != nil {
			return cursor - rng.Start + int64(written), fmt.Errorf("write at %d: %w", cursor, err)
		}
		w.stats.AddWrites(1)

		ev := event.Event{
			Timestamp: time.Now(),
			Worker:    rng.Index,
			Offset:    cursor,
			Bytes:     written,
		}
		select {
		case w.events <- ev:
		case <-ctx.Done():
			return cursor - rng.Start + int64(read), ctx.Err()
		}

		cursor += int64(read)
	}
}
