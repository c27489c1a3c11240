package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWorkers is returned when fewer than one worker is requested.
	ErrNoWorkers = errors.New("worker count must be at least 1")
	// ErrBufferSize is returned when the requested buffer size is not positive.
	ErrBufferSize = errors.New("buffer size must be at least 1")
)

// Range is the half-open byte interval [Start, End) copied by one worker.
type Range struct {
	Index int
	Start int64
	End   int64
}

// Len returns the number of bytes in the range.
func (r Range) Len() int64 { return r.End - r.Start }

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// PlanRanges partitions [0, total) into one range per worker, ordered by
// worker index. Every worker gets total/workers bytes except the last, which
// also takes the remainder, so the split is uneven when workers does not
// divide total.
func PlanRanges(total int64, workers int) ([]Range, error) {
	if workers < 1 {
		return nil, ErrNoWorkers
	}
	if total < 0 {
		return nil, fmt.Errorf("negative size %d", total)
	}

	per := total / int64(workers)
	ranges := make([]Range, workers)
	for i := range workers {
		ranges[i] = Range{
			Index: i,
			Start: int64(i) * per,
			End:   int64(i+1) * per,
		}
	}
	ranges[workers-1].End = total
	return ranges, nil
}

// EffectiveBufferSize clamps the requested per-iteration chunk so it never
// exceeds a worker's share of the file. When there are more workers than
// bytes the share rounds down to zero; the chunk is then clamped to one byte
// so the last worker, which owns every byte, still makes progress.
func EffectiveBufferSize(requested int, total int64, workers int) int {
	if workers < 1 || requested < 1 {
		return 0
	}
	per := max(total/int64(workers), 1)
	return int(min(int64(requested), per))
}
