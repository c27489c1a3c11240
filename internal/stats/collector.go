package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Writer is the write side of a Collector, used by copy workers.
type Writer interface {
	SetBytesTotal(n int64)
	AddBytesCopied(n int64)
	AddWrites(n int64)
	AddRangesCompleted(n int64)
	AddRangesFailed(n int64)
}

// Reader is the read side of a Collector, used by presenters.
type Reader interface {
	Snapshot() Snapshot
}

// Collector tracks copy statistics using lock-free atomic counters.
type Collector struct {
	bytesTotal      atomic.Int64
	bytesCopied     atomic.Int64
	writes          atomic.Int64
	rangesCompleted atomic.Int64
	rangesFailed    atomic.Int64
	startTime       time.Time
}

var (
	_ Writer = (*Collector)(nil)
	_ Reader = (*Collector)(nil)
)

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	BytesTotal      int64
	BytesCopied     int64
	Writes          int64
	RangesCompleted int64
	RangesFailed    int64
	Elapsed         time.Duration
}

func (c *Collector) SetBytesTotal(n int64)      { c.bytesTotal.Store(n) }
func (c *Collector) AddBytesCopied(n int64)     { c.bytesCopied.Add(n) }
func (c *Collector) AddWrites(n int64)          { c.writes.Add(n) }
func (c *Collector) AddRangesCompleted(n int64) { c.rangesCompleted.Add(n) }
func (c *Collector) AddRangesFailed(n int64)    { c.rangesFailed.Add(n) }

// Snapshot returns a point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		BytesTotal:      c.bytesTotal.Load(),
		BytesCopied:     c.bytesCopied.Load(),
		Writes:          c.writes.Load(),
		RangesCompleted: c.rangesCompleted.Load(),
		RangesFailed:    c.rangesFailed.Load(),
		Elapsed:         c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime)
}

// Rate returns the average bytes/sec over the elapsed time.
func (s Snapshot) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.BytesCopied) / s.Elapsed.Seconds()
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"bytes=%d/%d writes=%d ranges=%d failed=%d",
		s.BytesCopied, s.BytesTotal, s.Writes, s.RangesCompleted, s.RangesFailed,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
