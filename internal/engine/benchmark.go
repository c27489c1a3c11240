package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/bamsammich/splitcp/internal/platform"
	"github.com/bamsammich/splitcp/internal/stats"
)

// BenchmarkResult holds throughput measurements.
type BenchmarkResult struct {
	ReadBytesPerSec  float64
	WriteBytesPerSec float64
	SuggestedWorkers int
}

const (
	benchSize  = 64 * 1024 * 1024 // 64 MB
	benchChunk = 1 << 20
)

// RunBenchmark measures positional read throughput on the source file and
// write throughput in the directory that will hold the target, then
// suggests a worker count.
func RunBenchmark(ctx context.Context, src, dst string) (BenchmarkResult, error) {
	var result BenchmarkResult

	readSpeed, err := benchRead(ctx, src)
	if err != nil {
		return result, fmt.Errorf("read benchmark: %w", err)
	}
	result.ReadBytesPerSec = readSpeed

	writeSpeed, err := benchWrite(ctx, filepath.Dir(dst))
	if err != nil {
		return result, fmt.Errorf("write benchmark: %w", err)
	}
	result.WriteBytesPerSec = writeSpeed

	result.SuggestedWorkers = suggestWorkers(readSpeed, writeSpeed)
	return result, nil
}

// benchRead reads up to benchSize bytes from the start of src.
func benchRead(ctx context.Context, src string) (float64, error) {
	f, err := platform.OpenSource(src)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, fmt.Errorf("%s is empty", src)
	}

	buf := make([]byte, benchChunk)
	limit := min(size, benchSize)
	var total int64
	start := time.Now()
	for total < limit {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		n, err := f.ReadAt(buf[:min(int64(len(buf)), limit-total)], total)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			break
		}
		total += int64(n)
	}
	return throughput(total, time.Since(start)), nil
}

// benchWrite writes benchSize bytes of zeros to a temp file in dir, fsyncs,
// and removes it.
func benchWrite(ctx context.Context, dir string) (float64, error) {
	tmp, err := os.CreateTemp(dir, ".splitcp-bench-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	f, err := platform.CreateTarget(tmpPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := make([]byte, benchChunk)
	var total int64
	start := time.Now()
	for total < benchSize {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		n, err := f.WriteAt(buf, total)
		total += int64(n)
		if err != nil {
			return 0, err
		}
	}
	if err := f.Sync(); err != nil {
		return 0, err
	}
	return throughput(total, time.Since(start)), nil
}

func throughput(n int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		elapsed = time.Microsecond
	}
	return float64(n) / elapsed.Seconds()
}

// suggestWorkers returns a worker count based on measured throughput.
func suggestWorkers(readBPS, writeBPS float64) int {
	// The slower side is the bottleneck.
	bottleneck := min(readBPS, writeBPS)
	cpus := runtime.NumCPU()

	switch {
	case bottleneck >= 2e9: // >= 2 GB/s → NVMe
		return min(cpus*2, 32)
	case bottleneck >= 200e6: // >= 200 MB/s → SSD
		return min(cpus, 16)
	default: // HDD
		return min(4, cpus)
	}
}

// FormatBenchmark formats a BenchmarkResult for display.
func FormatBenchmark(r BenchmarkResult) string {
	return fmt.Sprintf("benchmark: read %s/s  write %s/s  suggested workers %d",
		stats.FormatBytes(int64(r.ReadBytesPerSec)),
		stats.FormatBytes(int64(r.WriteBytesPerSec)),
		r.SuggestedWorkers)
}
