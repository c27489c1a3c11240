package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bamsammich/splitcp/internal/event"
	"github.com/bamsammich/splitcp/internal/platform"
	"github.com/bamsammich/splitcp/internal/stats"
)

// eventsPerWorker sizes the event channel buffer so a briefly slow
// presenter does not stall the workers.
const eventsPerWorker = 64

// Presenter consumes progress events until the channel closes. total is
// the size of the file being copied.
type Presenter interface {
	Run(total int64, events <-chan event.Event) error
}

// Config describes a copy operation.
type Config struct {
	Presenter  Presenter        // nil drains events silently
	Stats      *stats.Collector // nil allocates a fresh collector
	Src        string
	Dst        string
	Workers    int
	BufferSize int
	BWLimit    int64 // bytes/sec across all workers; 0 is unlimited
	Verify     bool
}

// Result is the outcome of a copy operation.
type Result struct {
	Err        error
	Ranges     []Range
	Stats      stats.Snapshot
	Elapsed    time.Duration
	BufferSize int
}

// Failed returns the ranges whose workers did not finish.
func (r Result) Failed() []*RangeError {
	var failed []*RangeError
	for _, err := range unwrapAll(r.Err) {
		var re *RangeError
		if errors.As(err, &re) {
			failed = append(failed, re)
		}
	}
	return failed
}

// Run copies cfg.Src to cfg.Dst with cfg.Workers concurrent workers,
// feeding their progress to cfg.Presenter on the calling goroutine. It
// blocks until every worker has returned.
func Run(ctx context.Context, cfg Config) Result {
	start := time.Now()

	// Reject bad configuration before touching the filesystem.
	if cfg.Workers < 1 {
		return Result{Err: ErrNoWorkers}
	}
	if cfg.BufferSize < 1 {
		return Result{Err: ErrBufferSize}
	}

	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}

	src, err := platform.OpenSource(cfg.Src)
	if err != nil {
		return Result{Err: fmt.Errorf("source: %w", err)}
	}
	defer src.Close()

	total, err := src.Size()
	if err != nil {
		return Result{Err: fmt.Errorf("source: %w", err)}
	}

	ranges, err := PlanRanges(total, cfg.Workers)
	if err != nil {
		return Result{Err: err}
	}
	bufSize := EffectiveBufferSize(cfg.BufferSize, total, cfg.Workers)

	dst, err := platform.CreateTarget(cfg.Dst)
	if err != nil {
		return Result{Err: fmt.Errorf("target: %w", err)}
	}
	dst.Preallocate(total)
	collector.SetBytesTotal(total)

	slog.Info("copying",
		"src", cfg.Src,
		"dst", cfg.Dst,
		"bytes", total,
		"workers", cfg.Workers,
		"bytes_per_worker", total/int64(cfg.Workers),
		"buffer", bufSize,
	)

	copyErr, presentErr := copyRanges(ctx, cfg, src, dst, total, ranges, bufSize, collector)

	var closeErr error
	if err := dst.Close(); err != nil {
		closeErr = fmt.Errorf("target: close: %w", err)
	}

	if presentErr != nil {
		presentErr = fmt.Errorf("progress: %w", presentErr)
	}
	runErr := errors.Join(presentErr, copyErr, closeErr)

	if runErr == nil && cfg.Verify {
		runErr = Verify(cfg.Src, cfg.Dst)
	}

	return Result{
		Err:        runErr,
		Ranges:     ranges,
		Stats:      collector.Snapshot(),
		Elapsed:    time.Since(start),
		BufferSize: bufSize,
	}
}

// copyRanges starts one worker per range, runs the presenter until every
// worker has finished, then joins the workers. A presenter failure cancels
// the remaining workers.
func copyRanges(
	ctx context.Context,
	cfg Config,
	src ReaderAt,
	dst WriterAt,
	total int64,
	ranges []Range,
	bufSize int,
	collector stats.Writer,
) (copyErr, presentErr error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan event.Event, len(ranges)*eventsPerWorker)
	w := &rangeWorker{
		src:     src,
		dst:     dst,
		events:  events,
		stats:   collector,
		bufSize: bufSize,
	}
	if cfg.BWLimit > 0 {
		w.limiter = NewBWLimiter(cfg.BWLimit, bufSize)
	}

	errs := make([]error, len(ranges))
	var wg sync.WaitGroup
	for i, rng := range ranges {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = w.run(ctx, rng)
		}()
	}

	// The channel closes only once every worker has returned.
	go func() {
		wg.Wait()
		close(events)
	}()

	if cfg.Presenter != nil {
		presentErr = cfg.Presenter.Run(total, events)
		if presentErr != nil {
			cancel()
		}
	}
	// Drain whatever the presenter left so no worker blocks on send.
	for range events {
	}
	wg.Wait()

	for _, err := range errs {
		var re *RangeError
		if errors.As(err, &re) {
			slog.Warn("range failed",
				"worker", re.Range.Index,
				"range", re.Range.String(),
				"copied", re.Copied,
				"error", re.Err,
			)
		}
	}
	return errors.Join(errs...), presentErr
}

// unwrapAll flattens errors.Join trees.
func unwrapAll(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, unwrapAll(e)...)
		}
		return out
	}
	return []error{err}
}
