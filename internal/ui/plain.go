package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/bamsammich/splitcp/internal/event"
	"github.com/bamsammich/splitcp/internal/stats"
)

// plainThrottle limits how often the byte counter is redrawn.
const plainThrottle = 100 * time.Millisecond

// plainPresenter shows a single byte counter when the output is not a
// terminal the strip can be drawn on.
type plainPresenter struct {
	w     io.Writer
	stats stats.Reader
}

func (p *plainPresenter) Run(total int64, events <-chan event.Event) error {
	if total <= 0 {
		for range events {
		}
		return nil
	}

	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("copying"),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(plainThrottle),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.w) }),
	)

	var copied int64
	for ev := range events {
		copied += int64(ev.Bytes)
		// Add errors only when the bar is already finished.
		_ = bar.Add(ev.Bytes)
	}

	if copied >= total {
		return bar.Finish()
	}
	// Leave the partial bar on screen and move past it.
	_, err := fmt.Fprintln(p.w)
	return err
}

func (p *plainPresenter) Summary() string {
	if p.stats == nil {
		return ""
	}
	return CompletionSummary(p.stats.Snapshot())
}
