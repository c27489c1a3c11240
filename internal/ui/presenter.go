package ui

import (
	"io"

	"github.com/bamsammich/splitcp/internal/event"
	"github.com/bamsammich/splitcp/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	// total is the size of the file being copied.
	Run(total int64, events <-chan event.Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer     io.Writer
	Terminal   Terminal
	Stats      stats.Reader
	IsTTY      bool
	Quiet      bool
	NoProgress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet || cfg.NoProgress {
		return &quietPresenter{}
	}
	if !cfg.IsTTY || cfg.Terminal == nil {
		return &plainPresenter{w: cfg.Writer, stats: cfg.Stats}
	}
	return NewStripPresenter(cfg.Terminal, cfg.Stats)
}
