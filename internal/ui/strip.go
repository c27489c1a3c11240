package ui

import (
	"errors"
	"fmt"

	"github.com/bamsammich/splitcp/internal/event"
	"github.com/bamsammich/splitcp/internal/stats"
)

// stripPresenter draws each write as a run of blocks on one terminal row.
// A write at offset o of n bytes lands at column width*o/total and is
// width*n/total blocks wide (at least one). Events from different workers
// arrive interleaved, so blocks may be drawn over earlier ones.
type stripPresenter struct {
	term    Terminal
	stats   stats.Reader
	width   int
	baseCol int
	row     int
	covered []bool
}

// NewStripPresenter returns the presenter that draws progress on the
// terminal row the cursor is on when Run starts. st feeds the completion
// summary and may be nil.
//
//nolint:ireturn // factory returns interface by design
func NewStripPresenter(t Terminal, st stats.Reader) Presenter {
	return &stripPresenter{term: t, stats: st}
}

// Run draws every event until the channel closes. The cursor is hidden
// while drawing; on return it is restored to where it was, moved to a
// fresh line and shown again, even if drawing failed part way.
func (p *stripPresenter) Run(total int64, events <-chan event.Event) (err error) {
	width, _, err := p.term.Size()
	if err != nil {
		return fmt.Errorf("terminal size: %w", err)
	}
	p.width = width

	if err := p.term.HideCursor(); err != nil {
		return fmt.Errorf("hide cursor: %w", err)
	}
	defer func() {
		err = errors.Join(err, p.finish())
	}()

	if err := p.term.SavePosition(); err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	p.baseCol, p.row, err = p.term.Position()
	if err != nil {
		return fmt.Errorf("cursor position: %w", err)
	}
	p.covered = make([]bool, max(p.width, p.baseCol+1))

	for ev := range events {
		if err := p.draw(total, ev); err != nil {
			return err
		}
	}
	return nil
}

func (p *stripPresenter) finish() error {
	return errors.Join(
		p.term.RestorePosition(),
		p.term.Newline(),
		p.term.ShowCursor(),
		p.term.Flush(),
	)
}

func (p *stripPresenter) draw(total int64, ev event.Event) error {
	col, count := p.span(total, ev)
	if err := p.term.MoveTo(col, p.row); err != nil {
		return fmt.Errorf("move cursor: %w", err)
	}
	if err := p.term.DrawBlocks(count); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	for c := col; c < col+count && c < len(p.covered); c++ {
		p.covered[c] = true
	}
	return p.term.Flush()
}

// span maps an event to its starting column and block count. Blocks are
// clipped at the right edge so they never wrap onto the next row.
func (p *stripPresenter) span(total int64, ev event.Event) (col, count int) {
	if total <= 0 {
		return p.baseCol, 1
	}
	w := float64(p.width)
	col = p.baseCol + int(w*(float64(ev.Offset)/float64(total)))
	count = max(1, int(w*(float64(ev.Bytes)/float64(total))))

	if last := len(p.covered) - 1; col > last {
		col = last
	}
	if limit := len(p.covered) - col; count > limit {
		count = limit
	}
	return col, count
}

// Covered returns how many distinct columns have been drawn.
func (p *stripPresenter) Covered() int {
	n := 0
	for _, c := range p.covered {
		if c {
			n++
		}
	}
	return n
}

func (p *stripPresenter) Summary() string {
	if p.stats == nil {
		return ""
	}
	return CompletionSummary(p.stats.Snapshot())
}
