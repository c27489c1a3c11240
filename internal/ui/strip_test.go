package ui

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/splitcp/internal/event"
	"github.com/bamsammich/splitcp/internal/stats"
)

// fakeTerminal records every call as a short string.
type fakeTerminal struct {
	cols, rows int
	col, row   int
	ops        []string
	sizeErr    error
	posErr     error
	drawErr    error
}

func (f *fakeTerminal) Size() (int, int, error) { return f.cols, f.rows, f.sizeErr }

func (f *fakeTerminal) Position() (int, int, error) {
	if f.posErr != nil {
		return 0, 0, f.posErr
	}
	return f.col, f.row, nil
}

func (f *fakeTerminal) HideCursor() error      { f.ops = append(f.ops, "hide"); return nil }
func (f *fakeTerminal) ShowCursor() error      { f.ops = append(f.ops, "show"); return nil }
func (f *fakeTerminal) SavePosition() error    { f.ops = append(f.ops, "save"); return nil }
func (f *fakeTerminal) RestorePosition() error { f.ops = append(f.ops, "restore"); return nil }
func (f *fakeTerminal) Newline() error         { f.ops = append(f.ops, "newline"); return nil }
func (f *fakeTerminal) Flush() error           { return nil }

func (f *fakeTerminal) MoveTo(col, row int) error {
	f.ops = append(f.ops, fmt.Sprintf("move %d,%d", col, row))
	return nil
}

func (f *fakeTerminal) DrawBlocks(n int) error {
	if f.drawErr != nil {
		return f.drawErr
	}
	f.ops = append(f.ops, fmt.Sprintf("draw %d", n))
	return nil
}

// draws returns only the move/draw operations.
func (f *fakeTerminal) draws() []string {
	var out []string
	for _, op := range f.ops {
		if op[0] == 'm' || op[0] == 'd' {
			out = append(out, op)
		}
	}
	return out
}

func feed(evs ...event.Event) <-chan event.Event {
	ch := make(chan event.Event, len(evs))
	for _, ev := range evs {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestStripPresenter_MapsEventsToColumns(t *testing.T) {
	t.Parallel()

	term := &fakeTerminal{cols: 100, rows: 24, row: 5}
	p := NewStripPresenter(term, nil)

	err := p.Run(100, feed(
		event.Event{Offset: 0, Bytes: 10, Worker: 0},
		event.Event{Offset: 50, Bytes: 10, Worker: 1},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"move 0,5", "draw 10",
		"move 50,5", "draw 10",
	}, term.draws())
}

func TestStripPresenter_ScalesToWidth(t *testing.T) {
	t.Parallel()

	term := &fakeTerminal{cols: 80, rows: 24}
	p := NewStripPresenter(term, nil)

	// 1000 bytes over 80 columns: offset 500 -> column 40, 250 bytes -> 20 blocks.
	require.NoError(t, p.Run(1000, feed(event.Event{Offset: 500, Bytes: 250})))
	assert.Equal(t, []string{"move 40,0", "draw 20"}, term.draws())
}

func TestStripPresenter_SmallWriteDrawsOneBlock(t *testing.T) {
	t.Parallel()

	term := &fakeTerminal{cols: 80, rows: 24}
	p := NewStripPresenter(term, nil)

	require.NoError(t, p.Run(1<<30, feed(event.Event{Offset: 0, Bytes: 1})))
	assert.Equal(t, []string{"move 0,0", "draw 1"}, term.draws())
}

func TestStripPresenter_StartsAtCursorColumn(t *testing.T) {
	t.Parallel()

	term := &fakeTerminal{cols: 100, rows: 24, col: 10, row: 3}
	p := NewStripPresenter(term, nil)

	require.NoError(t, p.Run(100, feed(event.Event{Offset: 20, Bytes: 5})))
	assert.Equal(t, []string{"move 30,3", "draw 5"}, term.draws())
}

func TestStripPresenter_ClipsAtRightEdge(t *testing.T) {
	t.Parallel()

	term := &fakeTerminal{cols: 100, rows: 24, col: 10}
	p := NewStripPresenter(term, nil)

	// Unclipped this would cover columns 100..109.
	require.NoError(t, p.Run(100, feed(event.Event{Offset: 90, Bytes: 10})))
	assert.Equal(t, []string{"move 99,0", "draw 1"}, term.draws())
}

func TestStripPresenter_CoversFullWidth(t *testing.T) {
	t.Parallel()

	term := &fakeTerminal{cols: 40, rows: 24}
	p := NewStripPresenter(term, nil)

	var evs []event.Event
	for off := int64(0); off < 1000; off += 10 {
		evs = append(evs, event.Event{Offset: off, Bytes: 10})
	}
	require.NoError(t, p.Run(1000, feed(evs...)))

	strip, ok := p.(*stripPresenter)
	require.True(t, ok)
	assert.Equal(t, 40, strip.Covered())
}

func TestStripPresenter_RestoresCursor(t *testing.T) {
	t.Parallel()

	term := &fakeTerminal{cols: 80, rows: 24}
	p := NewStripPresenter(term, nil)

	require.NoError(t, p.Run(100, feed(event.Event{Offset: 0, Bytes: 100})))

	require.GreaterOrEqual(t, len(term.ops), 5)
	assert.Equal(t, []string{"hide", "save"}, term.ops[:2])
	assert.Equal(t, []string{"restore", "newline", "show"}, term.ops[len(term.ops)-3:])
}

func TestStripPresenter_NoEvents(t *testing.T) {
	t.Parallel()

	term := &fakeTerminal{cols: 80, rows: 24}
	p := NewStripPresenter(term, nil)

	require.NoError(t, p.Run(0, feed()))
	assert.Empty(t, term.draws())
	assert.Equal(t, []string{"hide", "save", "restore", "newline", "show"}, term.ops)
}

func TestStripPresenter_SizeError(t *testing.T) {
	t.Parallel()

	term := &fakeTerminal{sizeErr: errors.New("not a tty")}
	p := NewStripPresenter(term, nil)

	err := p.Run(100, feed())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal size")
	assert.Empty(t, term.ops, "nothing is drawn when the size is unknown")
}

func TestStripPresenter_PositionErrorShowsCursor(t *testing.T) {
	t.Parallel()

	term := &fakeTerminal{cols: 80, rows: 24, posErr: errors.New("no reply")}
	p := NewStripPresenter(term, nil)

	err := p.Run(100, feed())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cursor position")
	assert.Contains(t, term.ops, "show")
}

func TestStripPresenter_DrawErrorStops(t *testing.T) {
	t.Parallel()

	term := &fakeTerminal{cols: 80, rows: 24, drawErr: errors.New("broken pipe")}
	p := NewStripPresenter(term, nil)

	err := p.Run(100, feed(
		event.Event{Offset: 0, Bytes: 50},
		event.Event{Offset: 50, Bytes: 50},
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.Equal(t, "show", term.ops[len(term.ops)-1])
}

func TestStripPresenter_Summary(t *testing.T) {
	t.Parallel()

	c := stats.NewCollector()
	c.SetBytesTotal(100)
	c.AddBytesCopied(100)
	c.AddWrites(2)
	c.AddRangesCompleted(2)

	term := &fakeTerminal{cols: 80, rows: 24}
	p := NewStripPresenter(term, c)
	require.NoError(t, p.Run(100, feed(
		event.Event{Offset: 0, Bytes: 50},
		event.Event{Offset: 50, Bytes: 50, Worker: 1},
	)))

	s := p.Summary()
	assert.Contains(t, s, "done ✓")
	assert.Contains(t, s, "ranges 2")

	assert.Empty(t, NewStripPresenter(term, nil).Summary())
}

func TestNewPresenter_StripCarriesSummary(t *testing.T) {
	t.Parallel()

	c := stats.NewCollector()
	c.AddRangesCompleted(1)
	p := NewPresenter(Config{IsTTY: true, Terminal: &fakeTerminal{cols: 80}, Stats: c})
	assert.Contains(t, p.Summary(), "done")
}
