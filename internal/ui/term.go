package ui

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// DefaultAccent is the ANSI colour used for progress blocks (dark green).
const DefaultAccent = "2"

// blockGlyph is the character drawn for each progress column.
const blockGlyph = "▖" // ▖

// positionTimeout bounds how long to wait for the terminal to answer a
// cursor position request.
const positionTimeout = 2 * time.Second

// ANSI escape sequences.
const (
	ansiHideCursor = "\033[?25l"
	ansiShowCursor = "\033[?25h"
	ansiSavePos    = "\0337"
	ansiRestorePos = "\0338"
	ansiQueryPos   = "\033[6n"
)

// Terminal is the drawing surface used by the strip presenter. Columns and
// rows are zero-based.
type Terminal interface {
	Size() (cols, rows int, err error)
	Position() (col, row int, err error)
	HideCursor() error
	ShowCursor() error
	SavePosition() error
	RestorePosition() error
	MoveTo(col, row int) error
	DrawBlocks(n int) error
	Newline() error
	Flush() error
}

// IsTTY reports whether the given file descriptor refers to a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd)) //nolint:gosec // G115: fd values are small
}

// TermWidth returns the terminal width in columns, or 80 if it cannot be determined.
func TermWidth(fd uintptr) int {
	w, _, err := term.GetSize(int(fd)) //nolint:gosec // G115: fd values are small
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// ansiTerminal drives a VT100-compatible terminal: output goes to out,
// cursor position reports are read from in.
type ansiTerminal struct {
	in    *os.File
	out   *os.File
	w     *bufio.Writer
	block lipgloss.Style
}

// NewTerminal returns a Terminal writing escape sequences to out and
// reading cursor reports from in. accent is a lipgloss colour (ANSI index
// or hex); empty selects DefaultAccent.
//
//nolint:ireturn // factory returns interface by design
func NewTerminal(in, out *os.File, accent string) Terminal {
	if accent == "" {
		accent = DefaultAccent
	}
	r := lipgloss.NewRenderer(out)
	return &ansiTerminal{
		in:    in,
		out:   out,
		w:     bufio.NewWriter(out),
		block: r.NewStyle().Foreground(lipgloss.Color(accent)),
	}
}

func (t *ansiTerminal) Size() (int, int, error) {
	return term.GetSize(int(t.out.Fd())) //nolint:gosec // G115: fd values are small
}

// Position asks the terminal where the cursor is (DSR 6) with the input
// side in raw mode, so the reply is not echoed.
func (t *ansiTerminal) Position() (int, int, error) {
	inFd := int(t.in.Fd()) //nolint:gosec // G115: fd values are small
	state, err := term.MakeRaw(inFd)
	if err != nil {
		return 0, 0, fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(inFd, state) //nolint:errcheck // best effort on the way out

	if _, err := t.w.WriteString(ansiQueryPos); err != nil {
		return 0, 0, err
	}
	if err := t.w.Flush(); err != nil {
		return 0, 0, err
	}

	return readCursorReport(newTimeoutReader(t.in, positionTimeout))
}

func (t *ansiTerminal) HideCursor() error      { return t.write(ansiHideCursor) }
func (t *ansiTerminal) ShowCursor() error      { return t.write(ansiShowCursor) }
func (t *ansiTerminal) SavePosition() error    { return t.write(ansiSavePos) }
func (t *ansiTerminal) RestorePosition() error { return t.write(ansiRestorePos) }
func (t *ansiTerminal) Newline() error         { return t.write("\n") }

func (t *ansiTerminal) MoveTo(col, row int) error {
	return t.write(fmt.Sprintf("\033[%d;%dH", row+1, col+1))
}

func (t *ansiTerminal) DrawBlocks(n int) error {
	if n <= 0 {
		return nil
	}
	return t.write(t.block.Render(strings.Repeat(blockGlyph, n)))
}

func (t *ansiTerminal) Flush() error { return t.w.Flush() }

func (t *ansiTerminal) write(s string) error {
	_, err := t.w.WriteString(s)
	return err
}

// readCursorReport reads a "ESC [ row ; col R" reply from r and returns
// zero-based coordinates.
func readCursorReport(r io.Reader) (col, row int, err error) {
	var buf bytes.Buffer
	b := make([]byte, 1)
	for buf.Len() < 32 {
		if _, err := r.Read(b); err != nil {
			return 0, 0, fmt.Errorf("read cursor position: %w", err)
		}
		buf.WriteByte(b[0])
		if b[0] == 'R' {
			return parseCursorReport(buf.Bytes())
		}
	}
	return 0, 0, fmt.Errorf("malformed cursor position report %q", buf.String())
}

// parseCursorReport parses a DSR reply, skipping anything typed before it.
func parseCursorReport(p []byte) (col, row int, err error) {
	i := bytes.LastIndex(p, []byte("\033["))
	if i < 0 {
		return 0, 0, fmt.Errorf("malformed cursor position report %q", p)
	}
	if _, err := fmt.Sscanf(string(p[i:]), "\033[%d;%dR", &row, &col); err != nil {
		return 0, 0, fmt.Errorf("malformed cursor position report %q: %w", p, err)
	}
	if row < 1 || col < 1 {
		return 0, 0, fmt.Errorf("cursor position out of range %q", p)
	}
	return col - 1, row - 1, nil
}
