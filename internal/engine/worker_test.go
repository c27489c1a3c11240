package engine

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/splitcp/internal/event"
	"github.com/bamsammich/splitcp/internal/stats"
)

// memFile is an in-memory ReaderAt/WriterAt with pread semantics and
// optional fault injection.
type memFile struct {
	mu      sync.Mutex
	data    []byte
	maxRead int   // caps every read when > 0
	failAt  int64 // offset at which I/O fails when >= 0
	failErr error
}

func newMemFile(data []byte) *memFile {
	return &memFile{data: data, failAt: -1}
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAt >= 0 && off >= m.failAt {
		return 0, m.failErr
	}
	if off >= int64(len(m.data)) {
		return 0, nil
	}
	if m.maxRead > 0 && len(p) > m.maxRead {
		p = p[:m.maxRead]
	}
	return copy(p, m.data[off:]), nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAt >= 0 && off >= m.failAt {
		return 0, m.failErr
	}
	if end := off + int64(len(p)); end > int64(len(m.data)) {
		m.data = append(m.data, make([]byte, end-int64(len(m.data)))...)
	}
	return copy(m.data[off:], p), nil
}

func (m *memFile) bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

func newTestWorker(src ReaderAt, dst WriterAt, bufSize int) (*rangeWorker, chan event.Event, *stats.Collector) {
	events := make(chan event.Event, 1024)
	collector := stats.NewCollector()
	return &rangeWorker{
		src:     src,
		dst:     dst,
		events:  events,
		stats:   collector,
		bufSize: bufSize,
	}, events, collector
}

func drain(ch chan event.Event) []event.Event {
	close(ch)
	var out []event.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestWorker_CopiesOnlyItsRange(t *testing.T) {
	src := newMemFile([]byte("0123456789"))
	dst := newMemFile(make([]byte, 10))
	w, events, collector := newTestWorker(src, dst, 2)

	require.NoError(t, w.run(context.Background(), Range{Index: 1, Start: 3, End: 8}))

	assert.Equal(t, []byte{0, 0, 0, '3', '4', '5', '6', '7', 0, 0}, dst.bytes())

	evs := drain(events)
	require.Len(t, evs, 3)
	assert.Equal(t, int64(3), evs[0].Offset)
	assert.Equal(t, 2, evs[0].Bytes)
	assert.Equal(t, int64(5), evs[1].Offset)
	assert.Equal(t, int64(7), evs[2].Offset)
	assert.Equal(t, 1, evs[2].Bytes, "last chunk shrinks to the range end")
	for _, ev := range evs {
		assert.Equal(t, 1, ev.Worker)
		assert.False(t, ev.Timestamp.IsZero())
	}

	snap := collector.Snapshot()
	assert.Equal(t, int64(5), snap.BytesCopied)
	assert.Equal(t, int64(3), snap.Writes)
	assert.Equal(t, int64(1), snap.RangesCompleted)
}

func TestWorker_EmptyRangeEmitsNothing(t *testing.T) {
	w, events, collector := newTestWorker(newMemFile(nil), newMemFile(nil), 1)

	require.NoError(t, w.run(context.Background(), Range{Index: 0}))
	assert.Empty(t, drain(events))
	assert.Equal(t, int64(1), collector.Snapshot().RangesCompleted)
}

func TestWorker_ShortReads(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz")
	src := newMemFile(data)
	src.maxRead = 3
	dst := newMemFile(nil)
	w, events, _ := newTestWorker(src, dst, 10)

	require.NoError(t, w.run(context.Background(), Range{Start: 0, End: int64(len(data))}))
	assert.Equal(t, data, dst.bytes())

	evs := drain(events)
	var next int64
	for _, ev := range evs {
		assert.Equal(t, next, ev.Offset, "offsets strictly follow the bytes written")
		assert.LessOrEqual(t, ev.Bytes, 3)
		next = ev.End()
	}
	assert.Equal(t, int64(len(data)), next)
}

func TestWorker_SourceShrankReportsUnexpectedEOF(t *testing.T) {
	src := newMemFile([]byte("short"))
	dst := newMemFile(nil)
	w, events, collector := newTestWorker(src, dst, 4)

	err := w.run(context.Background(), Range{Index: 2, Start: 0, End: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var re *RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 2, re.Range.Index)
	assert.Equal(t, int64(5), re.Copied)
	assert.Equal(t, []byte("short"), dst.bytes())
	assert.Len(t, drain(events), 2)
	assert.Equal(t, int64(1), collector.Snapshot().RangesFailed)
}

func TestWorker_ReadErrorStopsWorker(t *testing.T) {
	boom := errors.New("device error")
	src := newMemFile(make([]byte, 100))
	src.failAt = 40
	src.failErr = boom
	dst := newMemFile(nil)
	w, events, _ := newTestWorker(src, dst, 10)

	err := w.run(context.Background(), Range{Index: 0, Start: 0, End: 100})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "worker 0 [0, 100): read at 40")

	// Writes proceed in increasing offset order, so the prefix is intact.
	assert.Len(t, dst.bytes(), 40)
	assert.Len(t, drain(events), 4)
}

func TestWorker_WriteErrorStopsWorker(t *testing.T) {
	boom := errors.New("disk full")
	src := newMemFile(make([]byte, 100))
	dst := newMemFile(nil)
	dst.failAt = 50
	dst.failErr = boom
	w, events, _ := newTestWorker(src, dst, 10)

	err := w.run(context.Background(), Range{Index: 3, Start: 30, End: 100})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "write at 50")

	var re *RangeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, int64(20), re.Copied)
	assert.Len(t, drain(events), 2)
}

func TestWorker_Cancelled(t *testing.T) {
	src := newMemFile(make([]byte, 100))
	dst := newMemFile(nil)
	w, events, _ := newTestWorker(src, dst, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.run(ctx, Range{Start: 0, End: 100})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, drain(events))
	assert.Empty(t, dst.bytes())
}
