// Package event defines the progress records workers send to presenters.
package event

import "time"

// Event reports one completed positional write. Events from a single
// worker arrive in the order that worker wrote them; events from different
// workers interleave arbitrarily.
type Event struct {
	Timestamp time.Time
	Offset    int64 // offset of the write
	Bytes     int   // bytes written by this write
	Worker    int
}

// End returns the offset just past the bytes this event covers.
func (e Event) End() int64 {
	return e.Offset + int64(e.Bytes)
}
