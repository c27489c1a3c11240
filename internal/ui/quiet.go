package ui

import "github.com/bamsammich/splitcp/internal/event"

// quietPresenter consumes events but produces no output.
type quietPresenter struct{}

func (*quietPresenter) Run(_ int64, events <-chan event.Event) error {
	for range events {
	}
	return nil
}

func (*quietPresenter) Summary() string {
	return ""
}
