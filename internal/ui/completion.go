package ui

import (
	"fmt"

	"github.com/bamsammich/splitcp/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  size 2.0 GiB  writes 214,749  ranges 8  avg 641 MB/s  time 3s  errors 0
func CompletionSummary(snap stats.Snapshot) string {
	icon := "✓"
	if snap.RangesFailed > 0 || snap.BytesCopied < snap.BytesTotal {
		icon = "✗"
	}

	return fmt.Sprintf("done %s  size %s  writes %s  ranges %s  avg %s  time %s  errors %d",
		icon,
		FormatBytes(snap.BytesCopied),
		FormatCount(snap.Writes),
		FormatCount(snap.RangesCompleted),
		FormatRate(snap.Rate()),
		FormatDuration(snap.Elapsed),
		snap.RangesFailed,
	)
}
