package engine

import "golang.org/x/time/rate"

// NewBWLimiter creates a rate.Limiter that caps aggregate throughput to
// bytesPerSec across all workers. The burst is 1 MB, lowered for slow
// limits, but never below chunk: WaitN rejects requests larger than the
// burst, and every write asks for up to chunk tokens at once.
func NewBWLimiter(bytesPerSec int64, chunk int) *rate.Limiter {
	burst := 1 << 20 // 1 MB
	if bytesPerSec < int64(burst) {
		burst = int(bytesPerSec)
	}
	burst = max(burst, chunk, 1)
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}
