package runner

import (
	"context"
	"math/rand"
	"time"
)

// Throttle sleeps a uniformly random delay inside [min, max] between items
// that actually hit the network, to avoid tripping upstream rate limits.
// Items served from cache or dedup skip the throttle entirely.
type Throttle struct {
	Min time.Duration
	Max time.Duration
}

// Wait blocks for a random duration in the configured window, or until the
// context is cancelled.
func (t Throttle) Wait(ctx context.Context) {
	if t.Max <= 0 {
		return
	}
	delay := t.Min
	if t.Max > t.Min {
		delay += time.Duration(rand.Int63n(int64(t.Max - t.Min + 1)))
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}
