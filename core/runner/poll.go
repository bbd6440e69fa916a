package runner

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollPending signals that a polled job has not produced a result yet and
// the loop should try again.
var ErrPollPending = errors.New("poll: result not ready")

// Poll drives a second-hop resolution job that materializes a result over
// several checks (for example a download-URL job that a provider fulfils
// asynchronously). It is distinct from Retry because its failure mode is a
// job that never completes, bounded by a hard attempt ceiling rather than an
// error classification.
func Poll[T any](ctx context.Context, maxAttempts int, interval time.Duration, check func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := check(ctx)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrPollPending) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return zero, fmt.Errorf("poll aborted: %w", ctx.Err())
		}
	}
	return zero, fmt.Errorf("poll gave up after %d attempts", maxAttempts)
}
