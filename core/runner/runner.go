// Package runner provides the concurrency primitives the acquisition
// pipeline is built on: a bounded parallel runner, a randomized inter-request
// throttle, classified retry with linear backoff, and a bounded poll loop for
// download-URL materialization jobs.
package runner

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Run invokes worker for every index in [0, n) with at most concurrency
// invocations in flight, and returns only after all items have settled.
//
// The runner does not swallow worker errors: any non-nil error is collected
// and returned per item. Callers that must not abort a batch (playlist
// fan-out) convert failures inside worker into recorded outcomes instead.
func Run(ctx context.Context, n, concurrency int, worker func(ctx context.Context, index int) error) []error {
	if concurrency < 1 {
		concurrency = 1
	}
	sem := semaphore.NewWeighted(int64(concurrency))
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled; mark the remainder as unattempted.
			for j := i; j < n; j++ {
				errs[j] = fmt.Errorf("item %d not attempted: %w", j, err)
			}
			break
		}
		go func(index int) {
			defer sem.Release(1)
			defer func() {
				// A panicking worker must not take the whole batch down;
				// surface it as that item's error instead.
				if r := recover(); r != nil {
					errs[index] = fmt.Errorf("item %d worker panicked: %v", index, r)
				}
			}()
			errs[index] = worker(ctx, index)
		}(i)
	}

	// Draining the full weight waits for every in-flight worker.
	if err := sem.Acquire(context.Background(), int64(concurrency)); err == nil {
		sem.Release(int64(concurrency))
	}
	return errs
}
