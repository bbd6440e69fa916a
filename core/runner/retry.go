package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// RetryableError reports whether an error is worth retrying: timeouts,
// throttling and upstream 5xx responses, connection resets and transient
// DNS failures. Malformed URLs, missing metadata and credential problems
// are permanent and never retried.
func RetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary || dnsErr.IsNotFound
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"timeout",
		"timed out",
		"connection reset",
		"connection refused",
		"network is unreachable",
		"no such host",
		"http 429",
		"http 500",
		"http 502",
		"http 503",
		"http 504",
		"status 429",
		"status 500",
		"status 502",
		"status 503",
		"status 504",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Retry re-invokes op while classify reports the error as retryable and
// attempts remain, sleeping baseDelay * attemptNumber between tries. A
// non-retryable error aborts immediately without consuming the remaining
// attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, classify func(error) bool, op func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if classify == nil {
		classify = RetryableError
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !classify(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(baseDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", maxAttempts, lastErr)
}
