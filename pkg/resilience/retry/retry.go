// Package retry provides bounded retry with exponential backoff for effect
// handler invocations.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy defines retry behavior for one execution.
type Policy struct {
	Enabled    bool          `json:"enabled"`     // Whether failed attempts are retried at all
	MaxRetries int           `json:"max_retries"` // Retries after the initial attempt
	BaseDelay  time.Duration `json:"base_delay"`  // Delay before the first retry
}

// DefaultPolicy provides reasonable defaults for retry behavior.
//
//nolint:gochecknoglobals // Sensible default config pattern
var DefaultPolicy = Policy{
	Enabled:    true,
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
}

// Delay computes the backoff before the retry following the given 0-indexed
// attempt: BaseDelay * 2^attempt. The delay grows unbounded with the attempt
// count; callers are expected to keep MaxRetries small.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	return p.BaseDelay << uint(attempt)
}

// Func is one attempt of the operation under retry.
type Func func(ctx context.Context) (any, error)

// Execute runs fn up to MaxRetries+1 times, sleeping the policy's backoff
// between attempts. The backoff wait is cancellable: if ctx is done the wait
// is abandoned and the context error returned. On success the result and the
// number of retries performed are returned; on exhaustion the last attempt's
// error propagates unchanged.
func Execute(ctx context.Context, policy Policy, fn Func) (any, int, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		if !policy.Enabled || attempt >= policy.MaxRetries {
			return nil, attempt, lastErr
		}

		delay := policy.Delay(attempt)
		select {
		case <-ctx.Done():
			return nil, attempt, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
			// Continue with retry.
		}
	}
}
