// Package retry provides the bounded retry policy shared by outbound HTTP
// callers. Callers classify each failure as retryable or permanent; the
// policy owns attempt counting and backoff.
package retry

import (
	"context"
	"time"
)

// Policy describes a bounded exponential backoff.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultPolicy returns the policy used for downstream dispatch.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		Multiplier:     2.0,
	}
}

// Func is one attempt. It reports whether its error is worth retrying;
// retryable is ignored when err is nil.
type Func func(ctx context.Context) (retryable bool, err error)

// Do runs fn until it succeeds, fails permanently, or attempts run out.
// It returns the number of attempts made and the last error. Context
// cancellation aborts the wait between attempts.
func (p Policy) Do(ctx context.Context, fn Func) (int, error) {
	backoff := p.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		retryable, err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !retryable || attempt == p.MaxAttempts {
			return attempt, lastErr
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * p.Multiplier)
		if backoff > p.MaxBackoff {
			backoff = p.MaxBackoff
		}
	}

	return p.MaxAttempts, lastErr
}
