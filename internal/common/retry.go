package common

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"
)

// RetryPolicy is a bounded retry loop with a fixed delay between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// NewRetryPolicy creates a policy; attempts below 1 are raised to 1.
func NewRetryPolicy(maxAttempts int, delay time.Duration) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryPolicy{MaxAttempts: maxAttempts, Delay: delay}
}

// permanentError stops the retry loop on the attempt that returned it.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do runs op until it succeeds, returns a permanent error, the attempts are
// exhausted or ctx is done. Attempts are numbered from 1. The error of the
// last attempt is returned; a permanent error is returned unwrapped.
func (p RetryPolicy) Do(ctx context.Context, logger arbor.ILogger, op func(ctx context.Context, attempt int) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		var pe *permanentError
		if errors.As(lastErr, &pe) {
			return pe.err
		}

		if attempt < maxAttempts {
			if logger != nil {
				logger.Debug().
					Int("attempt", attempt).
					Int("max_attempts", maxAttempts).
					Err(lastErr).
					Msg("Retrying after delay")
			}
			if err := Sleep(ctx, p.Delay); err != nil {
				return err
			}
		}
	}

	if logger != nil {
		logger.Debug().
			Int("max_attempts", maxAttempts).
			Err(lastErr).
			Msg("All retry attempts exhausted")
	}
	return lastErr
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
