// Package retry runs an operation until it succeeds, fails with an error
// that is not retryable or failed too often with the same error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type Runner struct {
	Fn                  func(context.Context) error
	IsRetryable         func(error) bool
	MaxRetriesSameError int
	// RetryIntervals are the pauses between the attempts, the last interval
	// is used for all further retries.
	RetryIntervals []time.Duration
	Logger         *slog.Logger

	lastCause error
	failures  int
}

// Run calls Fn until it succeeds. When ctx is canceled while pausing
// between attempts, the context error joined with the last error of Fn is
// returned.
func (r *Runner) Run(ctx context.Context) error {
	for {
		err := r.Fn(ctx)
		if err == nil {
			return nil
		}

		r.failures++

		if !r.IsRetryable(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}

		cause := rootCause(err)
		if r.lastCause != nil && sameCause(cause, r.lastCause) {
			if r.failures >= r.MaxRetriesSameError {
				return fmt.Errorf("max. number of retries (%d) exceeded: %w", r.failures, err)
			}
		} else {
			r.failures = 1
		}

		r.lastCause = cause

		sleepTime := r.sleepTime()

		r.Logger.Warn(
			"retryable error occurred, retrying after pause",
			"error", err,
			"failures", r.failures,
			"max_retries", r.MaxRetriesSameError,
			"pause", sleepTime,
		)

		t := time.NewTimer(sleepTime)
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(ctx.Err(), err)
		case <-t.C:
		}
	}
}

func (r *Runner) sleepTime() time.Duration {
	if r.failures-1 < len(r.RetryIntervals) {
		return r.RetryIntervals[r.failures-1]
	}

	return r.RetryIntervals[len(r.RetryIntervals)-1]
}

// rootCause returns the innermost error of the chain of err. Network errors
// are newly allocated on every attempt, only their cause, like a
// syscall.Errno, is comparable.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func sameCause(a, b error) bool {
	return errors.Is(a, b) || a.Error() == b.Error()
}
