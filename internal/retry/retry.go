// Package retry wraps unreliable operations with bounded exponential
// backoff and a circuit breaker.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Policy configures backoff behavior for a retried operation.
type Policy struct {
	MaxAttempts    int           // total attempts, including the first
	BaseDelay      time.Duration // delay before attempt 2
	MaxDelay       time.Duration // cap on the computed delay
	JitterFraction float64       // delay *= 1 + uniform(-f, +f)

	Logger *slog.Logger
}

// retryable is implemented by errors that may succeed on a later attempt.
type retryable interface {
	Retryable() bool
}

// ExhaustedError reports that all attempts failed with retryable errors.
// It wraps the last underlying failure.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsExhausted reports whether err is an ExhaustedError.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}

// Do runs op under the policy. Attempt 1 runs immediately; each
// retryable failure suspends for an exponentially growing, jittered
// delay before the next attempt. Non-retryable errors propagate
// immediately. After MaxAttempts retryable failures, Do returns an
// ExhaustedError wrapping the last one.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := p.delay(attempt)
			logger.Debug("retrying operation",
				"attempt", attempt,
				"delay", delay,
			)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var r retryable
		if !errors.As(err, &r) || !r.Retryable() {
			return zero, err
		}

		logger.Warn("attempt failed",
			"attempt", attempt,
			"max_attempts", p.MaxAttempts,
			"err", err,
		)
	}

	return zero, &ExhaustedError{Attempts: p.MaxAttempts, Err: lastErr}
}

// delay computes the backoff before the given attempt (attempt >= 2):
// min(MaxDelay, BaseDelay * 2^(attempt-2)), perturbed by the jitter
// fraction and floored at zero.
func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay << (attempt - 2)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}

	if p.JitterFraction > 0 {
		// uniform in [-f, +f]
		f := (rand.Float64()*2 - 1) * p.JitterFraction
		d = time.Duration(float64(d) * (1 + f))
	}
	if d < 0 {
		d = 0
	}
	return d
}
