package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/projectnexus/storefront/core"
)

// Retry runs fn up to MaxAttempts times with exponential backoff:
// interval = min(InitialInterval * Multiplier^(attempt-1), MaxInterval),
// plus up to 10% jitter so synchronized clients do not reconverge on a
// recovering backend. Only backend-health failures (per
// DefaultClassifier) are retried; a 4xx or a cancelled context returns
// immediately.
func Retry(ctx context.Context, cfg core.RetryConfig, fn func() error) error {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	interval := cfg.InitialInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	maxInterval := cfg.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 5 * time.Second
	}
	multiplier := cfg.Multiplier
	if multiplier <= 1 {
		multiplier = 2.0
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !DefaultClassifier(lastErr) {
			return lastErr
		}
		if attempt == maxAttempts {
			break
		}

		delay := interval + time.Duration(rand.Int63n(int64(interval)/10+1))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		interval = time.Duration(float64(interval) * multiplier)
		if interval > maxInterval {
			interval = maxInterval
		}
	}

	return fmt.Errorf("after %d attempts: %v: %w", maxAttempts, lastErr, core.ErrMaxRetriesExceeded)
}

// RetryWithBreaker layers retry over a circuit breaker. An open
// circuit is not a retryable condition, so a rejection ends the retry
// loop immediately.
func RetryWithBreaker(ctx context.Context, cfg core.RetryConfig, cb *CircuitBreaker, fn func() error) error {
	return Retry(ctx, cfg, func() error {
		return cb.Execute(ctx, fn)
	})
}

// Executor runs a call under a resilience policy. CircuitBreaker and
// Retrier both implement it, so policies compose.
type Executor interface {
	Execute(ctx context.Context, fn func() error) error
}

// Retrier packages Retry behind the Executor interface so it slots
// into a transport the same way a circuit breaker does. A non-nil
// inner executor runs inside the retry loop; an open circuit still
// fails fast because DefaultClassifier treats the rejection as
// non-retryable.
type Retrier struct {
	cfg   core.RetryConfig
	inner Executor
}

// NewRetrier builds a retrying executor. inner may be nil.
func NewRetrier(cfg core.RetryConfig, inner Executor) *Retrier {
	return &Retrier{cfg: cfg, inner: inner}
}

func (r *Retrier) Execute(ctx context.Context, fn func() error) error {
	call := fn
	if r.inner != nil {
		call = func() error { return r.inner.Execute(ctx, fn) }
	}
	return Retry(ctx, r.cfg, call)
}
