// internal/probe/retrychecker.go
package probe

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var ErrNegativeRetries = errors.New("probe: retries must not be negative")

// RetryChecker re-runs Inner until it succeeds or Retries+1 attempts were made.
// After the Nth failed attempt it waits min(BackoffBase*2^(N-1), BackoffMax).
type RetryChecker struct {
	Inner       Checker
	Retries     int
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// Sleep waits between attempts. A non-nil error stops retrying.
	// Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryChecker(inner Checker, retries int, base, maxDelay time.Duration) (*RetryChecker, error) {
	if retries < 0 {
		return nil, ErrNegativeRetries
	}
	return &RetryChecker{
		Inner:       inner,
		Retries:     retries,
		BackoffBase: base,
		BackoffMax:  maxDelay,
	}, nil
}

func (r *RetryChecker) Check(ctx context.Context, target string) Result {
	if r.Retries < 0 {
		panic(ErrNegativeRetries)
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	delays := r.schedule()

	var last Result
	for attempt := 1; attempt <= r.Retries+1; attempt++ {
		last = r.Inner.Check(ctx, target)
		last.Attempts = attempt
		if last.Success || attempt > r.Retries {
			return last
		}
		if err := sleep(ctx, r.nextDelay(delays)); err != nil {
			return last
		}
	}
	return last
}

// schedule yields base, 2*base, 4*base, ... with no jitter.
func (r *RetryChecker) schedule() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.BackoffBase
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = r.BackoffMax
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (r *RetryChecker) nextDelay(b *backoff.ExponentialBackOff) time.Duration {
	d := b.NextBackOff()
	if d == backoff.Stop || d > r.BackoffMax {
		d = r.BackoffMax
	}
	if d < 0 {
		d = 0
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
