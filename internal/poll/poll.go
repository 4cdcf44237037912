// Package poll provides bounded wait loops and retry policies shared by every
// "wait until" and "try again" call site of the operator.
package poll

import (
	"context"
	"errors"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
)

// ErrExhausted is returned when a condition was not met within the attempt budget.
var ErrExhausted = errors.New("condition not met within the attempt budget")

// ConditionFunc reports whether the awaited state was reached.
// A non-nil error aborts the wait immediately.
type ConditionFunc func(ctx context.Context) (bool, error)

// Policy bounds a wait loop: at most Attempts evaluations spaced by Interval.
type Policy struct {
	Attempts int
	Interval time.Duration
	// DelayFirst sleeps one Interval before the first evaluation.
	DelayFirst bool
}

// Every returns a Policy evaluating immediately, then every interval.
func Every(attempts int, interval time.Duration) Policy {
	return Policy{Attempts: attempts, Interval: interval}
}

// After returns a Policy that sleeps before every evaluation, including the first.
func After(attempts int, interval time.Duration) Policy {
	return Policy{Attempts: attempts, Interval: interval, DelayFirst: true}
}

// Within returns a Policy covering timeout with evaluations every interval.
func Within(timeout, interval time.Duration) Policy {
	attempts := 1
	if interval > 0 {
		attempts = int(timeout/interval) + 1
	}
	return Policy{Attempts: attempts, Interval: interval}
}

// Budget is the total time a Policy may spend sleeping.
func (p Policy) Budget() time.Duration {
	sleeps := p.Attempts - 1
	if p.DelayFirst {
		sleeps = p.Attempts
	}
	if sleeps < 0 {
		sleeps = 0
	}
	return time.Duration(sleeps) * p.Interval
}

// Until evaluates cond under p. It returns nil once cond reports true, the
// condition's error if it fails, ctx.Err() on cancellation, and ErrExhausted
// when the budget runs out.
func Until(ctx context.Context, p Policy, cond ConditionFunc) error {
	if p.Attempts <= 0 {
		return ErrExhausted
	}
	if p.DelayFirst {
		if err := sleep(ctx, p.Interval); err != nil {
			return err
		}
	}

	var (
		met     bool
		condErr error
	)
	backoff := wait.Backoff{Duration: p.Interval, Factor: 1, Steps: p.Attempts}
	_ = wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		ok, err := cond(ctx)
		if err != nil {
			condErr = err
			return false, err
		}
		met = ok
		return ok, nil
	})

	switch {
	case condErr != nil:
		return condErr
	case met:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return ErrExhausted
	}
}

func sleep(ctx context.Context, d time.Duration) error {
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

// Sleep pauses for d unless ctx is cancelled first.
func Sleep(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

// RetryPolicy retries an operation a bounded number of times with a fixed
// pause, as long as Retriable accepts the returned error.
type RetryPolicy struct {
	Attempts  int
	Interval  time.Duration
	Retriable func(error) bool
}

// Do runs fn until it succeeds, returns a non-retriable error, the context is
// cancelled, or the attempts are exhausted. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	retriable := p.Retriable
	if retriable == nil {
		retriable = func(error) bool { return true }
	}
	steps := p.Attempts
	if steps <= 0 {
		steps = 1
	}
	backoff := wait.Backoff{Duration: p.Interval, Factor: 1, Steps: steps}
	return retry.OnError(backoff, func(err error) bool {
		if ctx.Err() != nil {
			return false
		}
		return retriable(err)
	}, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(ctx)
	})
}
