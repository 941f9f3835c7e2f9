package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds the retries of one call site.
type Policy struct {
	// MaxAttempts is the number of caught attempts before the final, uncaught one.
	MaxAttempts int
	// BackoffFactor is the base wait; attempt n waits BackoffFactor * 2^n.
	BackoffFactor time.Duration
}

// Backoff returns the wait after the given zero-based failed attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	return p.BackoffFactor * time.Duration(1<<uint(attempt))
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor runs operations under a Policy.
type Executor struct {
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep SleepFunc
	// OnRetry, if set, is called after each caught failure with the wait that follows.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Default is the executor used by Do.
var Default = &Executor{}

// Do runs op under p with the Default executor.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	return Run(ctx, Default, p, op)
}

// Run calls op up to p.MaxAttempts times, sleeping p.Backoff(attempt) after each failure.
// Once those attempts are spent op is called one last time and whatever it returns is
// handed back unchanged, so at most p.MaxAttempts+1 calls happen and the final error is
// never swallowed. Errors marked with Permanent end the loop at once.
func Run[T any](ctx context.Context, e *Executor, p Policy, op func(context.Context) (T, error)) (T, error) {
	if e == nil {
		e = Default
	}
	sleep := e.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return result, perm.err
		}

		wait := p.Backoff(attempt)
		if e.OnRetry != nil {
			e.OnRetry(attempt, err, wait)
		}
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			var zero T
			return zero, errors.Join(err, sleepErr)
		}
	}

	result, err := op(ctx)
	var perm *permanentError
	if errors.As(err, &perm) {
		return result, perm.err
	}
	return result, err
}

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

func timerSleep(ctx context.Context, d time.Duration) error {
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
