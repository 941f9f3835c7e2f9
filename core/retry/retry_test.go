package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	waits []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func TestRun_AlwaysFailing(t *testing.T) {
	rec := &recorder{}
	exec := &Executor{Sleep: rec.sleep}
	calls := 0
	errFinal := errors.New("throttled")

	_, err := Run(context.Background(), exec, Policy{MaxAttempts: 3, BackoffFactor: time.Second},
		func(ctx context.Context) (string, error) {
			calls++
			return "", errFinal
		})

	assert.ErrorIs(t, err, errFinal)
	assert.Equal(t, 4, calls, "three caught attempts plus the final uncaught one")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.waits)
}

func TestRun_FinalAttemptResultPropagates(t *testing.T) {
	rec := &recorder{}
	calls := 0

	res, err := Run(context.Background(), &Executor{Sleep: rec.sleep}, Policy{MaxAttempts: 2, BackoffFactor: time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			if calls <= 2 {
				return 0, errors.New("transient")
			}
			return 7, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 7, res)
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.waits, 2)
}

func TestRun_SucceedsFirstTry(t *testing.T) {
	rec := &recorder{}
	res, err := Run(context.Background(), &Executor{Sleep: rec.sleep}, Policy{MaxAttempts: 10, BackoffFactor: time.Second},
		func(ctx context.Context) (string, error) { return "ok", nil })

	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Empty(t, rec.waits)
}

func TestRun_ZeroAttemptsCallsOnce(t *testing.T) {
	calls := 0
	_, err := Run(context.Background(), &Executor{}, Policy{}, func(ctx context.Context) (struct{}, error) {
		calls++
		return struct{}{}, errors.New("nope")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRun_Permanent(t *testing.T) {
	rec := &recorder{}
	errMissing := errors.New("missing")
	calls := 0

	_, err := Run(context.Background(), &Executor{Sleep: rec.sleep}, Policy{MaxAttempts: 5, BackoffFactor: time.Second},
		func(ctx context.Context) (string, error) {
			calls++
			return "", Permanent(errMissing)
		})

	assert.Equal(t, errMissing, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.waits)
	assert.Nil(t, Permanent(nil))
}

func TestRun_OnRetryHook(t *testing.T) {
	var attempts []int
	exec := &Executor{
		Sleep: func(context.Context, time.Duration) error { return nil },
		OnRetry: func(attempt int, err error, wait time.Duration) {
			attempts = append(attempts, attempt)
		},
	}

	_, _ = Run(context.Background(), exec, Policy{MaxAttempts: 3}, func(ctx context.Context) (int, error) {
		return 0, errors.New("fail")
	})
	assert.Equal(t, []int{0, 1, 2}, attempts)
}

func TestRun_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	errOp := errors.New("transient")

	_, err := Run(ctx, &Executor{}, Policy{MaxAttempts: 3, BackoffFactor: time.Hour},
		func(ctx context.Context) (int, error) { return 0, errOp })

	assert.ErrorIs(t, err, errOp)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_UsesRealSleep(t *testing.T) {
	calls := 0
	start := time.Now()
	_, err := Do(context.Background(), Policy{MaxAttempts: 2, BackoffFactor: 5 * time.Millisecond},
		func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("fail")
		})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}
