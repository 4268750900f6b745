package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeErr is a classified failure for driving the policy.
type fakeErr struct {
	retryable bool
}

func (e *fakeErr) Error() string   { return "fake failure" }
func (e *fakeErr) Retryable() bool { return e.retryable }

// fastPolicy keeps test delays negligible.
func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts:    maxAttempts,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		JitterFraction: 0.5,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	const k = 2 // failures before success

	calls := 0
	op := func(ctx context.Context) (string, error) {
		calls++
		if calls <= k {
			return "", &fakeErr{retryable: true}
		}
		return "ok", nil
	}

	got, err := Do(context.Background(), fastPolicy(k+1), op)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, k+1, calls)
}

func TestDo_ExhaustsAfterMaxAttempts(t *testing.T) {
	const maxAttempts = 3

	calls := 0
	op := func(ctx context.Context) (string, error) {
		calls++
		return "", &fakeErr{retryable: true}
	}

	_, err := Do(context.Background(), fastPolicy(maxAttempts), op)

	assert.Equal(t, maxAttempts, calls)
	require.True(t, IsExhausted(err))

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, maxAttempts, ex.Attempts)

	// The last underlying failure is preserved.
	var underlying *fakeErr
	assert.ErrorAs(t, err, &underlying)
}

func TestDo_TerminalFailureNotRetried(t *testing.T) {
	calls := 0
	op := func(ctx context.Context) (int, error) {
		calls++
		return 0, &fakeErr{retryable: false}
	}

	_, err := Do(context.Background(), fastPolicy(10), op)

	assert.Equal(t, 1, calls)
	assert.False(t, IsExhausted(err))

	var underlying *fakeErr
	assert.ErrorAs(t, err, &underlying)
}

func TestDo_PlainErrorNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	op := func(ctx context.Context) (int, error) {
		calls++
		return 0, boom
	}

	_, err := Do(context.Background(), fastPolicy(5), op)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, boom)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	p := Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Hour, // never elapses
		MaxDelay:    time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	op := func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, &fakeErr{retryable: true}
	}

	_, err := Do(ctx, p, op)

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicyDelay_BoundsAndGrowth(t *testing.T) {
	p := Policy{
		BaseDelay:      time.Second,
		MaxDelay:       10 * time.Second,
		JitterFraction: 0.5,
	}

	// attempt 2 -> base 1s, attempt 3 -> 2s, attempt 4 -> 4s,
	// attempt 5 -> 8s, attempt 6 -> capped at 10s.
	wantBase := []struct {
		attempt int
		base    time.Duration
	}{
		{2, time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
		{5, 8 * time.Second},
		{6, 10 * time.Second},
		{7, 10 * time.Second},
	}

	for _, tt := range wantBase {
		for i := 0; i < 50; i++ {
			d := p.delay(tt.attempt)
			lo := time.Duration(float64(tt.base) * 0.5)
			hi := time.Duration(float64(tt.base) * 1.5)
			if d < lo || d > hi {
				t.Fatalf("delay(%d) = %v, want within [%v, %v]", tt.attempt, d, lo, hi)
			}
		}
	}
}

func TestPolicyDelay_NoJitterIsDeterministic(t *testing.T) {
	p := Policy{
		BaseDelay: time.Second,
		MaxDelay:  time.Minute,
	}

	assert.Equal(t, time.Second, p.delay(2))
	assert.Equal(t, 2*time.Second, p.delay(3))
	assert.Equal(t, 4*time.Second, p.delay(4))
}
