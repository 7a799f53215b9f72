package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/article-parser/pkg/errors"
)

var errBoom = errors.New("boom")

func fail() error { return errBoom }

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := NewCircuitBreaker("store", cfg)
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []State
	cb, _ := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange: func(name string, from, to State) {
			assert.Equal(t, "store", name)
			transitions = append(transitions, to)
		},
	})

	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []State{StateOpen}, transitions)
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	require.Error(t, cb.Execute(fail))
	require.NoError(t, cb.Execute(func() error { return nil }))
	require.Error(t, cb.Execute(fail))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpen(t *testing.T) {
	tests := []struct {
		name  string
		probe func() error
		want  State
	}{
		{"probe succeeds", func() error { return nil }, StateClosed},
		{"probe fails", fail, StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clock := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
			require.Error(t, cb.Execute(fail))
			require.Equal(t, StateOpen, cb.GetState())

			clock.advance(30 * time.Second)
			assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)

			clock.advance(30 * time.Second)
			_ = cb.Execute(tt.probe)
			assert.Equal(t, tt.want, cb.GetState())
		})
	}
}

func TestCircuitBreaker_OneProbeAtATime(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	require.Error(t, cb.Execute(fail))
	clock.advance(time.Second)

	var inner error
	err := cb.Execute(func() error {
		assert.Equal(t, StateHalfOpen, cb.GetState())
		inner = cb.Execute(func() error { return nil })
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrCircuitOpen)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_RejectionsDoNotCount(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !apperrors.IsRejection(err) },
	})
	err := cb.Execute(func() error { return apperrors.ErrDocumentNotFound })
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	assert.Equal(t, StateClosed, cb.GetState())

	require.Error(t, cb.Execute(fail))
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	require.Error(t, cb.Execute(fail))
	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, "closed", cb.GetState().String())
	assert.Equal(t, "store", cb.Name())
}

var fast = RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "op", fast, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errBoom
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "op", fast, func(context.Context) error {
		attempts++
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorContains(t, err, "op failed after 3 attempts")
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	cfg := fast
	cfg.MaxAttempts = 5
	cfg.Retryable = apperrors.IsRetryable

	attempts := 0
	err := Retry(context.Background(), "op", cfg, func(context.Context) error {
		attempts++
		return apperrors.ErrScanFailed
	})
	assert.Equal(t, apperrors.ErrScanFailed, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Retry(ctx, "op", RetryConfig{MaxAttempts: 3, InitialDelay: time.Hour}, func(context.Context) error {
		cancel()
		return errBoom
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	cfg := withRetryDefaults(RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Jitter: 0.01})
	assert.InDelta(t, float64(100*time.Millisecond), float64(backoff(1, cfg)), float64(2*time.Millisecond))
	assert.InDelta(t, float64(400*time.Millisecond), float64(backoff(3, cfg)), float64(5*time.Millisecond))
	assert.LessOrEqual(t, backoff(20, cfg), time.Second)
}
