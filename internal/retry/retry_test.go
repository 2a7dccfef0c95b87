package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/edgard/socialbot/internal/logger"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

type scriptedLimiter struct {
	answers []bool
	calls   int
}

func (l *scriptedLimiter) Allow(string) bool {
	defer func() { l.calls++ }()
	if l.calls < len(l.answers) {
		return l.answers[l.calls]
	}
	return true
}

func newTestExecutor(maxRetries int, limiter Limiter, sleeper *recordingSleeper, opts ...Option) *Executor {
	cfg := Config{MaxRetries: maxRetries, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	opts = append(opts, WithSleep(sleeper.Sleep))
	return NewExecutor(cfg, limiter, logger.Discard(), opts...)
}

func TestDo_PermanentErrorAttemptedOnce(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	e := newTestExecutor(5, nil, sleeper)

	permanent := &StatusError{Code: 400, Body: "bad request"}
	calls := 0
	err := e.Do(context.Background(), "llm-api", func(context.Context) error {
		calls++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
}

func TestDo_TransientThenSuccess(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		maxRetries := rapid.IntRange(1, 8).Draw(t, "maxRetries")
		failures := rapid.IntRange(0, maxRetries-1).Draw(t, "failures")

		sleeper := &recordingSleeper{}
		e := newTestExecutor(maxRetries, nil, sleeper)

		calls := 0
		got, err := DoValue(context.Background(), e, "llm-api", func(context.Context) (string, error) {
			calls++
			if calls <= failures {
				return "", &StatusError{Code: 503}
			}
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "ok" {
			t.Fatalf("got %q, want ok", got)
		}
		if calls != failures+1 || calls > maxRetries {
			t.Fatalf("calls = %d, failures = %d, maxRetries = %d", calls, failures, maxRetries)
		}
	})
}

func TestDo_ExhaustsAndSurfacesLastError(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	var retried []int
	e := newTestExecutor(3, nil, sleeper, WithHooks(Hooks{
		OnRetry: func(_ string, attempt int, _ error) { retried = append(retried, attempt) },
	}))

	calls := 0
	err := e.Do(context.Background(), "llm-api", func(context.Context) error {
		calls++
		return fmt.Errorf("call %d: %w", calls, &StatusError{Code: 429})
	})

	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "call 3")
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, sleeper.delays)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_RateLimitRejectionDoesNotConsumeAttempt(t *testing.T) {
	t.Parallel()

	sleeper := &recordingSleeper{}
	limiter := &scriptedLimiter{answers: []bool{false, false, true}}
	throttled := 0
	e := newTestExecutor(1, limiter, sleeper, WithHooks(Hooks{
		OnThrottled: func(string) { throttled++ },
	}))

	calls := 0
	err := e.Do(context.Background(), "llm-api", func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, throttled)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, sleeper.delays)
}

func TestDo_ContextCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExecutor(Config{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}, &scriptedLimiter{answers: []bool{false}}, logger.Discard())
	err := e.Do(ctx, "llm-api", func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}

func TestBackoff_Capped(t *testing.T) {
	t.Parallel()

	e := NewExecutor(Config{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 5 * time.Second}, nil, logger.Discard())

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second},
		{40, 5 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, e.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "429 status", err: &StatusError{Code: 429}, expected: true},
		{name: "502 status", err: &StatusError{Code: 502}, expected: true},
		{name: "503 status wrapped", err: fmt.Errorf("publish: %w", &StatusError{Code: 503}), expected: true},
		{name: "500 status", err: &StatusError{Code: 500}, expected: false},
		{name: "400 status", err: &StatusError{Code: 400}, expected: false},
		{name: "net error", err: &net.OpError{Op: "dial", Err: timeoutErr{}}, expected: true},
		{name: "rate limit message", err: errors.New("Rate limit exceeded"), expected: true},
		{name: "network message", err: errors.New("network unreachable"), expected: true},
		{name: "status in message", err: errors.New("request failed with code 502"), expected: true},
		{name: "context cancelled", err: context.Canceled, expected: false},
		{name: "plain error", err: errors.New("invalid prompt"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ShouldRetry(tt.err))
		})
	}
}
