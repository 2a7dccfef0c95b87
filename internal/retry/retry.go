// Package retry wraps operations with bounded, rate-limit aware exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrRetriesExhausted is wrapped together with the last error once every attempt failed.
var ErrRetriesExhausted = errors.New("retry attempts exhausted")

// Limiter is the admission check consulted before every attempt.
type Limiter interface {
	Allow(key string) bool
}

// Hooks receive retry events, typically for metrics.
type Hooks struct {
	OnThrottled func(resource string)
	OnRetry     func(resource string, attempt int, err error)
	OnExhausted func(resource string, err error)
}

// Config holds the executor's backoff parameters.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultConfig returns the backoff used for language-model calls.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
	}
}

// Executor runs operations with retries.
type Executor struct {
	cfg     Config
	limiter Limiter
	hooks   Hooks
	log     *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option customizes an Executor.
type Option func(*Executor)

// WithHooks installs event hooks.
func WithHooks(h Hooks) Option {
	return func(e *Executor) { e.hooks = h }
}

// WithSleep overrides how the executor waits between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// NewExecutor creates an Executor. A nil limiter admits every attempt.
func NewExecutor(cfg Config, limiter Limiter, logger *slog.Logger, opts ...Option) *Executor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig().BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		cfg:     cfg,
		limiter: limiter,
		log:     logger.With("component", "retry"),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Backoff returns min(MaxDelay, BaseDelay * 2^attempt).
func (e *Executor) Backoff(attempt int) time.Duration {
	d := e.cfg.BaseDelay
	for range attempt {
		d *= 2
		if d >= e.cfg.MaxDelay {
			return e.cfg.MaxDelay
		}
	}
	return d
}

// Do runs op for resource until it succeeds, fails permanently, or MaxRetries attempts have failed.
// A rate-limit rejection waits and repeats the same attempt without consuming it.
func (e *Executor) Do(ctx context.Context, resource string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < e.cfg.MaxRetries; {
		if e.limiter != nil && !e.limiter.Allow(resource) {
			delay := e.Backoff(attempt)
			e.log.WarnContext(ctx, "Rate limited, backing off", "resource", resource, "attempt", attempt+1, "delay", delay)
			if e.hooks.OnThrottled != nil {
				e.hooks.OnThrottled(resource)
			}
			if err := e.sleep(ctx, delay); err != nil {
				return fmt.Errorf("waiting for rate limit on %s: %w", resource, err)
			}
			continue
		}

		err := op(ctx)
		if err == nil {
			if attempt > 0 {
				e.log.InfoContext(ctx, "Operation succeeded after retry", "resource", resource, "attempt", attempt+1)
			}
			return nil
		}
		lastErr = err

		if !ShouldRetry(err) {
			e.log.DebugContext(ctx, "Operation failed with non-retryable error", "resource", resource, "error", err)
			return err
		}

		attempt++
		if attempt >= e.cfg.MaxRetries {
			break
		}

		delay := e.Backoff(attempt - 1)
		e.log.WarnContext(ctx, "Operation failed, retrying",
			"resource", resource, "attempt", attempt, "max_retries", e.cfg.MaxRetries, "delay", delay, "error", err)
		if e.hooks.OnRetry != nil {
			e.hooks.OnRetry(resource, attempt, err)
		}
		if err := e.sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry abandoned: %w", err)
		}
	}

	e.log.ErrorContext(ctx, "Retry attempts exhausted", "resource", resource, "attempts", e.cfg.MaxRetries, "error", lastErr)
	if e.hooks.OnExhausted != nil {
		e.hooks.OnExhausted(resource, lastErr)
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, e.cfg.MaxRetries, lastErr)
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, e *Executor, resource string, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, resource, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
