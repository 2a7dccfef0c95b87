// Package ratelimit implements fixed-window admission control per named resource.
package ratelimit

import (
	"sync"
	"time"
)

// ResourceLLM is the resource key used for generation calls.
const ResourceLLM = "llm-api"

type window struct {
	count     int
	resetTime time.Time
}

// Limiter admits at most ceiling requests per key within each window.
// State is process-local.
type Limiter struct {
	ceiling int
	period  time.Duration
	now     func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter admitting ceiling requests per period for each key.
func New(ceiling int, period time.Duration, opts ...Option) *Limiter {
	if ceiling <= 0 {
		ceiling = 1
	}
	l := &Limiter{
		ceiling: ceiling,
		period:  period,
		now:     time.Now,
		windows: make(map[string]*window),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether a request for key is admitted, recording it if so.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetTime) {
		l.windows[key] = &window{count: 1, resetTime: now.Add(l.period)}
		return true
	}
	if w.count >= l.ceiling {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests key may still make in its current window.
func (l *Limiter) Remaining(key string) int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetTime) {
		return l.ceiling
	}
	return l.ceiling - w.count
}
