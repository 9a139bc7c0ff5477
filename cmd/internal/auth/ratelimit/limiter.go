// Package ratelimit bounds authenticated traffic per principal.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultLimit  = 5
	DefaultWindow = 60 * time.Second
)

type counter struct {
	windowStart time.Time
	count       int
}

// Limiter is a fixed-window counter per principal.
//
// A principal's window opens at its first admitted request and resets once
// more than one window length has passed since it opened.
type Limiter struct {
	mu       sync.Mutex
	counters map[string]*counter
	limit    int
	window   time.Duration
}

// New constructs a Limiter, falling back to defaults for invalid inputs.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		counters: make(map[string]*counter),
		limit:    limit,
		window:   window,
	}
}

// Admit reports whether a request by principal at now is allowed. When it
// is not, retryAfter is the time left until the window ends.
func (l *Limiter) Admit(principal string, now time.Time) (ok bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, found := l.counters[principal]
	if !found || now.Sub(c.windowStart) > l.window {
		l.counters[principal] = &counter{windowStart: now, count: 1}
		return true, 0
	}

	if c.count >= l.limit {
		return false, c.windowStart.Add(l.window).Sub(now)
	}
	c.count++
	return true, 0
}

// Prune drops counters whose window has ended. It matches the reaper's
// sweep signature.
func (l *Limiter) Prune(_ context.Context, now time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for p, c := range l.counters {
		if now.Sub(c.windowStart) > l.window {
			delete(l.counters, p)
			n++
		}
	}
	return n, nil
}

// Limit returns the admitted requests per window.
func (l *Limiter) Limit() int { return l.limit }
