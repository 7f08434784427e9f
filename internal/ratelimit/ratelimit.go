// Package ratelimit counts requests per client in fixed windows.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrLimitExceeded is returned when a client has used up its window.
var ErrLimitExceeded = errors.New("rate limit exceeded")

type window struct {
	count int
	start time.Time
}

// Limiter admits at most limit calls per client within interval.
//
// The window restarts on the first call made more than interval after the
// window began, so a burst right after a reset is admitted even when it
// immediately follows a full burst before the reset.
type Limiter struct {
	limit    int
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

// New creates a Limiter.
func New(limit int, interval time.Duration) *Limiter {
	return &Limiter{
		limit:    limit,
		interval: interval,
		now:      time.Now,
		windows:  make(map[string]*window),
	}
}

// WithClock replaces the clock used for window bookkeeping.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Admit records a call for clientID and reports whether it may proceed.
func (l *Limiter) Admit(clientID string) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[clientID]
	if !ok {
		l.windows[clientID] = &window{count: 1, start: now}
		return l.check(1)
	}

	if now.Sub(w.start) > l.interval {
		w.count = 1
		w.start = now
		return l.check(1)
	}

	w.count++
	return l.check(w.count)
}

func (l *Limiter) check(count int) error {
	if count > l.limit {
		return ErrLimitExceeded
	}
	return nil
}
