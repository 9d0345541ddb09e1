// Package deepsight gates and caches calls to the expensive remote
// deep-analysis service.
//
// Three independent mechanisms compose here: a rate limiter (minimum spacing
// plus a rolling per-minute cap), a single-flight slot (one in-flight call
// per channel, overlapping attempts are declined rather than queued), and a
// result lock (a TTL-bound cache of the last analysis text). Being limited or
// declined is a normal outcome, never an error.
package deepsight

import (
	"sync"
	"time"
)

// Default rate limits.
const (
	// DefaultMinInterval is the minimum spacing between two calls.
	DefaultMinInterval = 15 * time.Second

	// DefaultMaxPerMinute caps calls in any trailing 60 s window.
	DefaultMaxPerMinute = 3

	// rollingWindow is the trailing window the per-minute cap applies to.
	rollingWindow = 60 * time.Second
)

// Limiter enforces both a minimum inter-call spacing and a rolling
// per-minute cap. The zero value is not usable; construct with NewLimiter.
type Limiter struct {
	mu           sync.Mutex
	minInterval  time.Duration
	maxPerMinute int

	lastCall time.Time
	calls    []time.Time
}

// NewLimiter creates a limiter. Non-positive arguments fall back to the
// defaults.
func NewLimiter(minInterval time.Duration, maxPerMinute int) *Limiter {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	if maxPerMinute <= 0 {
		maxPerMinute = DefaultMaxPerMinute
	}
	return &Limiter{minInterval: minInterval, maxPerMinute: maxPerMinute}
}

// Allow reports whether a call may start at now. It never mutates state;
// pair with Record when the call is actually made.
func (l *Limiter) Allow(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lastCall.IsZero() && now.Sub(l.lastCall) < l.minInterval {
		return false
	}
	return l.countRecentLocked(now) < l.maxPerMinute
}

// Record registers a call at now and trims timestamps older than the rolling
// window.
func (l *Limiter) Record(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastCall = now
	l.calls = append(l.calls, now)

	cutoff := now.Add(-rollingWindow)
	trimmed := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			trimmed = append(trimmed, t)
		}
	}
	l.calls = trimmed
}

func (l *Limiter) countRecentLocked(now time.Time) int {
	cutoff := now.Add(-rollingWindow)
	n := 0
	for _, t := range l.calls {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
