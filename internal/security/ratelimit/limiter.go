// Package ratelimit throttles credential-sensitive operations (login
// attempts, reset-code requests) with a sliding window per key.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks attempt timestamps per key. Keys are caller-chosen, e.g.
// "login:<email>" or "reset:<email>".
type Limiter struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	maxAttempts int
	window      time.Duration
	cleanup     *time.Ticker
}

type bucket struct {
	attempts []time.Time
	lastSeen time.Time
}

// NewLimiter creates a limiter allowing maxAttempts per window per key and
// starts a background sweep of stale buckets.
func NewLimiter(maxAttempts int, window time.Duration) *Limiter {
	l := &Limiter{
		buckets:     make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		cleanup:     time.NewTicker(5 * time.Minute),
	}
	go l.sweep()
	return l
}

// Allow records an attempt for key and reports whether it is within the
// default limit. An empty key is never throttled.
func (l *Limiter) Allow(key string) bool {
	return l.AllowN(key, l.maxAttempts, l.window)
}

// AllowN is Allow with per-call limits, for operations needing a stricter
// budget than the default.
func (l *Limiter) AllowN(key string, maxAttempts int, window time.Duration) bool {
	if key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}

	cutoff := now.Add(-window)
	kept := b.attempts[:0]
	for _, t := range b.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.attempts = kept
	b.lastSeen = now

	if len(b.attempts) >= maxAttempts {
		return false
	}
	b.attempts = append(b.attempts, now)
	return true
}

// sweep drops buckets idle long enough that their window can't matter.
func (l *Limiter) sweep() {
	for range l.cleanup.C {
		stale := time.Now().Add(-15 * time.Minute)
		l.mu.Lock()
		for key, b := range l.buckets {
			if b.lastSeen.Before(stale) {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

// Stop halts the background sweep.
func (l *Limiter) Stop() {
	l.cleanup.Stop()
}
