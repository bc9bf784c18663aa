package sms

import (
	"context"
	"sync"
	"time"
)

const (
	windowMinute = time.Minute
	windowHour   = time.Hour
	windowDay    = 24 * time.Hour
)

// Limits are per-destination caps for each fixed window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

func DefaultLimits() Limits {
	return Limits{PerMinute: 10, PerHour: 100, PerDay: 1000}
}

type bucketKey struct {
	dest   string
	window time.Duration
	bucket int64
}

// RateLimiter counts successful sends per destination in fixed minute, hour
// and day buckets. Buckets are keyed by unixSeconds/windowSeconds, so
// counters reset at window boundaries rather than sliding; up to twice
// the nominal cap can pass across a boundary.
//
// Admit never increments; Record is called separately after a successful
// carrier accept. Safe for concurrent use.
type RateLimiter struct {
	limits Limits

	mu     sync.Mutex
	counts map[bucketKey]int

	now func() time.Time
}

func NewRateLimiter(limits Limits) *RateLimiter {
	return &RateLimiter{
		limits: limits,
		counts: make(map[bucketKey]int),
		now:    time.Now,
	}
}

// Start launches the background pruning loop. It stops when ctx is canceled.
func (l *RateLimiter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.prune(l.now())
			}
		}
	}()
}

// Admit reports whether one more send to dest fits in all three windows.
// The second return value names the exhausted window when rejected.
func (l *RateLimiter) Admit(dest string) (bool, string) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	checks := []struct {
		window time.Duration
		cap    int
		reason string
	}{
		{windowMinute, l.limits.PerMinute, "per-minute limit reached"},
		{windowHour, l.limits.PerHour, "per-hour limit reached"},
		{windowDay, l.limits.PerDay, "per-day limit reached"},
	}
	for _, c := range checks {
		if l.counts[l.key(dest, c.window, now)] >= c.cap {
			return false, c.reason
		}
	}
	return true, ""
}

// Record increments all three window counters for dest. Called only after
// the carrier accepted the message.
func (l *RateLimiter) Record(dest string) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, w := range []time.Duration{windowMinute, windowHour, windowDay} {
		l.counts[l.key(dest, w, now)]++
	}
}

func (l *RateLimiter) key(dest string, window time.Duration, now time.Time) bucketKey {
	return bucketKey{
		dest:   dest,
		window: window,
		bucket: now.Unix() / int64(window/time.Second),
	}
}

// prune drops every bucket whose window has ended
func (l *RateLimiter) prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k := range l.counts {
		windowSec := int64(k.window / time.Second)
		bucketEnd := (k.bucket + 1) * windowSec
		if bucketEnd <= now.Unix() {
			delete(l.counts, k)
		}
	}
}
