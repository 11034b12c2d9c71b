package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter for outbound completion requests.
// It admits at most maxRequests calls inside any trailing window. State is
// process-local and resets on restart; there is no cross-process coordination.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	admissions  []time.Time

	// now is swappable for tests
	now func() time.Time
}

// New creates a Limiter admitting maxRequests calls per window.
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Wait blocks until one more admission would not exceed the limit, then
// records the admission. It returns early with the context's error if the
// context is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve()
		if wait <= 0 {
			return nil
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// reserve either records an admission (returning 0) or returns how long the
// caller must wait for the oldest retained admission to leave the window.
// The caller re-checks after sleeping; a competing waiter may have taken the
// freed slot in the meantime.
func (l *Limiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	l.admissions = pruneBefore(l.admissions, cutoff)

	if len(l.admissions) < l.maxRequests {
		l.admissions = append(l.admissions, now)
		return 0
	}

	return l.admissions[0].Add(l.window).Sub(now)
}

// pruneBefore drops entries at or before the cutoff. Entries are appended in
// time order, so the first retained index bounds the rest.
func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return times
	}
	return append(times[:0], times[i:]...)
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
