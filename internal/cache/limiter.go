package cache

import (
	"context"
	"sync"
	"time"

	"github.com/oddsboard/oddsboard/internal/domain"
)

// MemoryLimiter is a process-local sliding-window rate limiter. It mirrors
// the Redis implementation's semantics for single-instance deployments.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time

	now func() time.Time
}

// NewMemoryLimiter creates an empty in-memory rate limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow reports whether a request for key fits under limit requests per
// window, counting it when it does.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := l.now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	times := l.windows[key]
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	times = times[i:]

	if len(times) >= limit {
		l.windows[key] = times
		return false, nil
	}

	l.windows[key] = append(times, now)
	return true, nil
}

// Sweep drops every key whose newest entry is older than maxAge, so the map
// does not grow with the set of client IPs ever seen. maxAge must exceed the
// largest window passed to Allow.
func (l *MemoryLimiter) Sweep(maxAge time.Duration) {
	cutoff := l.now().Add(-maxAge)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, times := range l.windows {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(l.windows, key)
		}
	}
}

// Run sweeps on the given interval until ctx is cancelled. Entries older
// than one interval are dead for any plausible rate window.
func (l *MemoryLimiter) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep(interval)
		}
	}
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

var _ domain.RateLimiter = (*MemoryLimiter)(nil)
