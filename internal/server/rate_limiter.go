package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	voteLimiterIdleTTL       = time.Hour
	voteLimiterSweepInterval = 10 * time.Minute
)

// voteLimiter keeps one token bucket per client IP. A nil limiter allows everything.
type voteLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	entries   map[string]*voteLimiterEntry
	lastSweep time.Time
	now       func() time.Time
}

type voteLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newVoteLimiter(perMinute int) *voteLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &voteLimiter{
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     perMinute,
		entries:   make(map[string]*voteLimiterEntry),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *voteLimiter) Allow(clientIP string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= voteLimiterSweepInterval {
		l.sweep(now)
	}
	entry, exists := l.entries[clientIP]
	if !exists {
		entry = &voteLimiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[clientIP] = entry
	}
	entry.lastAccess = now
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.AllowN(now, 1)
}

// sweep drops idle buckets; callers hold l.mu.
func (l *voteLimiter) sweep(now time.Time) {
	cutoff := now.Add(-voteLimiterIdleTTL)
	for clientIP, entry := range l.entries {
		if entry.lastAccess.Before(cutoff) {
			delete(l.entries, clientIP)
		}
	}
	l.lastSweep = now
}

func (l *voteLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
