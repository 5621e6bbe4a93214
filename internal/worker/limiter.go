package worker

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter implements per-key token bucket rate limiting. Keys are
// provider names for batch pacing and client IPs for the proxy server.
type Limiter struct {
	limiters     map[string]*keyLimiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
	now          func() time.Time
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	pinned   bool // set through SetRate; never evicted
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*keyLimiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
		now:          time.Now,
	}
}

// Wait blocks until a request for key is allowed or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.getLimiter(key).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

// Reserve takes a token for key when one is available now. Otherwise it
// takes nothing and returns how long until the next token.
func (l *Limiter) Reserve(key string) (bool, time.Duration) {
	limiter := l.getLimiter(key)
	now := l.now()

	r := limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Duration(math.MaxInt64)
	}
	delay := r.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	r.CancelAt(now)
	return false, delay
}

// getLimiter returns the rate limiter for a key
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	now := l.now()

	l.mu.RLock()
	entry, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		l.mu.Lock()
		entry.lastSeen = now
		l.mu.Unlock()
		return entry.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if entry, exists := l.limiters[key]; exists {
		entry.lastSeen = now
		return entry.limiter
	}

	entry = &keyLimiter{
		limiter:  rate.NewLimiter(l.defaultRate, l.defaultBurst),
		lastSeen: now,
	}
	l.limiters[key] = entry

	return entry.limiter
}

// SetRate sets a custom rate limit for a specific key
func (l *Limiter) SetRate(key string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[key] = &keyLimiter{
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		lastSeen: l.now(),
		pinned:   true,
	}
}

// Evict drops default-rate keys not seen for longer than idle and returns
// how many were removed
func (l *Limiter) Evict(idle time.Duration) int {
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, entry := range l.limiters {
		if !entry.pinned && entry.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Janitor evicts idle keys every interval until ctx is done
func (l *Limiter) Janitor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Evict(idle)
		}
	}
}

// Len reports how many keys are tracked
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
