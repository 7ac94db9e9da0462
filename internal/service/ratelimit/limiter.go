package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New allows burst events at once and one event per interval afterwards.
// A non-positive interval disables limiting.
func New(interval time.Duration, burst int) *Limiter {
	l := rate.Inf
	if interval > 0 {
		l = rate.Every(interval)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiters: make(map[string]*rate.Limiter), limit: l, burst: burst}
}

// PerSecond allows n events per second per key. n <= 0 disables limiting.
func PerSecond(n float64, burst int) *Limiter {
	if n <= 0 {
		return New(0, burst)
	}
	return New(time.Duration(float64(time.Second)/n), burst)
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[key]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.limit, l.burst)
	l.limiters[key] = lim
	return lim
}

// Allow reports whether an event for key may happen now.
func (l *Limiter) Allow(key string) bool {
	if l.limit == rate.Inf {
		return true
	}
	return l.get(key).Allow()
}

// AllowAt is Allow with an explicit clock, used by tests.
func (l *Limiter) AllowAt(key string, now time.Time) bool {
	if l.limit == rate.Inf {
		return true
	}
	return l.get(key).AllowN(now, 1)
}
