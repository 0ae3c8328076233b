// Package ratelimit provides a keyed rate limiter using token bucket algorithm.
// It is used to keep repetitive log lines (a watcher reporting the same
// failure in a tight loop) from flooding the output.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// KeyedRateLimiter manages per-key rate limiting.
// Each unique key gets its own independent rate limiter.
type KeyedRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
}

type entry struct {
	limiter    *rate.Limiter
	suppressed int
}

// New creates a new keyed rate limiter.
// rps: events per second allowed.
// burst: maximum burst size (tokens available immediately).
func New(rps float64, burst int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether an event for key may proceed now. When it may,
// suppressed is the number of events for key refused since the last allowed one.
func (krl *KeyedRateLimiter) Allow(key string) (ok bool, suppressed int) {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	e, exists := krl.entries[key]
	if !exists {
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.entries[key] = e
	}

	if !e.limiter.Allow() {
		e.suppressed++
		return false, 0
	}

	suppressed, e.suppressed = e.suppressed, 0
	return true, suppressed
}
