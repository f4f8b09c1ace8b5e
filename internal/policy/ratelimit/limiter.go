// Package ratelimit throttles batch submissions per owner with token buckets.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/crawlhub/internal/metrics"
)

// maxTrackedOwners bounds the limiter map. Past it, owners whose bucket has
// refilled are dropped.
const maxTrackedOwners = 10_000

// Limiter manages per-owner rate limits.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// Config holds rate limiter configuration. A non-positive RPS disables
// limiting.
type Config struct {
	RPS   float64
	Burst int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// Allow reports whether owner may submit another batch now, consuming a
// token if so.
func (l *Limiter) Allow(owner string) bool {
	if l.rate == rate.Inf {
		return true
	}
	l.mu.Lock()
	limiter, exists := l.limiters[owner]
	if !exists {
		if len(l.limiters) >= maxTrackedOwners {
			l.pruneLocked()
		}
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[owner] = limiter
	}
	l.mu.Unlock()

	if !limiter.Allow() {
		metrics.ObserveRateLimited()
		return false
	}
	return true
}

// Tracked returns the number of owners with live buckets.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *Limiter) pruneLocked() {
	for owner, limiter := range l.limiters {
		if limiter.Tokens() >= float64(l.burst) {
			delete(l.limiters, owner)
		}
	}
}
