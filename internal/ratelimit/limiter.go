// Package ratelimit guards the diagnostics API with per-client token
// buckets. Limits are local to the process; the diagnostics server is a
// single instance, so distributed accounting would buy nothing.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config shapes the per-client budget.
type Config struct {
	Enabled           bool
	RequestsPerSecond int
	Burst             int

	// MaxClients caps the bucket map; IdleTTL controls when an unused
	// client's bucket is dropped.
	MaxClients int
	IdleTTL    time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out tokens per client key, creating buckets on first sight
// and sweeping idle ones as a side effect of Allow.
type Limiter struct {
	mu        sync.Mutex
	cfg       Config
	buckets   map[string]*bucket
	lastSweep time.Time
}

// New creates a limiter. Zero values fall back to a budget sized for an
// operator poking at the API, not for serving traffic.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 50
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 2 * cfg.RequestsPerSecond
	}
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = 1000
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 3 * time.Minute
	}

	return &Limiter{
		cfg:       cfg,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// Allow reports whether the client may proceed and consumes one token when
// it may.
func (l *Limiter) Allow(clientKey string) bool {
	if l == nil || !l.cfg.Enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > l.cfg.IdleTTL {
		l.sweep(now)
	}

	b, ok := l.buckets[clientKey]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.buckets[clientKey] = b
		if len(l.buckets) > l.cfg.MaxClients {
			l.sweep(now)
		}
	}
	b.lastSeen = now

	return b.limiter.Allow()
}

// Limit returns the configured steady-state rate for response headers.
func (l *Limiter) Limit() int {
	if l == nil {
		return 0
	}
	return l.cfg.RequestsPerSecond
}

// sweep drops buckets idle past IdleTTL. Callers hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	cutoff := now.Add(-l.cfg.IdleTTL)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}
