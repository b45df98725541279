// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package command

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Rate limiter defaults.
const (
	// DefaultBurstCapacity is how many attempts a key may make back to back.
	DefaultBurstCapacity = 5

	// DefaultSustainedRate is the refill rate in attempts per second.
	DefaultSustainedRate = 0.2

	// MinSustainedRate is one attempt a minute.
	MinSustainedRate = 1.0 / 60

	DefaultCleanupInterval = 5 * time.Minute
	DefaultKeyMaxAge       = time.Hour
)

// RateLimiterConfig configures a RateLimiter. Zero values take the defaults.
type RateLimiterConfig struct {
	BurstCapacity   int
	SustainedRate   float64
	CleanupInterval time.Duration
	KeyMaxAge       time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles attempts per key, for example
// "account.login:ada@example.com". It is safe for concurrent use.
//
// A background goroutine drops keys idle for longer than KeyMaxAge; Close
// stops it.
type RateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	burst     int
	limit     rate.Limit
	keyMaxAge time.Duration
	now       func() time.Time

	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	keysGauge prometheus.Gauge
}

// NewRateLimiter creates a limiter and starts its cleanup goroutine.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return newRateLimiter(cfg, nil)
}

// NewRateLimiterWithRegistry is NewRateLimiter plus a
// parlor_ratelimiter_keys gauge registered with reg.
func NewRateLimiterWithRegistry(cfg RateLimiterConfig, reg prometheus.Registerer) *RateLimiter {
	return newRateLimiter(cfg, reg)
}

func newRateLimiter(cfg RateLimiterConfig, reg prometheus.Registerer) *RateLimiter {
	burst := cfg.BurstCapacity
	if burst <= 0 {
		burst = DefaultBurstCapacity
	}

	sustained := cfg.SustainedRate
	switch {
	case sustained <= 0:
		sustained = DefaultSustainedRate
	case sustained < MinSustainedRate:
		sustained = MinSustainedRate
	}

	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	maxAge := cfg.KeyMaxAge
	if maxAge <= 0 {
		maxAge = DefaultKeyMaxAge
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	rl := &RateLimiter{
		entries:   make(map[string]*limiterEntry),
		burst:     burst,
		limit:     rate.Limit(sustained),
		keyMaxAge: maxAge,
		now:       now,
		stop:      make(chan struct{}),
	}
	if reg != nil {
		rl.keysGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parlor_ratelimiter_keys",
			Help: "Keys currently tracked by the command rate limiter",
		})
		reg.MustRegister(rl.keysGauge)
	}

	rl.wg.Add(1)
	go rl.cleanupLoop(interval)
	return rl
}

// Allow consumes one attempt for key. When the key is exhausted it returns
// false and the milliseconds until the next attempt is available.
func (rl *RateLimiter) Allow(key string) (allowed bool, cooldownMs int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.entries[key] = e
	}
	e.lastSeen = now

	if e.limiter.AllowN(now, 1) {
		return true, 0
	}
	deficit := 1 - e.limiter.TokensAt(now)
	return false, int64(deficit / float64(rl.limit) * 1000)
}

// KeyCount returns the number of tracked keys.
func (rl *RateLimiter) KeyCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// Cleanup drops keys not seen within maxAge.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxAge)
	for key, e := range rl.entries {
		if e.lastSeen.Before(cutoff) {
			delete(rl.entries, key)
		}
	}
	if rl.keysGauge != nil {
		rl.keysGauge.Set(float64(len(rl.entries)))
	}
}

func (rl *RateLimiter) cleanupLoop(interval time.Duration) {
	defer rl.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.Cleanup(rl.keyMaxAge)
		}
	}
}

// Close stops the cleanup goroutine and waits for it. Calling Close more
// than once is safe.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	rl.wg.Wait()
}
