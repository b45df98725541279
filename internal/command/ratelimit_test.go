// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package command

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLimiter(t *testing.T, cfg RateLimiterConfig) (*RateLimiter, *manualClock) {
	t.Helper()
	clock := &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg.Now = clock.Now
	rl := NewRateLimiter(cfg)
	t.Cleanup(rl.Close)
	return rl, clock
}

func TestNewRateLimiter(t *testing.T) {
	t.Run("creates limiter with default values", func(t *testing.T) {
		rl, _ := newLimiter(t, RateLimiterConfig{})
		assert.Equal(t, DefaultBurstCapacity, rl.burst)
		assert.Equal(t, rate.Limit(DefaultSustainedRate), rl.limit)
	})

	t.Run("creates limiter with custom values", func(t *testing.T) {
		rl, _ := newLimiter(t, RateLimiterConfig{BurstCapacity: 20, SustainedRate: 5.0})
		assert.Equal(t, 20, rl.burst)
		assert.Equal(t, rate.Limit(5), rl.limit)
	})

	t.Run("negative values use defaults", func(t *testing.T) {
		rl, _ := newLimiter(t, RateLimiterConfig{BurstCapacity: -5, SustainedRate: -1})
		assert.Equal(t, DefaultBurstCapacity, rl.burst)
		assert.Equal(t, rate.Limit(DefaultSustainedRate), rl.limit)
	})

	t.Run("tiny rate is raised to minimum", func(t *testing.T) {
		rl, _ := newLimiter(t, RateLimiterConfig{SustainedRate: 0.0001})
		assert.Equal(t, rate.Limit(MinSustainedRate), rl.limit)
	})
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("allows attempts up to burst capacity", func(t *testing.T) {
		rl, _ := newLimiter(t, RateLimiterConfig{BurstCapacity: 3, SustainedRate: 1.0})

		for i := 0; i < 3; i++ {
			allowed, cooldown := rl.Allow("k")
			assert.True(t, allowed)
			assert.Equal(t, int64(0), cooldown)
		}

		allowed, cooldown := rl.Allow("k")
		assert.False(t, allowed)
		assert.Greater(t, cooldown, int64(0))
	})

	t.Run("returns correct cooldown time", func(t *testing.T) {
		rl, _ := newLimiter(t, RateLimiterConfig{BurstCapacity: 1, SustainedRate: 2.0})

		allowed, _ := rl.Allow("k")
		require.True(t, allowed)

		allowed, cooldownMs := rl.Allow("k")
		assert.False(t, allowed)
		assert.Equal(t, int64(500), cooldownMs)
	})

	t.Run("different keys have independent limits", func(t *testing.T) {
		rl, _ := newLimiter(t, RateLimiterConfig{BurstCapacity: 1, SustainedRate: 1.0})

		allowed, _ := rl.Allow("a@example.com")
		require.True(t, allowed)
		allowed, _ = rl.Allow("a@example.com")
		assert.False(t, allowed)

		allowed, _ = rl.Allow("b@example.com")
		assert.True(t, allowed)
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		rl, clock := newLimiter(t, RateLimiterConfig{BurstCapacity: 1, SustainedRate: 1.0})

		allowed, _ := rl.Allow("k")
		require.True(t, allowed)
		allowed, _ = rl.Allow("k")
		assert.False(t, allowed)

		clock.Advance(time.Second)
		allowed, _ = rl.Allow("k")
		assert.True(t, allowed)
	})

	t.Run("tokens do not exceed burst capacity", func(t *testing.T) {
		rl, clock := newLimiter(t, RateLimiterConfig{BurstCapacity: 2, SustainedRate: 1.0})

		rl.Allow("k")
		rl.Allow("k")
		clock.Advance(time.Hour)

		allowed, _ := rl.Allow("k")
		assert.True(t, allowed)
		allowed, _ = rl.Allow("k")
		assert.True(t, allowed)
		allowed, _ = rl.Allow("k")
		assert.False(t, allowed)
	})
}

func TestRateLimiter_Cleanup(t *testing.T) {
	t.Run("removes stale keys", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		clock := &manualClock{now: time.Now()}
		rl := NewRateLimiterWithRegistry(RateLimiterConfig{Now: clock.Now}, reg)
		t.Cleanup(rl.Close)

		rl.Allow("a")
		rl.Allow("b")
		assert.Equal(t, 2, rl.KeyCount())

		clock.Advance(time.Minute)
		rl.Cleanup(time.Second)
		assert.Equal(t, 0, rl.KeyCount())
		assert.Equal(t, 0.0, testutil.ToFloat64(rl.keysGauge))
	})

	t.Run("keeps recent keys", func(t *testing.T) {
		rl, _ := newLimiter(t, RateLimiterConfig{})
		rl.Allow("a")
		rl.Cleanup(time.Hour)
		assert.Equal(t, 1, rl.KeyCount())
	})
}

func TestRateLimiter_CloseStopsCleanup(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewRateLimiter(RateLimiterConfig{CleanupInterval: time.Millisecond})
	rl.Allow("a")
	rl.Close()
	rl.Close()
}

func TestRateLimiter_Concurrency(t *testing.T) {
	rl, _ := newLimiter(t, RateLimiterConfig{BurstCapacity: 100, SustainedRate: 10.0})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				rl.Allow("k")
			}
		}()
	}
	wg.Wait()

	// the clock never advances, so exactly burst capacity attempts succeeded
	allowed, _ := rl.Allow("k")
	assert.False(t, allowed)
}
