package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsWithinWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Capacity: 10, IdleTTL: time.Hour}, func() time.Time { return now })
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Capacity: 10, IdleTTL: time.Hour}, func() time.Time { return now })
	require.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
}

func TestRateLimiter_IndependentPerIP(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Capacity: 10, IdleTTL: time.Hour}, func() time.Time { return now })
	require.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))
}

func TestRateLimiter_Tracked(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Capacity: 10, IdleTTL: time.Hour}, func() time.Time { return now })
	rl.Allow("1.1.1.1")
	rl.Allow("2.2.2.2")
	assert.Equal(t, 2, rl.Tracked())
}

func TestRateLimiter_CapacityEvictsLRU(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Capacity: 1, IdleTTL: time.Hour}, func() time.Time { return now })
	rl.Allow("1.1.1.1")
	rl.Allow("2.2.2.2")
	assert.Equal(t, 1, rl.Tracked())
}

func TestRateLimiter_RunEvictionPurgesIdleBuckets(t *testing.T) {
	cur := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return cur }
	impl := NewRateLimiter(RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Capacity: 10, IdleTTL: time.Millisecond}, clock).(*rateLimiter)
	impl.Allow("1.1.1.1")
	cur = cur.Add(time.Hour)
	impl.evictIdle()
	assert.Equal(t, 0, impl.Tracked())
}
