package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalis-labs/vitalis-pulse/internal/monitoring"
)

func TestRateLimiterFallbackMode(t *testing.T) {
	redisClient := &RedisClient{enabled: false}
	config := Config{
		IPLimitPerMin:   3,
		BurstMultiplier: 1,
	}
	metrics := monitoring.NewMetrics()

	limiter := NewRateLimiter(redisClient, config, metrics)

	ctx := context.Background()

	// The fallback bucket enforces a minimum burst of 5.
	allowed := 0
	for i := 0; i < 20; i++ {
		result, err := limiter.AllowIP(ctx, "10.0.0.1")
		require.NoError(t, err)
		if result.Allowed {
			allowed++
		}
		assert.Equal(t, 3, result.Limit)
	}

	assert.GreaterOrEqual(t, allowed, 3, "should allow at least the configured limit")
	assert.Less(t, allowed, 20, "should eventually block")
}

func TestRateLimiterBlockedResultHasRetryAfter(t *testing.T) {
	redisClient := &RedisClient{enabled: false}
	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(redisClient, Config{IPLimitPerMin: 1, BurstMultiplier: 1}, metrics)

	ctx := context.Background()

	var blocked *Result
	for i := 0; i < 30; i++ {
		result, err := limiter.AllowIP(ctx, "10.0.0.2")
		require.NoError(t, err)
		if !result.Allowed {
			blocked = result
			break
		}
	}

	require.NotNil(t, blocked, "limiter never blocked")
	assert.Greater(t, blocked.RetryAfter, time.Duration(0))
	assert.Equal(t, 0, blocked.Remaining)
}

func TestRateLimiterIndependentKeys(t *testing.T) {
	redisClient := &RedisClient{enabled: false}
	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(redisClient, DefaultConfig(), metrics)

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ip := fmt.Sprintf("192.168.1.%d", i)
		result, err := limiter.AllowIP(ctx, ip)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "first request for %s should be allowed", ip)
	}

	stats := limiter.GetStats()
	assert.False(t, stats["redis_enabled"].(bool))
	assert.Equal(t, 3, stats["fallback_limiters"].(int))
}

func TestRateLimiterConcurrency(t *testing.T) {
	redisClient := &RedisClient{enabled: false}
	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(redisClient, DefaultConfig(), metrics)

	ctx := context.Background()

	done := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				_, err := limiter.AllowIP(ctx, "10.1.1.1")
				assert.NoError(t, err)
			}
			done <- true
		}()
	}

	for i := 0; i < 50; i++ {
		<-done
	}
}
