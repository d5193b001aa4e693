package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisDialTimeout  = 5 * time.Second
	redisOpTimeout    = 3 * time.Second
	redisPoolSize     = 10
	redisMinIdleConns = 2
)

// RedisClient wraps the shared Redis connection used for distributed rate
// limiting. A client may be disabled: either no address was configured or
// the initial ping failed. Callers check IsEnabled and fall back to the
// in-memory limiter.
type RedisClient struct {
	client  *redis.Client
	enabled bool
	addr    string
}

// NewRedisClient connects to Redis. It always returns a usable value; on
// failure the client is disabled and the error reported alongside it so
// the process can keep running on the fallback limiter.
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	if addr == "" {
		slog.Warn("No Redis address configured, rate limiting stays in-memory")
		return &RedisClient{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisOpTimeout,
		WriteTimeout: redisOpTimeout,
		PoolSize:     redisPoolSize,
		MinIdleConns: redisMinIdleConns,
		PoolTimeout:  redisDialTimeout - time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return &RedisClient{addr: addr}, fmt.Errorf("redis ping failed: %w", err)
	}

	slog.Info("Redis connected for distributed rate limiting", "addr", addr, "db", db)
	return &RedisClient{client: client, enabled: true, addr: addr}, nil
}

// IsEnabled reports whether the Redis path is usable.
func (r *RedisClient) IsEnabled() bool {
	return r.enabled
}

// GetClient returns the underlying go-redis client.
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

// Close releases the connection pool. Safe on a disabled client.
func (r *RedisClient) Close() error {
	if !r.enabled || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// GetPoolStats reports connection pool health for the /health endpoint.
func (r *RedisClient) GetPoolStats() map[string]interface{} {
	if !r.enabled || r.client == nil {
		return map[string]interface{}{"enabled": false}
	}

	stats := r.client.PoolStats()
	return map[string]interface{}{
		"enabled":     true,
		"addr":        r.addr,
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
