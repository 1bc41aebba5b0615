// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore implements RateLimitStore backed by Redis, sharing
// rate limit state across API instances. It uses a fixed window counter:
// INCR on the key, with the window TTL set on first increment.
//
// The store fails open: if Redis is unreachable, requests are allowed with
// the full quota so a cache outage never takes down the API.
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
	logger  *slog.Logger
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// WithMetrics attaches a metrics sink for fail-open event counting.
func (s *RedisRateLimitStore) WithMetrics(m *Metrics) *RedisRateLimitStore {
	s.metrics = m
	return s
}

// WithLogger attaches a logger for Redis error reporting.
func (s *RedisRateLimitStore) WithLogger(l *slog.Logger) *RedisRateLimitStore {
	s.logger = l
	return s
}

// Allow checks if a request from the given key should be allowed.
// Implements the RateLimitStore interface.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// ExpireNX only sets the TTL when the key has none, so the window never
	// slides on subsequent requests.
	pipe.ExpireNX(ctx, key, config.WindowDuration)

	if _, err := pipe.Exec(ctx); err != nil {
		s.failOpen(err)
		return true, config.RequestsPerWindow, 0
	}

	count := int(incr.Val())
	if count <= config.RequestsPerWindow {
		return true, config.RequestsPerWindow - count, 0
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		s.failOpen(err)
		return true, config.RequestsPerWindow, 0
	}

	retryAfter := int(ttl.Seconds())
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, 0, retryAfter
}

func (s *RedisRateLimitStore) failOpen(err error) {
	if s.metrics != nil {
		s.metrics.IncRateLimitRedisErrors()
	}
	if s.logger != nil {
		s.logger.Warn("rate limit store unavailable, failing open", slog.String("error", err.Error()))
	}
}
