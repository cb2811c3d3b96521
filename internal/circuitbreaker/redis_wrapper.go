package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisWrapper guards the Redis commands the tool cache issues.
type RedisWrapper struct {
	client redis.UniversalClient
	cb     *CircuitBreaker
}

// NewRedisWrapper creates a Redis wrapper with circuit breaker
func NewRedisWrapper(client redis.UniversalClient, logger *zap.Logger) *RedisWrapper {
	return &RedisWrapper{
		client: client,
		cb:     NewCircuitBreaker("redis", RedisConfig(), logger),
	}
}

// Ping wraps Redis Ping with circuit breaker
func (rw *RedisWrapper) Ping(ctx context.Context) error {
	err := rw.cb.Execute(ctx, func() error {
		return rw.client.Ping(ctx).Err()
	})
	recordRequest(rw.cb.name, err)
	return err
}

// Get wraps Redis Get. A missing key returns redis.Nil without counting as a
// breaker failure.
func (rw *RedisWrapper) Get(ctx context.Context, key string) (string, error) {
	var val string
	var miss bool
	err := rw.cb.Execute(ctx, func() error {
		v, err := rw.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			miss = true
			return nil
		}
		val = v
		return err
	})
	recordRequest(rw.cb.name, err)
	if err == nil && miss {
		return "", redis.Nil
	}
	return val, err
}

// Set wraps Redis Set with circuit breaker
func (rw *RedisWrapper) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	err := rw.cb.Execute(ctx, func() error {
		return rw.client.Set(ctx, key, value, expiration).Err()
	})
	recordRequest(rw.cb.name, err)
	return err
}

// Close closes the underlying client.
func (rw *RedisWrapper) Close() error {
	return rw.client.Close()
}

// IsCircuitBreakerOpen returns true if the circuit breaker is open
func (rw *RedisWrapper) IsCircuitBreakerOpen() bool {
	return rw.cb.State() == StateOpen
}
