// Package cache memoizes tool results in Redis so repeated searches across
// researchers and runs do not hit the search backend again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/circuitbreaker"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/metrics"
	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/tools"
)

// Config configures the tool result cache.
type Config struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
	Prefix   string        `mapstructure:"prefix"`
}

// ToolCache stores tool outputs keyed by tool name and arguments. Redis
// failures never fail a tool call: the capability is invoked directly.
type ToolCache struct {
	store  *circuitbreaker.RedisWrapper
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// New wraps an existing client.
func New(client redis.UniversalClient, cfg Config, logger *zap.Logger) *ToolCache {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "deepresearch:tool:"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolCache{
		store:  circuitbreaker.NewRedisWrapper(client, logger),
		ttl:    cfg.TTL,
		prefix: cfg.Prefix,
		logger: logger,
	}
}

// Connect dials Redis and verifies it with a ping.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*ToolCache, error) {
	c := New(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg, logger)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.store.Ping(pingCtx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return c, nil
}

// Close releases the Redis client.
func (c *ToolCache) Close() error { return c.store.Close() }

// Key derives the cache key for a tool invocation. encoding/json sorts map
// keys, so equal argument sets always hash alike.
func (c *ToolCache) Key(tool string, args map[string]interface{}) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(tool+"\x00"), raw...))
	return c.prefix + tool + ":" + hex.EncodeToString(sum[:]), nil
}

// Wrap returns a Capability that serves cached results for tool and stores
// successful fresh ones. An empty search result is never stored.
func (c *ToolCache) Wrap(tool string, capability tools.Capability) tools.Capability {
	return tools.CapabilityFunc(func(ctx context.Context, args map[string]interface{}) (string, error) {
		key, err := c.Key(tool, args)
		if err != nil {
			return capability.Invoke(ctx, args)
		}

		if cached, ok := c.get(ctx, key); ok {
			metrics.CacheHits.WithLabelValues(tool).Inc()
			return cached, nil
		}
		metrics.CacheMisses.WithLabelValues(tool).Inc()

		out, err := capability.Invoke(ctx, args)
		if err != nil {
			return "", err
		}
		if out != tools.NoResultsMessage {
			c.set(ctx, key, out)
		}
		return out, nil
	})
}

func (c *ToolCache) get(ctx context.Context, key string) (string, bool) {
	val, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("Tool cache read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return val, true
}

func (c *ToolCache) set(ctx context.Context, key, val string) {
	if err := c.store.Set(ctx, key, val, c.ttl); err != nil {
		c.logger.Debug("Tool cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Store exposes the guarded Redis client for health checks.
func (c *ToolCache) Store() *circuitbreaker.RedisWrapper { return c.store }
