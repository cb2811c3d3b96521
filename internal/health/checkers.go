package health

import (
	"context"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/circuitbreaker"
)

// slowThreshold marks a responding dependency as degraded.
const slowThreshold = 100 * time.Millisecond

// RedisHealthChecker probes the tool-result cache. The cache is optional, so
// the check is not critical.
type RedisHealthChecker struct {
	store   *circuitbreaker.RedisWrapper
	timeout time.Duration
}

func NewRedisHealthChecker(store *circuitbreaker.RedisWrapper) *RedisHealthChecker {
	return &RedisHealthChecker{store: store, timeout: 2 * time.Second}
}

func (r *RedisHealthChecker) Name() string           { return "redis" }
func (r *RedisHealthChecker) IsCritical() bool       { return false }
func (r *RedisHealthChecker) Timeout() time.Duration { return r.timeout }

func (r *RedisHealthChecker) Check(ctx context.Context) CheckResult {
	if r.store.IsCircuitBreakerOpen() {
		return CheckResult{Status: StatusUnhealthy, Message: "Redis circuit breaker is open"}
	}
	start := time.Now()
	if err := r.store.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: "Redis ping failed", Error: err.Error()}
	}
	if time.Since(start) > slowThreshold {
		return CheckResult{Status: StatusDegraded, Message: "Redis responding with high latency"}
	}
	return CheckResult{Status: StatusHealthy, Message: "Redis healthy"}
}

// TemporalHealthChecker probes the Temporal frontend the worker polls.
type TemporalHealthChecker struct {
	client  client.Client
	timeout time.Duration
}

func NewTemporalHealthChecker(c client.Client) *TemporalHealthChecker {
	return &TemporalHealthChecker{client: c, timeout: 5 * time.Second}
}

func (t *TemporalHealthChecker) Name() string           { return "temporal" }
func (t *TemporalHealthChecker) IsCritical() bool       { return true }
func (t *TemporalHealthChecker) Timeout() time.Duration { return t.timeout }

func (t *TemporalHealthChecker) Check(ctx context.Context) CheckResult {
	if _, err := t.client.CheckHealth(ctx, &client.CheckHealthRequest{}); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: "Temporal health check failed", Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "Temporal healthy"}
}

// CustomHealthChecker adapts a function into a Checker.
type CustomHealthChecker struct {
	name     string
	critical bool
	timeout  time.Duration
	checkFn  func(ctx context.Context) CheckResult
}

func NewCustomHealthChecker(name string, critical bool, timeout time.Duration, checkFn func(ctx context.Context) CheckResult) *CustomHealthChecker {
	return &CustomHealthChecker{name: name, critical: critical, timeout: timeout, checkFn: checkFn}
}

func (c *CustomHealthChecker) Name() string                          { return c.name }
func (c *CustomHealthChecker) IsCritical() bool                      { return c.critical }
func (c *CustomHealthChecker) Timeout() time.Duration                { return c.timeout }
func (c *CustomHealthChecker) Check(ctx context.Context) CheckResult { return c.checkFn(ctx) }
