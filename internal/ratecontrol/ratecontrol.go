// Package ratecontrol paces outbound calls to model and search providers.
package ratecontrol

import (
	"strings"

	"golang.org/x/time/rate"
)

// RateLimit is a requests-per-minute budget with an optional burst.
type RateLimit struct {
	RPM   int `mapstructure:"rpm"`
	Burst int `mapstructure:"burst"`
}

var builtInProviderLimits = map[string]RateLimit{
	"openrouter": {RPM: 20, Burst: 4},
	"openai":     {RPM: 60, Burst: 8},
	"tavily":     {RPM: 100, Burst: 10},
}

// LimitForProvider returns override when it sets an RPM, otherwise the
// built-in limit for provider. Unknown providers are unlimited.
func LimitForProvider(provider string, override RateLimit) RateLimit {
	if override.RPM > 0 {
		return override
	}
	if limit, ok := builtInProviderLimits[strings.ToLower(strings.TrimSpace(provider))]; ok {
		return limit
	}
	return RateLimit{}
}

// NewLimiter builds a token bucket for limit. A non-positive RPM yields an
// unlimited limiter.
func NewLimiter(limit RateLimit) *rate.Limiter {
	if limit.RPM <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := limit.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(limit.RPM)/60.0), burst)
}
