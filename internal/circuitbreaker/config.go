package circuitbreaker

import (
	"os"
	"strconv"
	"time"
)

// RedisConfig returns the breaker settings for the tool-result cache, with
// DEEPRESEARCH_CB_REDIS_* environment overrides.
func RedisConfig() Config {
	return fromEnv("REDIS", Config{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		MaxRequests:      5,
		Timeout:          15 * time.Second,
	})
}

// HTTPConfig returns the breaker settings for HTTP tool backends, with
// DEEPRESEARCH_CB_HTTP_* environment overrides.
func HTTPConfig() Config {
	return fromEnv("HTTP", DefaultConfig())
}

func fromEnv(kind string, def Config) Config {
	prefix := "DEEPRESEARCH_CB_" + kind + "_"
	def.MaxRequests = getEnvUint32(prefix+"MAX_REQUESTS", def.MaxRequests)
	def.Timeout = getEnvDuration(prefix+"TIMEOUT", def.Timeout)
	def.FailureThreshold = getEnvUint32(prefix+"FAILURE_THRESHOLD", def.FailureThreshold)
	def.SuccessThreshold = getEnvUint32(prefix+"SUCCESS_THRESHOLD", def.SuccessThreshold)
	return def
}

func getEnvUint32(key string, defaultValue uint32) uint32 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseUint(val, 10, 32); err == nil {
			return uint32(parsed)
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}
