package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

const maxDialDelay = 15 * time.Second

// DialOptions locates the Temporal frontend.
type DialOptions struct {
	HostPort  string
	Namespace string
	// Attempts bounds the dial retries; zero retries until ctx is done.
	Attempts int
}

// Dial connects to Temporal, backing off linearly between attempts.
func Dial(ctx context.Context, opts DialOptions, logger *zap.Logger) (client.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var lastErr error
	for attempt := 1; opts.Attempts == 0 || attempt <= opts.Attempts; attempt++ {
		c, err := client.Dial(client.Options{
			HostPort:  opts.HostPort,
			Namespace: opts.Namespace,
			Logger:    NewZapAdapter(logger),
		})
		if err == nil {
			return c, nil
		}
		lastErr = err

		delay := retryDelay(attempt)
		logger.Warn("Temporal not ready, retrying",
			zap.Int("attempt", attempt),
			zap.String("host", opts.HostPort),
			zap.Duration("sleep", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("dial temporal %s: %w", opts.HostPort, ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("dial temporal %s after %d attempts: %w", opts.HostPort, opts.Attempts, lastErr)
}

func retryDelay(attempt int) time.Duration {
	delay := time.Duration(attempt) * time.Second
	if delay > maxDialDelay {
		return maxDialDelay
	}
	return delay
}
