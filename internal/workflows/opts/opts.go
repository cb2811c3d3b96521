package opts

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	DefaultModelTimeout = 5 * time.Minute
	DefaultToolTimeout  = 2 * time.Minute
)

// ModelActivityOptions returns activity options for structured model calls.
// Model calls run exactly once; a failure surfaces to the workflow.
func ModelActivityOptions(timeout time.Duration) workflow.ActivityOptions {
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
}

// ToolActivityOptions returns activity options for tool invocations.
func ToolActivityOptions(timeout time.Duration) workflow.ActivityOptions {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
}

// WithModelOptions applies model activity options to a context
func WithModelOptions(ctx workflow.Context, timeout time.Duration) workflow.Context {
	return workflow.WithActivityOptions(ctx, ModelActivityOptions(timeout))
}

// WithToolOptions applies tool activity options to a context
func WithToolOptions(ctx workflow.Context, timeout time.Duration) workflow.Context {
	return workflow.WithActivityOptions(ctx, ToolActivityOptions(timeout))
}
