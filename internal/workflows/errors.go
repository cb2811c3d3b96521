package workflows

import (
	"errors"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// isCancelled reports whether err (or ctx) reflects cancellation of the run.
func isCancelled(ctx workflow.Context, err error) bool {
	return temporal.IsCanceledError(err) || ctx.Err() != nil
}

// cancellation returns the error a cancelled run should end with: the
// context's own canceled error when available, err otherwise.
func cancellation(ctx workflow.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// withErrorType returns err unchanged when it already carries errType as a
// Temporal application error, otherwise wraps it as a non-retryable one.
func withErrorType(errType string, err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() == errType {
		return err
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
}

// errorType extracts the application error type carried by err, if any.
func errorType(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Type()
	}
	return ""
}
