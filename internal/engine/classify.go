package engine

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/Kocoro-lab/Shannon/go/deepresearch/internal/models"
)

var knownKinds = map[string]bool{
	models.ErrTypeConfiguration:      true,
	models.ErrTypeModelBackend:       true,
	models.ErrTypeUnknownTool:        true,
	models.ErrTypeToolExecution:      true,
	models.ErrTypeAggregationFailure: true,
	models.ErrTypeScopeController:    true,
}

// Classify maps a run error onto the user-visible taxonomy. Cancellation of
// any kind unwraps to models.ErrCancelled; Temporal application errors keep
// the type they were raised with; everything else is classified locally.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var runErr *models.RunError
	if errors.As(err, &runErr) {
		return runErr
	}

	if temporal.IsCanceledError(err) || errors.Is(err, context.Canceled) || errors.Is(err, models.ErrCancelled) {
		return &models.RunError{Kind: models.ErrTypeCancelled, Message: "research run cancelled", Cause: models.ErrCancelled}
	}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		kind := appErr.Type()
		if !knownKinds[kind] {
			kind = models.ErrTypeUnknown
		}
		return &models.RunError{Kind: kind, Message: appErr.Message(), Cause: err}
	}

	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		return &models.RunError{Kind: models.ErrTypeModelBackend, Message: "timed out: " + err.Error(), Cause: err}
	}

	return &models.RunError{Kind: models.ErrorType(err), Message: err.Error(), Cause: err}
}
