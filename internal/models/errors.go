package models

import (
	"errors"
	"fmt"
)

// Error types. The same strings are used as Temporal application error types
// so a failure keeps its kind across the activity and child-workflow boundary.
const (
	ErrTypeConfiguration      = "ConfigurationError"
	ErrTypeModelBackend       = "ModelBackendError"
	ErrTypeUnknownTool        = "UnknownTool"
	ErrTypeToolExecution      = "ToolExecutionError"
	ErrTypeAggregationFailure = "AggregationFailure"
	ErrTypeScopeController    = "ScopeControllerError"
	ErrTypeCancelled          = "Cancelled"
	ErrTypeUnknown            = "Unknown"
)

var (
	// ErrUnknownTool is returned when a tool name is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrCancelled is returned when a run is cancelled while work is in flight.
	ErrCancelled = errors.New("research run cancelled")
)

// ConfigurationError is fatal and raised before any network call.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

// ModelBackendError wraps a transport, auth or parse failure of a structured call.
type ModelBackendError struct {
	Op  string
	Err error
}

func (e *ModelBackendError) Error() string {
	return fmt.Sprintf("model backend %s: %v", e.Op, e.Err)
}

func (e *ModelBackendError) Unwrap() error { return e.Err }

// ToolExecutionError wraps the failure of a registered tool capability.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// RunError is the user-visible form of a failed run.
type RunError struct {
	Kind    string
	Message string
	Cause   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RunError) Unwrap() error { return e.Cause }

// ErrorType reports the taxonomy entry for err, or ErrTypeUnknown.
func ErrorType(err error) string {
	var cfgErr *ConfigurationError
	var modelErr *ModelBackendError
	var toolErr *ToolExecutionError
	var runErr *RunError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &runErr):
		return runErr.Kind
	case errors.Is(err, ErrCancelled):
		return ErrTypeCancelled
	case errors.As(err, &cfgErr):
		return ErrTypeConfiguration
	case errors.Is(err, ErrUnknownTool):
		return ErrTypeUnknownTool
	case errors.As(err, &toolErr):
		return ErrTypeToolExecution
	case errors.As(err, &modelErr):
		return ErrTypeModelBackend
	default:
		return ErrTypeUnknown
	}
}
