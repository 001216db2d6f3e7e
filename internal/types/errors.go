package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for agent core errors.
type ErrorCode string

// Planning error codes
const (
	PLAN_NOT_FOUND ErrorCode = "PLAN_NOT_FOUND"
	MALFORMED_GOAL ErrorCode = "MALFORMED_GOAL"
)

// Execution error codes
const (
	ACTION_FAILED    ErrorCode = "ACTION_FAILED"
	ACTION_CANCELLED ErrorCode = "ACTION_CANCELLED"
	ACTION_UNKNOWN   ErrorCode = "ACTION_UNKNOWN"
)

// Repair error codes
const (
	REPAIR_EXHAUSTED        ErrorCode = "REPAIR_EXHAUSTED"
	CIRCUIT_BREAKER_TRIPPED ErrorCode = "CIRCUIT_BREAKER_TRIPPED"
)

// Gateway error codes
const (
	CAPABILITY_NOT_FOUND ErrorCode = "CAPABILITY_NOT_FOUND"
	GATEWAY_TIMEOUT      ErrorCode = "GATEWAY_TIMEOUT"
	GATEWAY_BUSY         ErrorCode = "GATEWAY_BUSY"
)

// World and model error codes
const (
	STATE_UNAVAILABLE ErrorCode = "STATE_UNAVAILABLE"
	MODEL_INVALID     ErrorCode = "MODEL_INVALID"
)

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
	CONFIG_NOT_FOUND         ErrorCode = "CONFIG_NOT_FOUND"
)

// AgentError represents a structured error with error code, message, and optional cause.
// It supports error wrapping, retryability hints, and diagnostic context attachment.
// Every code in the taxonomy above is recoverable: the tick loop keeps running after
// any of them, so callers use Retryable only as a hint for backoff decisions.
type AgentError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
	Context   map[string]any
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *AgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
func (e *AgentError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is an AgentError with the same Code.
func (e *AgentError) Is(target error) bool {
	var agentErr *AgentError
	if errors.As(target, &agentErr) {
		return e.Code == agentErr.Code
	}
	return false
}

// WithContext attaches a diagnostic key/value pair and returns the error
// for chaining. The context map is created lazily.
func (e *AgentError) WithContext(key string, value any) *AgentError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewError creates a new non-retryable AgentError with the given code and message.
func NewError(code ErrorCode, message string) *AgentError {
	return &AgentError{
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// NewRetryableError creates a new retryable AgentError with the given code and message.
// Use this for transient conditions that may clear on a later tick (a failed dispatch,
// a plan search that ran out of budget).
func NewRetryableError(code ErrorCode, message string) *AgentError {
	return &AgentError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// WrapError creates a new non-retryable AgentError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *AgentError {
	return &AgentError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// WrapRetryableError creates a new retryable AgentError that wraps an existing error.
func WrapRetryableError(code ErrorCode, message string, cause error) *AgentError {
	return &AgentError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) an AgentError.
// Returns the empty code when err carries no AgentError.
func CodeOf(err error) ErrorCode {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Code
	}
	return ""
}

// IsRetryable reports whether err is (or wraps) a retryable AgentError.
func IsRetryable(err error) bool {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Retryable
	}
	return false
}
