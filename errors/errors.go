package errors

import (
	"fmt"
)

// AppError is the unified error type of the engine.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Terminal reports whether the error ends the link it was raised on.
	Terminal bool `json:"terminal"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError by code, so sentinel values work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic terminal detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Terminal: IsTerminalCode(code),
	}
}

// Sentinel values for errors.Is comparisons by code.
var (
	ErrInvalidDemand         = &AppError{Code: ErrCodeInvalidDemand}
	ErrInvalidConfig         = &AppError{Code: ErrCodeInvalidConfig}
	ErrBackpressureViolation = &AppError{Code: ErrCodeBackpressureViolation}
	ErrSourceError           = &AppError{Code: ErrCodeSourceError}
)

// --- Constructors ---

// InvalidDemand creates an error for a request of n <= 0 items.
func InvalidDemand(n int64) *AppError {
	return &AppError{
		Code: ErrCodeInvalidDemand, Message: fmt.Sprintf("demand must be positive (got: %d)", n),
		Terminal: false,
		Details:  map[string]any{"requested": n},
	}
}

// InvalidConfig creates an error for a rejected configuration value.
func InvalidConfig(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidConfig, Message: fmt.Sprintf("invalid configuration: %s", reason),
		Terminal: false, Details: details,
	}
}

// BackpressureViolation creates an error for a producer that outran its demand.
func BackpressureViolation(stage, reason string) *AppError {
	return &AppError{
		Code: ErrCodeBackpressureViolation, Message: reason,
		Terminal: true,
		Details:  map[string]any{"stage": stage},
	}
}

// SourceError wraps a fault raised by a producer.
func SourceError(cause error) *AppError {
	msg := "source failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{
		Code: ErrCodeSourceError, Message: msg,
		Terminal: true, Cause: cause,
	}
}

// Internal creates an error for an unexpected engine failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		Terminal: true, Cause: cause,
	}
}
