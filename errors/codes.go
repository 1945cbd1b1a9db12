package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Contract errors (local, returned synchronously to the caller)
const (
	// ErrCodeInvalidDemand indicates a non-positive demand request.
	ErrCodeInvalidDemand ErrorCode = "INVALID_DEMAND"
	// ErrCodeInvalidConfig indicates a stage or buffer was built with an invalid configuration.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Link errors (delivered through OnError, terminal)
const (
	// ErrCodeBackpressureViolation indicates a producer outran the granted demand
	// under a strategy or policy that treats that as fatal.
	ErrCodeBackpressureViolation ErrorCode = "BACKPRESSURE_VIOLATION"
	// ErrCodeSourceError indicates a fault raised by the producer itself.
	ErrCodeSourceError ErrorCode = "SOURCE_ERROR"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected failure inside the engine.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var terminalCodes = map[ErrorCode]bool{
	ErrCodeBackpressureViolation: true,
	ErrCodeSourceError:           true,
	ErrCodeInternal:              true,
	ErrCodeInvalidDemand:         false,
	ErrCodeInvalidConfig:         false,
}

// IsTerminalCode returns true if an error with this code ends the link it is raised on.
func IsTerminalCode(code ErrorCode) bool {
	return terminalCodes[code]
}
