// Package errors provides the structured error type shared by the stream
// engine. Every failure carries a machine-readable code so callers can tell
// contract violations raised at the call site (invalid demand, invalid
// configuration) from failures that terminate a link (backpressure
// violations, producer faults).
package errors
