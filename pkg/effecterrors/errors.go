// Package effecterrors provides structured error classification for effect
// execution. Every failure returned by the engine carries enough context for
// callers to distinguish "never started" from "tried and exhausted retries".
package effecterrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind represents the category of an effect execution failure.
type Kind int8

const (
	// KindValidation represents a malformed request (unknown effect type,
	// non-mapping operation data). Fails fast before any side effect.
	KindValidation Kind = iota
	// KindCircuitOpen represents a fail-fast denial by the dependency's
	// circuit breaker. The handler is never invoked.
	KindCircuitOpen
	// KindHandlerNotFound represents a request for an effect type with no
	// registered handler.
	KindHandlerNotFound
	// KindResourceUnavailable represents a missing external resource, such
	// as a file read on a path that does not exist.
	KindResourceUnavailable
	// KindOperationFailed wraps any handler-raised error after retries are
	// exhausted.
	KindOperationFailed
	// KindTimeout represents a request whose deadline elapsed before the
	// handler completed.
	KindTimeout
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCircuitOpen:
		return "circuit_open"
	case KindHandlerNotFound:
		return "handler_not_found"
	case KindResourceUnavailable:
		return "resource_unavailable"
	case KindOperationFailed:
		return "operation_failed"
	case KindTimeout:
		return "timeout"
	default:
		return "invalid"
	}
}

// Error represents a classified effect failure with execution context.
type Error struct {
	Err              error         // Wrapped underlying cause
	Message          string        // Human-readable error message
	NodeID           string        // Engine instance that ran the request
	OperationID      string        // Unique id of the failed operation
	EffectType       string        // Effect type tag of the request
	TransactionState string        // Transaction state at failure, if any
	ProcessingTime   time.Duration // Elapsed time when the failure surfaced
	RetryCount       int           // Retries performed before giving up
	Kind             Kind          // Classified failure kind
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("effect error (%s): %s", e.Kind.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("effect error (%s): %v", e.Kind.String(), e.Err)
	}
	return fmt.Sprintf("effect error (%s)", e.Kind.String())
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether this failure kind is subject to the retry loop.
// Validation and circuit denials are local, immediate, non-retried failures.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindValidation, KindCircuitOpen, KindHandlerNotFound, KindTimeout:
		return false
	default:
		return true
	}
}

// Is checks if an error is of a specific kind.
func Is(err error, kind Kind) bool {
	var effErr *Error
	if errors.As(err, &effErr) {
		return effErr.Kind == kind
	}
	return false
}

// KindOf returns the kind of an error, or KindOperationFailed if not classified.
func KindOf(err error) Kind {
	var effErr *Error
	if errors.As(err, &effErr) {
		return effErr.Kind
	}
	return KindOperationFailed
}

// New creates a new classified effect error.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Newf creates a new classified effect error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithCause creates a new classified effect error wrapping another error.
func WithCause(kind Kind, cause error, message string) *Error {
	return &Error{
		Kind:    kind,
		Err:     cause,
		Message: message,
	}
}
