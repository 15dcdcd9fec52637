// Package effect provides the core abstractions for managed side-effect
// execution: typed requests, handler dispatch, and the tagged result union.
package effect

import (
	"context"
	"time"

	"effectkit/pkg/config"
	"effectkit/pkg/txn"
)

// Type is the tag selecting which handler processes a request.
type Type string

// Built-in effect types.
const (
	TypeFileOperation Type = "FILE_OPERATION"
	TypeEventEmission Type = "EVENT_EMISSION"
)

// Valid reports whether the type is a recognized tag. Registering a handler
// for a custom type makes that type recognized.
func (t Type) Valid() bool {
	switch t {
	case TypeFileOperation, TypeEventEmission:
		return true
	default:
		return false
	}
}

// Handler executes one effect. The transaction is nil when the request ran
// without one; handlers that apply undoable operations register compensating
// actions on it.
type Handler func(ctx context.Context, data map[string]any, tx *txn.Transaction) (any, error)

// Request is the immutable input to one effect execution. Zero-valued policy
// fields are filled from configuration defaults by Normalize.
type Request struct {
	// EffectType selects the handler.
	EffectType Type
	// OperationID uniquely identifies this execution. Generated when empty.
	OperationID string
	// OperationData is the opaque payload interpreted by the handler.
	OperationData map[string]any
	// TransactionEnabled opens a transaction around the execution.
	TransactionEnabled bool
	// RetryEnabled retries failed handler invocations with backoff.
	RetryEnabled bool
	// MaxRetries bounds retries after the initial attempt.
	MaxRetries int
	// RetryDelay is the base backoff delay before the first retry.
	RetryDelay time.Duration
	// CircuitBreakerEnabled consults the per-type breaker before executing.
	CircuitBreakerEnabled bool
	// Timeout bounds the execution end-to-end.
	Timeout time.Duration
}

// Normalize returns a copy of the request with unset policy fields filled
// from the engine configuration.
func (r Request) Normalize(cfg *config.EngineConfig) Request {
	if r.MaxRetries < 0 {
		r.MaxRetries = 0
	}
	if r.RetryEnabled && r.MaxRetries == 0 {
		r.MaxRetries = cfg.DefaultMaxRetries
	}
	if r.RetryDelay <= 0 {
		r.RetryDelay = cfg.DefaultRetryDelay()
	}
	if r.Timeout <= 0 {
		r.Timeout = cfg.DefaultTimeout()
	}
	return r
}
