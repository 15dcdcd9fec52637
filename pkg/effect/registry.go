package effect

import (
	"context"
	"sync"

	"effectkit/pkg/effecterrors"
	"effectkit/pkg/txn"
)

// Registry maps effect-type tags to handlers. Registration is
// configuration-time only; Dispatch is safe from concurrent executions.
type Registry struct {
	handlers map[Type]Handler
	mu       sync.RWMutex
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Type]Handler),
	}
}

// Register installs the handler for the given effect type, replacing any
// previous registration.
func (r *Registry) Register(effectType Type, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[effectType] = handler
}

// Registered reports whether a handler exists for the given effect type.
func (r *Registry) Registered(effectType Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.handlers[effectType]
	return exists
}

// Dispatch invokes the handler registered for the effect type.
func (r *Registry) Dispatch(ctx context.Context, effectType Type, data map[string]any, tx *txn.Transaction) (any, error) {
	r.mu.RLock()
	handler, exists := r.handlers[effectType]
	r.mu.RUnlock()

	if !exists {
		return nil, effecterrors.Newf(effecterrors.KindHandlerNotFound,
			"no handler registered for effect type %s", effectType)
	}
	return handler(ctx, data, tx)
}
