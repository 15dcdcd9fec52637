package txn

import (
	"context"
	"fmt"
	"sync"

	"effectkit/pkg/logx"
)

// Registry owns the active transactions, keyed by operation id. Transactions
// are removed on commit or rollback; at shutdown any still-active
// transactions are rolled back best-effort.
type Registry struct {
	active map[string]*Transaction
	logger *logx.Logger
	mu     sync.Mutex
}

// NewRegistry creates an empty transaction registry.
func NewRegistry() *Registry {
	return &Registry{
		active: make(map[string]*Transaction),
		logger: logx.NewLogger("txn"),
	}
}

// Begin creates a transaction for the given operation id, transitions it
// PENDING -> ACTIVE, and registers it. An empty id gets a generated one.
func (r *Registry) Begin(id string) (*Transaction, error) {
	tx := newTransaction(id, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[tx.id]; exists {
		return nil, fmt.Errorf("transaction %s already active", tx.id)
	}
	tx.state = StateActive
	r.active[tx.id] = tx
	r.logger.Debug("Transaction %s started", tx.id)
	return tx, nil
}

// Commit marks the transaction committed and removes it from the registry.
// No rollback action is executed.
func (r *Registry) Commit(tx *Transaction) error {
	if tx.state != StateActive {
		return fmt.Errorf("cannot commit transaction %s in state %s", tx.id, tx.state)
	}

	tx.commit()
	r.remove(tx.id)
	r.logger.Debug("Transaction %s committed (%d operations)", tx.id, len(tx.operations))
	return nil
}

// Rollback runs the transaction's compensating actions in reverse order and
// removes it from the registry. Individual action failures are logged and
// swallowed so the caller always sees the original triggering error, never a
// secondary rollback error.
func (r *Registry) Rollback(tx *Transaction) {
	if tx.state != StateActive {
		r.logger.Warn("Rollback requested for transaction %s in state %s", tx.id, tx.state)
		return
	}

	tx.rollback()
	r.remove(tx.id)
	r.logger.Info("Transaction %s rolled back (%d operations)", tx.id, len(tx.operations))
}

// ActiveCount returns how many transactions are currently active.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// Shutdown rolls back every still-active transaction, logging individual
// failures, then clears the registry. This is the engine's only teardown
// responsibility. The context bounds the sweep.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	leftover := make([]*Transaction, 0, len(r.active))
	for _, tx := range r.active {
		leftover = append(leftover, tx)
	}
	r.active = make(map[string]*Transaction)
	r.mu.Unlock()

	for i, tx := range leftover {
		select {
		case <-ctx.Done():
			r.logger.Warn("Shutdown rollback sweep cancelled with %d transactions remaining", len(leftover)-i)
			return
		default:
		}
		r.logger.Warn("Rolling back still-active transaction %s at shutdown", tx.id)
		tx.rollback()
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}
