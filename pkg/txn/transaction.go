// Package txn provides transactional bookkeeping for side-effecting
// operations: each transaction records applied operations together with
// compensating rollback actions that undo them in reverse order.
package txn

import (
	"fmt"

	"github.com/google/uuid"

	"effectkit/pkg/logx"
)

// State represents the lifecycle state of a transaction.
type State string

// Transaction lifecycle states.
const (
	StatePending    State = "PENDING"
	StateActive     State = "ACTIVE"
	StateCommitted  State = "COMMITTED"
	StateRolledBack State = "ROLLED_BACK"
	StateFailed     State = "FAILED"
)

// RollbackAction is a zero-argument compensating closure undoing one
// previously applied operation.
type RollbackAction func() error

// Transaction tracks the operations applied during one engine call. It is
// exclusively owned by the call that created it and is never shared across
// goroutines, so its fields need no locking.
type Transaction struct {
	id              string
	state           State
	operations      []string
	rollbackActions []RollbackAction
	logger          *logx.Logger
}

// newTransaction creates a transaction in PENDING state.
func newTransaction(id string, logger *logx.Logger) *Transaction {
	if id == "" {
		id = uuid.New().String()
	}
	return &Transaction{
		id:     id,
		state:  StatePending,
		logger: logger,
	}
}

// ID returns the transaction's unique identifier.
func (t *Transaction) ID() string {
	return t.id
}

// State returns the transaction's current lifecycle state.
func (t *Transaction) State() State {
	return t.state
}

// Operations returns the descriptors of operations applied so far.
func (t *Transaction) Operations() []string {
	ops := make([]string, len(t.operations))
	copy(ops, t.operations)
	return ops
}

// AddOperation records an applied operation and, when rollback is non-nil,
// the compensating action that undoes it. Operations without a compensator
// (e.g. a destructive delete whose prior content could not be captured) are
// still listed in the transaction's operation log.
func (t *Transaction) AddOperation(descriptor string, rollback RollbackAction) error {
	if t.state != StateActive {
		return fmt.Errorf("cannot add operation to transaction %s in state %s", t.id, t.state)
	}

	t.operations = append(t.operations, descriptor)
	if rollback != nil {
		t.rollbackActions = append(t.rollbackActions, rollback)
	}
	t.logger.Debug("Transaction %s recorded operation: %s", t.id, descriptor)
	return nil
}

// commit marks the transaction committed. No rollback action ever runs on
// commit.
func (t *Transaction) commit() {
	t.state = StateCommitted
	t.rollbackActions = nil
}

// rollback executes every compensating action in reverse registration order,
// so later effects are undone before earlier ones they may depend on. A
// failing action is logged and skipped; it never prevents the remaining
// actions from running, and its error never propagates past this method.
func (t *Transaction) rollback() {
	for i := len(t.rollbackActions) - 1; i >= 0; i-- {
		t.runRollbackAction(i)
	}
	t.rollbackActions = nil
	t.state = StateRolledBack
}

// runRollbackAction invokes one compensating action, containing both errors
// and panics.
func (t *Transaction) runRollbackAction(i int) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Transaction %s rollback action %d panicked: %v", t.id, i, r)
		}
	}()

	if err := t.rollbackActions[i](); err != nil {
		t.logger.Error("Transaction %s rollback action %d failed: %v", t.id, i, err)
	}
}
