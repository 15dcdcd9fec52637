// Package engine provides the effect orchestrator: it validates requests,
// consults the per-type circuit breaker, opens a transaction, bounds
// concurrency, runs the handler under the retry policy, and commits or rolls
// back before wrapping the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"effectkit/pkg/bus"
	"effectkit/pkg/config"
	"effectkit/pkg/effect"
	"effectkit/pkg/effecterrors"
	"effectkit/pkg/journal"
	"effectkit/pkg/limiter"
	"effectkit/pkg/logx"
	"effectkit/pkg/metrics"
	"effectkit/pkg/resilience/circuit"
	"effectkit/pkg/resilience/retry"
	"effectkit/pkg/txn"
)

// Engine is the façade for managed side-effect execution. One instance is
// shared by many concurrent callers; all cross-request state (breakers,
// metrics, transaction registry, limiter) is mutex-protected internally.
type Engine struct {
	cfg      config.EngineConfig
	handlers *effect.Registry
	breakers *circuit.Registry
	txns     *txn.Registry
	limiter  *limiter.Limiter
	metrics  *metrics.Aggregator
	journal  *journal.Journal
	logger   *logx.Logger
}

// New creates an engine from configuration. The recorder and jrnl may be nil
// to disable Prometheus export and the audit journal respectively.
func New(cfg *config.Config, recorder metrics.Recorder, jrnl *journal.Journal) *Engine {
	return &Engine{
		cfg:      cfg.Engine,
		handlers: effect.NewRegistry(),
		breakers: circuit.NewRegistry(circuit.Config{
			FailureThreshold: cfg.Engine.FailureThreshold,
			RecoveryTimeout:  cfg.Engine.RecoveryTimeout(),
		}),
		txns:    txn.NewRegistry(),
		limiter: limiter.New(cfg.Engine.MaxConcurrentEffects),
		metrics: metrics.NewAggregator(recorder),
		journal: jrnl,
		logger:  logx.NewLogger("engine"),
	}
}

// RegisterBuiltinHandlers installs the file-operation and event-emission
// handlers. The publisher may be nil; event emission then degrades to a
// logged no-op returning false.
func (e *Engine) RegisterBuiltinHandlers(publisher bus.Publisher) {
	e.handlers.Register(effect.TypeFileOperation, effect.NewFileHandler().Handle)
	e.handlers.Register(effect.TypeEventEmission, effect.NewEventHandler(publisher).Handle)
}

// RegisterHandler installs a handler for an effect type. Configuration-time
// only: not safe to call concurrently with in-flight Process calls for the
// same type.
func (e *Engine) RegisterHandler(effectType effect.Type, handler effect.Handler) {
	e.handlers.Register(effectType, handler)
}

// Process executes one effect request end-to-end.
func (e *Engine) Process(ctx context.Context, req effect.Request) (*effect.Result, error) {
	start := time.Now()
	req = req.Normalize(&e.cfg)
	if req.OperationID == "" {
		req.OperationID = uuid.New().String()
	}

	if err := e.validate(req); err != nil {
		return nil, err
	}

	// Fail fast when the breaker for this effect type denies execution: no
	// handler invocation, no retry, no transaction.
	if req.CircuitBreakerEnabled {
		if !e.breakers.Get(string(req.EffectType)).CanExecute() {
			e.logger.Warn("Circuit breaker open for %s, rejecting operation %s", req.EffectType, req.OperationID)
			return nil, e.failure(req, effecterrors.KindCircuitOpen, "", 0, time.Since(start),
				fmt.Errorf("circuit breaker for %s denies execution", req.EffectType))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	var tx *txn.Transaction
	if req.TransactionEnabled {
		var err error
		tx, err = e.txns.Begin(req.OperationID)
		if err != nil {
			return nil, e.failure(req, effecterrors.KindValidation, "", 0, time.Since(start), err)
		}
	}

	raw, retries, err := e.execute(ctx, req, tx)
	elapsed := time.Since(start)

	if err != nil {
		txState := ""
		if tx != nil {
			e.txns.Rollback(tx)
			txState = string(tx.State())
		}
		if req.CircuitBreakerEnabled {
			e.breakers.Get(string(req.EffectType)).RecordFailure()
		}
		e.metrics.Record(string(req.EffectType), elapsed, false)

		kind := effecterrors.KindOf(err)
		if errors.Is(err, context.DeadlineExceeded) {
			kind = effecterrors.KindTimeout
		}
		return nil, e.failure(req, kind, txState, retries, elapsed, err)
	}

	txState := ""
	var applied []string
	if tx != nil {
		applied = tx.Operations()
		if commitErr := e.txns.Commit(tx); commitErr != nil {
			e.logger.Error("Commit failed for transaction %s: %v", tx.ID(), commitErr)
		}
		txState = string(tx.State())
	}
	if req.CircuitBreakerEnabled {
		e.breakers.Get(string(req.EffectType)).RecordSuccess()
	}
	e.metrics.Record(string(req.EffectType), elapsed, true)
	e.journalEntry(req, "success", "", txState, retries, elapsed)

	result := effect.WrapValue(raw)
	result.TransactionState = txState
	result.ProcessingTime = elapsed
	result.RetryCount = retries
	result.SideEffectsApplied = applied
	result.Metadata = map[string]any{
		"node_id":      e.cfg.NodeID,
		"operation_id": req.OperationID,
	}

	e.logger.Debug("Operation %s (%s) completed in %v with %d retries",
		req.OperationID, req.EffectType, elapsed, retries)
	return &result, nil
}

// validate rejects malformed requests before any side effect.
func (e *Engine) validate(req effect.Request) error {
	if req.OperationData == nil {
		return &effecterrors.Error{
			Kind:        effecterrors.KindValidation,
			Message:     "operation data must be a mapping",
			NodeID:      e.cfg.NodeID,
			OperationID: req.OperationID,
			EffectType:  string(req.EffectType),
		}
	}
	if !req.EffectType.Valid() && !e.handlers.Registered(req.EffectType) {
		return &effecterrors.Error{
			Kind:        effecterrors.KindValidation,
			Message:     fmt.Sprintf("unrecognized effect type %q", req.EffectType),
			NodeID:      e.cfg.NodeID,
			OperationID: req.OperationID,
			EffectType:  string(req.EffectType),
		}
	}
	return nil
}

// execute runs the retry loop inside an acquired concurrency slot.
func (e *Engine) execute(ctx context.Context, req effect.Request, tx *txn.Transaction) (any, int, error) {
	release, err := e.limiter.Acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	// Scoped acquisition: the slot returns on every exit path, including a
	// panic unwinding out of the handler.
	defer release()

	policy := retry.Policy{
		Enabled:    req.RetryEnabled,
		MaxRetries: req.MaxRetries,
		BaseDelay:  req.RetryDelay,
	}
	return retry.Execute(ctx, policy, func(ctx context.Context) (raw any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler for %s panicked: %v", req.EffectType, r)
			}
		}()
		return e.handlers.Dispatch(ctx, req.EffectType, req.OperationData, tx)
	})
}

// failure records the journal entry and builds the structured error returned
// to the caller. The original cause is always preserved; rollback errors
// never mask it.
func (e *Engine) failure(req effect.Request, kind effecterrors.Kind, txState string, retries int, elapsed time.Duration, cause error) error {
	e.journalEntry(req, "error", cause.Error(), txState, retries, elapsed)

	return &effecterrors.Error{
		Kind:             kind,
		Err:              cause,
		NodeID:           e.cfg.NodeID,
		OperationID:      req.OperationID,
		EffectType:       string(req.EffectType),
		TransactionState: txState,
		ProcessingTime:   elapsed,
		RetryCount:       retries,
	}
}

func (e *Engine) journalEntry(req effect.Request, status, detail, txState string, retries int, elapsed time.Duration) {
	if e.journal == nil {
		return
	}
	e.journal.Record(journal.Entry{
		OperationID:      req.OperationID,
		EffectType:       string(req.EffectType),
		Status:           status,
		Detail:           detail,
		TransactionState: txState,
		NodeID:           e.cfg.NodeID,
		RetryCount:       retries,
		ProcessingTime:   elapsed,
	})
}

// Metrics returns a read-only snapshot of per-effect-type counters. Safe to
// call concurrently with in-flight executions.
func (e *Engine) Metrics() map[string]metrics.Entry {
	return e.metrics.Snapshot()
}

// CircuitStates returns a read-only snapshot of every breaker's state.
func (e *Engine) CircuitStates() map[string]circuit.BreakerStatus {
	return e.breakers.Snapshot()
}

// LimiterStatus returns the concurrency slots in use and the total capacity.
func (e *Engine) LimiterStatus() (inUse, capacity int) {
	return e.limiter.InUse(), e.limiter.Capacity()
}

// ActiveTransactions returns how many transactions are currently active.
func (e *Engine) ActiveTransactions() int {
	return e.txns.ActiveCount()
}

// Shutdown rolls back all still-active transactions best-effort. Callers are
// expected to have stopped submitting work first.
func (e *Engine) Shutdown(ctx context.Context) {
	e.logger.Info("Engine shutting down, rolling back %d active transactions", e.txns.ActiveCount())
	e.txns.Shutdown(ctx)
}
