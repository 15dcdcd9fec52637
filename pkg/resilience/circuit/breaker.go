// Package circuit provides per-dependency circuit breaker state machines for
// failure isolation of side-effecting operations.
package circuit

import (
	"fmt"
	"sync"
	"time"
)

// State represents the current state of a circuit breaker.
type State int

// Circuit breaker states for managing dependency failure patterns.
const (
	Closed   State = iota // Normal operation
	Open                  // Failing, reject requests
	HalfOpen              // Trial call in flight after recovery timeout
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config defines configuration for circuit breaker behavior.
type Config struct {
	FailureThreshold int           `json:"failure_threshold"` // Consecutive failures before opening circuit
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`  // Time to wait before allowing a trial call
}

// DefaultConfig provides reasonable defaults for circuit breaker behavior.
//
//nolint:gochecknoglobals // Sensible default config pattern
var DefaultConfig = Config{
	FailureThreshold: 5,
	RecoveryTimeout:  60 * time.Second,
}

// Error represents a fail-fast denial by an open circuit.
type Error struct {
	Key   string
	State State
}

func (e *Error) Error() string {
	return fmt.Sprintf("circuit breaker for %s is %s", e.Key, e.State)
}

// Breaker is a mutex-protected circuit breaker state machine.
//
// There is no admission gate on the half-open trial: once the recovery
// timeout elapses, every CanExecute call passes until some caller records an
// outcome. Under concurrent callers this permits more than one trial; that
// matches the engine's documented behavior and keeps the state machine to
// two transitions.
//
//nolint:govet // Logical field grouping preferred over memory alignment
type Breaker struct {
	config          Config
	mu              sync.Mutex
	state           State
	failureCount    int
	lastFailureTime time.Time
}

// New creates a new circuit breaker with the given configuration.
func New(config Config) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultConfig.FailureThreshold
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = DefaultConfig.RecoveryTimeout
	}
	return &Breaker{
		config: config,
		state:  Closed,
	}
}

// CanExecute reports whether a call should be allowed based on current state.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true

	case Open:
		// Allow a trial call once the recovery timeout has passed.
		if time.Since(b.lastFailureTime) >= b.config.RecoveryTimeout {
			b.state = HalfOpen
			return true
		}
		return false

	case HalfOpen:
		return true

	default:
		return false
	}
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A success in any state restores normal operation. In CLOSED this just
	// clears the consecutive-failure count; after a half-open trial it
	// closes the circuit.
	b.state = Closed
	b.failureCount = 0
}

// RecordFailure records a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = time.Now()

	switch b.state {
	case Closed:
		if b.failureCount >= b.config.FailureThreshold {
			b.state = Open
		}

	case HalfOpen:
		// The trial failed: reopen and restart the recovery timeout.
		b.state = Open

	case Open:
		// Failure recorded while already open refreshes lastFailureTime.
	}
}

// GetState returns the current circuit breaker state.
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the current consecutive failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// Reset manually resets the circuit breaker to closed state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = Closed
	b.failureCount = 0
}
