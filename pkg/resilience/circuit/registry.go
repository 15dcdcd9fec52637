package circuit

import "sync"

// Registry owns one Breaker per dependency key, created lazily on first use.
// Breakers live for the process lifetime.
type Registry struct {
	breakers map[string]*Breaker
	config   Config
	mu       sync.RWMutex
}

// NewRegistry creates a registry whose breakers share the given configuration.
func NewRegistry(config Config) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		config:   config,
	}
}

// Get returns the breaker for the given dependency key, creating it if needed.
func (r *Registry) Get(key string) *Breaker {
	r.mu.RLock()
	b, exists := r.breakers[key]
	r.mu.RUnlock()
	if exists {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock; another caller may have raced us here.
	if b, exists := r.breakers[key]; exists {
		return b
	}
	b = New(r.config)
	r.breakers[key] = b
	return b
}

// BreakerStatus is a read-only snapshot of one breaker's state.
type BreakerStatus struct {
	State        string `json:"state"`
	FailureCount int    `json:"failure_count"`
}

// Snapshot returns the current state of every breaker, keyed by dependency.
// Safe to call concurrently with in-flight executions.
func (r *Registry) Snapshot() map[string]BreakerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]BreakerStatus, len(r.breakers))
	for key, b := range r.breakers {
		snapshot[key] = BreakerStatus{
			State:        b.GetState().String(),
			FailureCount: b.FailureCount(),
		}
	}
	return snapshot
}
