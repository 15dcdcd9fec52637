// Package metrics provides per-effect-type execution counters and latency
// aggregates, with an optional Prometheus recorder for external scraping.
package metrics

import (
	"sync"
	"time"
)

// Entry holds the running counters for one effect type. Latencies are
// tracked in milliseconds.
type Entry struct {
	TotalOperations     int64   `json:"total_operations"`
	SuccessCount        int64   `json:"success_count"`
	ErrorCount          int64   `json:"error_count"`
	AvgProcessingTimeMs float64 `json:"avg_processing_time_ms"`
	MinProcessingTimeMs float64 `json:"min_processing_time_ms"`
	MaxProcessingTimeMs float64 `json:"max_processing_time_ms"`
}

// Recorder receives a copy of every recorded observation. Implementations
// must be safe for concurrent use.
type Recorder interface {
	ObserveEffect(effectType string, duration time.Duration, success bool)
}

// Aggregator keeps one Entry per effect type, created lazily on first
// operation and updated in place after every execution.
type Aggregator struct {
	entries  map[string]*Entry
	recorder Recorder
	mu       sync.Mutex
}

// NewAggregator creates an aggregator. The recorder may be nil.
func NewAggregator(recorder Recorder) *Aggregator {
	return &Aggregator{
		entries:  make(map[string]*Entry),
		recorder: recorder,
	}
}

// Record updates the entry for the given effect type with one observation.
func (a *Aggregator) Record(effectType string, duration time.Duration, success bool) {
	ms := float64(duration.Milliseconds())

	a.mu.Lock()
	entry, exists := a.entries[effectType]
	if !exists {
		entry = &Entry{MinProcessingTimeMs: ms, MaxProcessingTimeMs: ms}
		a.entries[effectType] = entry
	}

	entry.TotalOperations++
	if success {
		entry.SuccessCount++
	} else {
		entry.ErrorCount++
	}

	if ms < entry.MinProcessingTimeMs {
		entry.MinProcessingTimeMs = ms
	}
	if ms > entry.MaxProcessingTimeMs {
		entry.MaxProcessingTimeMs = ms
	}

	// Running-average identity: avg' = (avg*(n-1) + new) / n.
	n := float64(entry.TotalOperations)
	entry.AvgProcessingTimeMs = (entry.AvgProcessingTimeMs*(n-1) + ms) / n
	a.mu.Unlock()

	if a.recorder != nil {
		a.recorder.ObserveEffect(effectType, duration, success)
	}
}

// Snapshot returns a deep copy of all entries, safe for concurrent readers.
func (a *Aggregator) Snapshot() map[string]Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := make(map[string]Entry, len(a.entries))
	for effectType, entry := range a.entries {
		snapshot[effectType] = *entry
	}
	return snapshot
}
