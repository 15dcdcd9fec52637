// Package bus provides the event-publishing capability consumed by the
// event-emission effect handler, plus a small in-process implementation.
package bus

import (
	"fmt"
	"sync"
	"time"

	"effectkit/pkg/logx"
)

// Event is one published event.
type Event struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Publisher is the capability interface the engine consumes. Publish may
// fail; the engine treats publish failure as a recoverable handler failure
// subject to retry.
type Publisher interface {
	Publish(event Event) error
}

// MemoryBus is an in-process Publisher that fans events out to subscriber
// channels. A subscriber that cannot keep up has the event dropped rather
// than blocking the publisher.
type MemoryBus struct {
	subscribers []chan Event
	logger      *logx.Logger
	mu          sync.RWMutex
	closed      bool
}

// NewMemoryBus creates an in-process event bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		logger: logx.NewLogger("bus"),
	}
}

// Publish delivers the event to every subscriber.
func (b *MemoryBus) Publish(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.logger.Warn("Dropping event %s for slow subscriber", event.Type)
		}
	}
	return nil
}

// Subscribe returns a channel receiving all future events. The channel is
// buffered; slow consumers lose events instead of stalling publishers.
func (b *MemoryBus) Subscribe() <-chan Event {
	ch := make(chan Event, 64)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Close stops the bus. Subsequent publishes fail; subscriber channels are
// closed.
func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}

// Verify that MemoryBus implements Publisher.
var _ Publisher = (*MemoryBus)(nil)
