package effect

import (
	"context"
	"errors"
	"testing"

	"effectkit/pkg/bus"
)

// failingPublisher always rejects publishes.
type failingPublisher struct{}

func (failingPublisher) Publish(bus.Event) error {
	return errors.New("broker unavailable")
}

func TestEventHandler_NilPublisherDegrades(t *testing.T) {
	h := NewEventHandler(nil)

	raw, err := h.Handle(context.Background(), map[string]any{
		"event_type": "test.event",
	}, nil)
	if err != nil {
		t.Fatalf("Expected graceful degradation, got error %v", err)
	}
	if raw != false {
		t.Errorf("Expected false when no bus is available, got %v", raw)
	}
}

func TestEventHandler_PublishesEvent(t *testing.T) {
	b := bus.NewMemoryBus()
	defer b.Close()
	received := b.Subscribe()

	h := NewEventHandler(b)
	raw, err := h.Handle(context.Background(), map[string]any{
		"event_type": "test.event",
		"payload":    map[string]any{"k": "v"},
	}, nil)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if raw != true {
		t.Errorf("Expected true on publish, got %v", raw)
	}

	event := <-received
	if event.Type != "test.event" {
		t.Errorf("Expected event type test.event, got %s", event.Type)
	}
	if event.Payload["k"] != "v" {
		t.Errorf("Expected payload forwarded, got %v", event.Payload)
	}
}

func TestEventHandler_PublishFailurePropagates(t *testing.T) {
	h := NewEventHandler(failingPublisher{})

	_, err := h.Handle(context.Background(), map[string]any{
		"event_type": "test.event",
	}, nil)
	if err == nil {
		t.Error("Expected publish failure to propagate for retry")
	}
}

func TestEventHandler_NeverRegistersRollback(t *testing.T) {
	b := bus.NewMemoryBus()
	defer b.Close()

	_, tx := activeTx(t)
	h := NewEventHandler(b)
	if _, err := h.Handle(context.Background(), map[string]any{
		"event_type": "test.event",
	}, tx); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	ops := tx.Operations()
	if len(ops) != 1 {
		t.Fatalf("Expected emission listed in operation log, got %d entries", len(ops))
	}
}

func TestEventHandler_DefaultEventType(t *testing.T) {
	b := bus.NewMemoryBus()
	defer b.Close()
	received := b.Subscribe()

	h := NewEventHandler(b)
	if _, err := h.Handle(context.Background(), map[string]any{}, nil); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	event := <-received
	if event.Type != "effect.event" {
		t.Errorf("Expected default event type, got %s", event.Type)
	}
}
