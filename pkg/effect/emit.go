package effect

import (
	"context"
	"fmt"
	"time"

	"effectkit/pkg/bus"
	"effectkit/pkg/logx"
	"effectkit/pkg/txn"
)

// EventHandler executes EVENT_EMISSION effects by publishing to the injected
// bus capability. Events are not undoable, so it never registers a rollback
// action. A missing publisher degrades gracefully: the handler logs a
// warning and reports false instead of failing the request.
type EventHandler struct {
	publisher bus.Publisher
	logger    *logx.Logger
}

// NewEventHandler creates the built-in event-emission handler. The publisher
// may be nil when the surrounding environment provides no event bus.
func NewEventHandler(publisher bus.Publisher) *EventHandler {
	return &EventHandler{
		publisher: publisher,
		logger:    logx.NewLogger("emit"),
	}
}

// Handle publishes one event built from the operation payload. Publish
// failures propagate so the engine's retry loop can re-attempt them.
func (h *EventHandler) Handle(ctx context.Context, data map[string]any, tx *txn.Transaction) (any, error) {
	if h.publisher == nil {
		h.logger.Warn("No event bus available, skipping event emission")
		return false, nil
	}

	eventType, _ := data["event_type"].(string)
	if eventType == "" {
		eventType = "effect.event"
	}
	payload, _ := data["payload"].(map[string]any)

	event := bus.Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	if err := h.publisher.Publish(event); err != nil {
		return nil, fmt.Errorf("failed to publish event %s: %w", eventType, err)
	}

	if tx != nil {
		// Listed in the operation log without a compensator.
		if err := tx.AddOperation(fmt.Sprintf("emit %s", eventType), nil); err != nil {
			return nil, err
		}
	}

	h.logger.Debug("Published event %s", eventType)
	return true, nil
}
