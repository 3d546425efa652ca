package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the concrete implementation used across the codebase.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// TurnCompleted is emitted after every orchestrated assistant turn.
func TurnCompleted(userId, roleKey, intent string, citationCount, planItems int) Event {
	return BaseEvent{
		Type: "TURN_COMPLETED",
		Data: map[string]interface{}{
			"user_id":        userId,
			"role":           roleKey,
			"intent":         intent,
			"citation_count": citationCount,
			"plan_items":     planItems,
		},
		OccurredAt: time.Now(),
	}
}

// ActionExecuted is emitted when a confirmed action plan item ran against
// an external provider.
func ActionExecuted(userId, itemId, kind, status string) Event {
	return BaseEvent{
		Type: "ACTION_EXECUTED",
		Data: map[string]interface{}{
			"user_id": userId,
			"item_id": itemId,
			"kind":    kind,
			"status":  status,
		},
		OccurredAt: time.Now(),
	}
}
