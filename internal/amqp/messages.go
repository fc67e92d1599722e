package amqp

import (
	"encoding/json"
	"time"
)

// Event types published on the expense exchange.
const (
	EventExpenseCreated = "expense.created"
	EventExpenseDeleted = "expense.deleted"
)

// ExpenseEvent notifies consumers that the collection changed. It carries
// the expense id and description only; consumers read the store for the
// rest.
type ExpenseEvent struct {
	Type        string    `json:"type"`
	ID          string    `json:"id,omitempty"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewExpenseEvent stamps an event with the current time.
func NewExpenseEvent(eventType, id, description string) *ExpenseEvent {
	return &ExpenseEvent{
		Type:        eventType,
		ID:          id,
		Description: description,
		OccurredAt:  time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
