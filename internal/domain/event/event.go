package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventID returns the unique identifier of the event.
	EventID() string
	// EventName returns the name of the event.
	EventName() string
	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time
	// AggregateID returns the short code of the link that raised the event.
	AggregateID() string
}

// Base contains common fields for all events.
type Base struct {
	ID          string    `json:"event_id"`
	OccurredAtT time.Time `json:"occurred_at"`
	ShortCode   string    `json:"short_code"`
}

// NewBase creates a base event stamped with a time-ordered id.
func NewBase(shortCode string) Base {
	return Base{
		ID:          uuid.Must(uuid.NewV7()).String(),
		OccurredAtT: time.Now().UTC(),
		ShortCode:   shortCode,
	}
}

func (e Base) EventID() string       { return e.ID }
func (e Base) OccurredAt() time.Time { return e.OccurredAtT }
func (e Base) AggregateID() string   { return e.ShortCode }
