package domain

import "time"

// Domain event types carried by webhook notifications.
const (
	EventBookCreated   = "book.created"
	EventBookUpdated   = "book.updated"
	EventBookDeleted   = "book.deleted"
	EventReviewCreated = "review.created"
	EventReviewUpdated = "review.updated"
	EventReviewDeleted = "review.deleted"
	EventOrderCreated  = "order.created"
)

// Event is published by write operations after the mutation is committed.
type Event struct {
	Type      string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(eventType string, data any) Event {
	return Event{Type: eventType, Timestamp: time.Now().UTC(), Data: data}
}
