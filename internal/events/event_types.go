package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCardCreated EventType = "created"
	EventCardUpdated EventType = "updated"
	EventCardDeleted EventType = "deleted"
)

// Event is a mutation notification fanned out to connected observers.
// Created and updated events carry the resulting card representation;
// deleted events carry only the card id.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	CardID    int64     `json:"card_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// DeletedPayload is the payload of a deleted event.
type DeletedPayload struct {
	ID int64 `json:"id"`
}
