package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SeatDebit is the outcome of a successful debit against an event's inventory.
type SeatDebit struct {
	EventID      string `json:"eventId"`
	SeatsOrdered int    `json:"seatsOrdered"`
	SeatsLeft    int    `json:"seatsLeft"`
}

// SeatsDebitedEvent is published after a debit commits.
type SeatsDebitedEvent struct {
	EventID      string    `json:"eventId"`
	SeatsOrdered int       `json:"seatsOrdered"`
	SeatsLeft    int       `json:"seatsLeft"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func NewSeatsDebitedEvent(debit SeatDebit) SeatsDebitedEvent {
	return SeatsDebitedEvent{
		EventID:      debit.EventID,
		SeatsOrdered: debit.SeatsOrdered,
		SeatsLeft:    debit.SeatsLeft,
		OccurredAt:   time.Now().UTC(),
	}
}

// BookingRequest is consumed from the booking topic and applied as a debit.
type BookingRequest struct {
	RequestID    string `json:"requestId"`
	EventID      string `json:"eventId"`
	SeatsOrdered int    `json:"seatsOrdered"`
}

// Normalize assigns a request id when the producer did not send one and
// rejects ids that are not UUIDs.
func (b *BookingRequest) Normalize() error {
	if b.RequestID == "" {
		b.RequestID = uuid.NewString()
		return nil
	}
	if _, err := uuid.Parse(b.RequestID); err != nil {
		return fmt.Errorf("requestId %q is not a uuid: %w", b.RequestID, err)
	}
	return nil
}

// BookingOutcome reports how a BookingRequest was applied.
type BookingOutcome struct {
	RequestID    string `json:"requestId"`
	EventID      string `json:"eventId"`
	Success      bool   `json:"success"`
	StatusCode   int    `json:"statusCode"`
	Message      string `json:"message,omitempty"`
	SeatsLeft    int    `json:"seatsLeft"`
	SeatsOrdered int    `json:"seatsOrdered"`
}

// CatalogChange is the payload of event and category lifecycle topics.
type CatalogChange[T any] struct {
	Action     string    `json:"action"`
	ID         string    `json:"id"`
	Data       *T        `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewCatalogChange[T any](action, id string, data *T) CatalogChange[T] {
	return CatalogChange[T]{Action: action, ID: id, Data: data, OccurredAt: time.Now().UTC()}
}
