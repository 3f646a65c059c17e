package rpc

import "time"

type EventInformationRequest struct {
	ID string `json:"id"`
}

// EventInfo is the booking view of an event.
type EventInfo struct {
	ID            string    `json:"id"`
	EventName     string    `json:"eventName"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	SeatsLeft     int       `json:"seatsLeft"`
	PricePerSeat  float64   `json:"pricePerSeat"`
	Currency      string    `json:"currency"`
	Venue         string    `json:"venue"`
	StreetAddress *string   `json:"streetAddress,omitempty"`
	PostalCode    *string   `json:"postalCode,omitempty"`
	City          string    `json:"city"`
	Country       *string   `json:"country,omitempty"`
}

type EventInformationReply struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Event   *EventInfo `json:"event,omitempty"`
}

type SeatsRequest struct {
	ID           string `json:"id"`
	SeatsOrdered int    `json:"seatsOrdered"`
}

// SeatsReply reports a debit. StatusCode uses the HTTP codes of the REST
// surface so callers can tell a conflict from a missing event.
type SeatsReply struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	SeatsLeft  int    `json:"seatsLeft"`
	StatusCode int    `json:"statusCode"`
}
