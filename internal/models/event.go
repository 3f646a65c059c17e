package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID            string    `bun:"id,pk" json:"id"`
	EventName     string    `bun:"event_name,notnull" json:"eventName"`
	Description   string    `bun:"description,notnull" json:"description"`
	Venue         string    `bun:"venue,notnull" json:"venue"`
	StreetAddress *string   `bun:"street_address" json:"streetAddress,omitempty"`
	PostalCode    *string   `bun:"postal_code" json:"postalCode,omitempty"`
	City          string    `bun:"city,notnull" json:"city"`
	Country       *string   `bun:"country" json:"country,omitempty"`
	Start         time.Time `bun:"starts_at,notnull" json:"start"`
	End           time.Time `bun:"ends_at,notnull" json:"end"`
	PricePerSeat  float64   `bun:"price_per_seat,notnull" json:"pricePerSeat"`
	Currency      string    `bun:"currency,notnull" json:"currency"`
	TotalSeats    int       `bun:"total_seats,notnull" json:"totalSeats"`
	SeatsLeft     *int      `bun:"seats_left" json:"seatsLeft,omitempty"`
	EventImageURL string    `bun:"event_image_url,nullzero" json:"eventImageUrl,omitempty"`

	Categories []Category `bun:"m2m:events_categories,join:Event=Category" json:"categories,omitempty"`
}

// RemainingSeats resolves a NULL seats_left column to the event's full capacity.
func (e *Event) RemainingSeats() int {
	if e.SeatsLeft == nil {
		return e.TotalSeats
	}
	return *e.SeatsLeft
}

// CategoryIDs lists the ids of the loaded category associations.
func (e *Event) CategoryIDs() []string {
	ids := make([]string, 0, len(e.Categories))
	for _, c := range e.Categories {
		ids = append(ids, c.ID)
	}
	return ids
}

type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID           string `bun:"id,pk" json:"id"`
	CategoryName string `bun:"category_name,notnull,unique" json:"categoryName"`

	Events []Event `bun:"m2m:events_categories,join:Category=Event" json:"events,omitempty"`
}

// EventCategory is the association row between an event and a category.
// It must be registered with bun.DB.RegisterModel before m2m relations are queried.
type EventCategory struct {
	bun.BaseModel `bun:"table:events_categories,alias:ec"`

	EventID    string    `bun:"event_id,pk"`
	Event      *Event    `bun:"rel:belongs-to,join:event_id=id"`
	CategoryID string    `bun:"category_id,pk"`
	Category   *Category `bun:"rel:belongs-to,join:category_id=id"`
}
