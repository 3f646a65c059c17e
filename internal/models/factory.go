package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventModel is the read projection of an event.
type EventModel struct {
	ID            string          `json:"id"`
	EventImageURL string          `json:"eventImageUrl"`
	EventName     string          `json:"eventName"`
	Description   string          `json:"description"`
	Venue         string          `json:"venue"`
	StreetAddress *string         `json:"streetAddress,omitempty"`
	PostalCode    *string         `json:"postalCode,omitempty"`
	City          string          `json:"city"`
	Country       *string         `json:"country,omitempty"`
	Start         time.Time       `json:"start"`
	End           time.Time       `json:"end"`
	Price         float64         `json:"price"`
	Currency      string          `json:"currency"`
	TotalSeats    int             `json:"totalSeats"`
	SeatsLeft     int             `json:"seatsLeft"`
	Categories    []CategoryModel `json:"categories"`
}

// CategoryModel is the read projection of a category.
type CategoryModel struct {
	ID           string       `json:"id"`
	CategoryName string       `json:"categoryName"`
	Events       []EventModel `json:"events,omitempty"`
}

// NewEventEntity builds a new event row from a registration form. Seats left
// starts at full capacity.
func NewEventEntity(form EventRegForm) Event {
	seatsLeft := form.TotalSeats
	return Event{
		ID:            uuid.NewString(),
		EventName:     strings.TrimSpace(form.EventName),
		Description:   form.Description,
		Venue:         strings.TrimSpace(form.Venue),
		StreetAddress: form.StreetAddress,
		PostalCode:    form.PostalCode,
		City:          strings.TrimSpace(form.City),
		Country:       form.Country,
		Start:         form.Start.UTC(),
		End:           form.End.UTC(),
		PricePerSeat:  form.Price,
		Currency:      strings.ToUpper(form.Currency),
		TotalSeats:    form.TotalSeats,
		SeatsLeft:     &seatsLeft,
		EventImageURL: form.EventImageURL,
	}
}

// ApplyEventUpdate overwrites every mutable field of e with the form's values.
func ApplyEventUpdate(e *Event, form EventUpdateForm) {
	e.EventName = strings.TrimSpace(form.EventName)
	e.Description = form.Description
	e.Venue = strings.TrimSpace(form.Venue)
	e.StreetAddress = form.StreetAddress
	e.PostalCode = form.PostalCode
	e.City = strings.TrimSpace(form.City)
	e.Country = form.Country
	e.Start = form.Start.UTC()
	e.End = form.End.UTC()
	e.PricePerSeat = form.Price
	e.Currency = strings.ToUpper(form.Currency)
	e.EventImageURL = form.EventImageURL
}

// EventMutableColumns are the columns ApplyEventUpdate writes.
var EventMutableColumns = []string{
	"event_name", "description", "venue", "street_address", "postal_code", "city",
	"country", "starts_at", "ends_at", "price_per_seat", "currency", "event_image_url",
}

func NewCategoryEntity(form CategoryRegForm) Category {
	return Category{
		ID:           uuid.NewString(),
		CategoryName: strings.TrimSpace(form.CategoryName),
	}
}

// ToEventModel projects an event and its loaded categories. Categories carry
// no nested events.
func ToEventModel(e Event) EventModel {
	m := EventModel{
		ID:            e.ID,
		EventImageURL: e.EventImageURL,
		EventName:     e.EventName,
		Description:   e.Description,
		Venue:         e.Venue,
		StreetAddress: e.StreetAddress,
		PostalCode:    e.PostalCode,
		City:          e.City,
		Country:       e.Country,
		Start:         e.Start,
		End:           e.End,
		Price:         e.PricePerSeat,
		Currency:      e.Currency,
		TotalSeats:    e.TotalSeats,
		SeatsLeft:     e.RemainingSeats(),
		Categories:    make([]CategoryModel, 0, len(e.Categories)),
	}
	for _, c := range e.Categories {
		m.Categories = append(m.Categories, CategoryModel{ID: c.ID, CategoryName: c.CategoryName})
	}
	return m
}

// ToCategoryModel projects a category and its loaded events. Events carry no
// nested categories.
func ToCategoryModel(c Category) CategoryModel {
	m := CategoryModel{ID: c.ID, CategoryName: c.CategoryName}
	for _, e := range c.Events {
		em := ToEventModel(e)
		em.Categories = nil
		m.Events = append(m.Events, em)
	}
	return m
}

func ToEventModels(events []Event) []EventModel {
	out := make([]EventModel, 0, len(events))
	for _, e := range events {
		out = append(out, ToEventModel(e))
	}
	return out
}

func ToCategoryModels(categories []Category) []CategoryModel {
	out := make([]CategoryModel, 0, len(categories))
	for _, c := range categories {
		out = append(out, ToCategoryModel(c))
	}
	return out
}
