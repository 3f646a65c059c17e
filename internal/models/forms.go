package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CategoryRegForm is the input for creating a category.
type CategoryRegForm struct {
	CategoryName string `json:"categoryName" validate:"required,min=2,max=20"`
}

// CategoryUpdateForm replaces a category's name. When Events is non-nil the
// category's event associations are replaced by it as well.
type CategoryUpdateForm struct {
	CategoryName string   `json:"categoryName" validate:"required,min=2,max=20"`
	Events       []string `json:"events" validate:"omitempty,dive,required"`
}

// CategoryRef identifies a category in an event form.
type CategoryRef struct {
	ID           string `json:"id" validate:"required"`
	CategoryName string `json:"categoryName,omitempty"`
}

// EventRegForm is the input for creating an event.
type EventRegForm struct {
	EventName     string        `json:"eventName" validate:"required,max=50"`
	Description   string        `json:"description" validate:"required"`
	Venue         string        `json:"venue" validate:"required,max=30"`
	StreetAddress *string       `json:"streetAddress" validate:"omitempty,max=50"`
	PostalCode    *string       `json:"postalCode" validate:"omitempty,max=10"`
	City          string        `json:"city" validate:"required,max=20"`
	Country       *string       `json:"country" validate:"omitempty,max=20"`
	Start         time.Time     `json:"start" validate:"required"`
	End           time.Time     `json:"end" validate:"required,gtefield=Start"`
	Price         float64       `json:"price" validate:"gte=0"`
	Currency      string        `json:"currency" validate:"required,len=3"`
	TotalSeats    int           `json:"totalSeats" validate:"required,gt=0"`
	EventImageURL string        `json:"eventImageUrl" validate:"omitempty,url"`
	Categories    []CategoryRef `json:"categories" validate:"dive"`
}

// EventUpdateForm carries every mutable event field. Capacity is fixed at
// creation and seats are only ever taken by a debit, so neither appears here.
type EventUpdateForm struct {
	EventName     string        `json:"eventName" validate:"required,max=50"`
	Description   string        `json:"description" validate:"required"`
	Venue         string        `json:"venue" validate:"required,max=30"`
	StreetAddress *string       `json:"streetAddress" validate:"omitempty,max=50"`
	PostalCode    *string       `json:"postalCode" validate:"omitempty,max=10"`
	City          string        `json:"city" validate:"required,max=20"`
	Country       *string       `json:"country" validate:"omitempty,max=20"`
	Start         time.Time     `json:"start" validate:"required"`
	End           time.Time     `json:"end" validate:"required,gtefield=Start"`
	Price         float64       `json:"price" validate:"gte=0"`
	Currency      string        `json:"currency" validate:"required,len=3"`
	EventImageURL string        `json:"eventImageUrl" validate:"omitempty,url"`
	Categories    []CategoryRef `json:"categories" validate:"dive"`
}

func (f CategoryRegForm) Validate() error    { return check(f) }
func (f CategoryUpdateForm) Validate() error { return check(f) }
func (f EventRegForm) Validate() error       { return check(f) }
func (f EventUpdateForm) Validate() error    { return check(f) }

// CategoryIDs returns the distinct category ids referenced by the form.
func (f EventRegForm) CategoryIDs() []string { return distinctRefs(f.Categories) }

func (f EventUpdateForm) CategoryIDs() []string { return distinctRefs(f.Categories) }

func distinctRefs(refs []CategoryRef) []string {
	seen := make(map[string]struct{}, len(refs))
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		ids = append(ids, r.ID)
	}
	return ids
}

// Distinct drops duplicate and blank ids, keeping first-seen order.
func Distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, " "))
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	if fe.Namespace() != "" {
		if i := strings.Index(fe.Namespace(), "."); i >= 0 {
			name = fe.Namespace()[i+1:]
		}
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", name)
	case "min", "max":
		if fe.Field() == "CategoryName" {
			return "Category name must be between 2 and 20 characters."
		}
		return fmt.Sprintf("%s must be at %s %s characters.", name, map[string]string{"min": "least", "max": "most"}[fe.Tag()], fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters.", name, fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be %s %s.", name, map[string]string{"gt": "greater than", "gte": "at least"}[fe.Tag()], fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s.", name, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL.", name)
	}
	return fmt.Sprintf("%s is invalid.", name)
}
