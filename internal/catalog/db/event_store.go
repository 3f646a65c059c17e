package db

import (
	"context"
	"fmt"

	"ms-catalog/internal/models"
)

type EventStore struct {
	*Repository[models.Event]
	db *DB
}

func NewEventStore(d *DB) *EventStore {
	return &EventStore{Repository: NewRepository[models.Event](d), db: d}
}

// GetWithCategories loads one event with its category associations.
func (s *EventStore) GetWithCategories(ctx context.Context, id string) (*models.Event, error) {
	return s.GetOne(ctx, WhereID(id), WithRelation("Categories"))
}

// ListWithCategories loads every event, soonest first.
func (s *EventStore) ListWithCategories(ctx context.Context) ([]models.Event, error) {
	return s.GetAll(ctx, WithRelation("Categories"), OrderBy("e.starts_at ASC"), OrderBy("e.id ASC"))
}

// ReplaceCategories drops every association of the event and writes one row
// per category id.
func (s *EventStore) ReplaceCategories(ctx context.Context, eventID string, categoryIDs []string) error {
	conn := s.db.Conn(ctx)

	_, err := conn.NewDelete().
		Model((*models.EventCategory)(nil)).
		Where("event_id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("clear event categories: %w", mapError(err))
	}

	ids := models.Distinct(categoryIDs)
	if len(ids) == 0 {
		return nil
	}

	rows := make([]models.EventCategory, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.EventCategory{EventID: eventID, CategoryID: id})
	}
	if _, err := conn.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert event categories: %w", mapError(err))
	}
	return nil
}

// Remove deletes an event together with its association rows.
func (s *EventStore) Remove(ctx context.Context, id string) error {
	conn := s.db.Conn(ctx)

	if _, err := conn.NewDelete().
		Model((*models.EventCategory)(nil)).
		Where("event_id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete event categories: %w", mapError(err))
	}

	return s.Delete(ctx, &models.Event{ID: id})
}

// DebitSeats takes count seats from the event in a single conditional update
// and returns what is left. The update only matches while enough seats remain,
// so concurrent debits can never drive seats_left below zero.
//
// Returns ErrInsufficientSeats when the condition did not match. Callers that
// need to tell a missing event apart must look it up first.
func (s *EventStore) DebitSeats(ctx context.Context, id string, count int) (int, error) {
	conn := s.db.Conn(ctx)

	res, err := conn.NewUpdate().
		Model((*models.Event)(nil)).
		Set("seats_left = COALESCE(seats_left, total_seats) - ?", count).
		Where("id = ?", id).
		Where("COALESCE(seats_left, total_seats) >= ?", count).
		Exec(ctx)
	if err != nil {
		return 0, mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrInsufficientSeats
	}

	var left int
	err = conn.NewSelect().
		Model((*models.Event)(nil)).
		Column("seats_left").
		Where("id = ?", id).
		Scan(ctx, &left)
	if err != nil {
		return 0, mapError(err)
	}
	return left, nil
}

// CountExisting returns how many of ids name an existing event.
func (s *EventStore) CountExisting(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.Count(ctx, WhereIDs(ids))
}
