package db

import (
	"context"
	"fmt"

	"ms-catalog/internal/models"
)

type CategoryStore struct {
	*Repository[models.Category]
	db *DB
}

func NewCategoryStore(d *DB) *CategoryStore {
	return &CategoryStore{Repository: NewRepository[models.Category](d), db: d}
}

// ExistsByName reports whether another category already uses name.
// excludeID skips the category being renamed; pass "" on create.
func (s *CategoryStore) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	opts := []QueryOption{Where("?TableAlias.category_name = ?", name)}
	if excludeID != "" {
		opts = append(opts, Where("?TableAlias.id <> ?", excludeID))
	}
	return s.Exists(ctx, opts...)
}

func (s *CategoryStore) GetWithEvents(ctx context.Context, id string) (*models.Category, error) {
	return s.GetOne(ctx, WhereID(id), WithRelation("Events"))
}

func (s *CategoryStore) ListWithEvents(ctx context.Context) ([]models.Category, error) {
	return s.GetAll(ctx, WithRelation("Events"), OrderBy("c.category_name ASC"))
}

// CountExisting returns how many of ids name an existing category.
func (s *CategoryStore) CountExisting(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.Count(ctx, WhereIDs(ids))
}

// ReplaceEvents drops every association of the category and writes one row
// per event id.
func (s *CategoryStore) ReplaceEvents(ctx context.Context, categoryID string, eventIDs []string) error {
	conn := s.db.Conn(ctx)

	if _, err := conn.NewDelete().
		Model((*models.EventCategory)(nil)).
		Where("category_id = ?", categoryID).
		Exec(ctx); err != nil {
		return fmt.Errorf("clear category events: %w", mapError(err))
	}

	ids := models.Distinct(eventIDs)
	if len(ids) == 0 {
		return nil
	}

	rows := make([]models.EventCategory, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, models.EventCategory{EventID: id, CategoryID: categoryID})
	}
	if _, err := conn.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert category events: %w", mapError(err))
	}
	return nil
}

// Remove deletes a category together with its association rows.
func (s *CategoryStore) Remove(ctx context.Context, id string) error {
	if _, err := s.db.Conn(ctx).NewDelete().
		Model((*models.EventCategory)(nil)).
		Where("category_id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete category events: %w", mapError(err))
	}
	return s.Delete(ctx, &models.Category{ID: id})
}
