package db

import (
	"context"

	"github.com/uptrace/bun"
)

// QueryOption narrows or shapes a select. Options compose left to right.
type QueryOption func(*bun.SelectQuery) *bun.SelectQuery

func WhereID(id string) QueryOption {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id = ?", id)
	}
}

func WhereIDs(ids []string) QueryOption {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id IN (?)", bun.In(ids))
	}
}

func Where(query string, args ...any) QueryOption {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where(query, args...)
	}
}

func WithRelation(name string) QueryOption {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Relation(name)
	}
}

func OrderBy(expr string) QueryOption {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr(expr)
	}
}

// Repository is the generic data access shared by the catalog stores. T is a
// bun model struct with an "id" primary key.
type Repository[T any] struct {
	db *DB
}

func NewRepository[T any](d *DB) *Repository[T] {
	return &Repository[T]{db: d}
}

func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	_, err := r.db.Conn(ctx).NewInsert().Model(entity).Exec(ctx)
	return mapError(err)
}

// GetAll returns every matching row. No rows is an empty slice, not an error.
func (r *Repository[T]) GetAll(ctx context.Context, opts ...QueryOption) ([]T, error) {
	items := make([]T, 0)
	q := r.db.Conn(ctx).NewSelect().Model(&items)
	for _, opt := range opts {
		q = opt(q)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, mapError(err)
	}
	return items, nil
}

// GetOne returns the first matching row or ErrNotFound.
func (r *Repository[T]) GetOne(ctx context.Context, opts ...QueryOption) (*T, error) {
	entity := new(T)
	q := r.db.Conn(ctx).NewSelect().Model(entity)
	for _, opt := range opts {
		q = opt(q)
	}
	if err := q.Limit(1).Scan(ctx); err != nil {
		return nil, mapError(err)
	}
	return entity, nil
}

func (r *Repository[T]) Exists(ctx context.Context, opts ...QueryOption) (bool, error) {
	q := r.db.Conn(ctx).NewSelect().Model((*T)(nil))
	for _, opt := range opts {
		q = opt(q)
	}
	ok, err := q.Exists(ctx)
	return ok, mapError(err)
}

func (r *Repository[T]) Count(ctx context.Context, opts ...QueryOption) (int, error) {
	q := r.db.Conn(ctx).NewSelect().Model((*T)(nil))
	for _, opt := range opts {
		q = opt(q)
	}
	n, err := q.Count(ctx)
	return n, mapError(err)
}

// Update writes the given columns of entity (all columns when none are given),
// matched by primary key. ErrNotFound when no row matched.
func (r *Repository[T]) Update(ctx context.Context, entity *T, columns ...string) error {
	q := r.db.Conn(ctx).NewUpdate().Model(entity).WherePK()
	if len(columns) > 0 {
		q = q.Column(columns...)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	return requireRows(res)
}

// Delete removes entity by primary key. ErrNotFound when no row matched.
func (r *Repository[T]) Delete(ctx context.Context, entity *T) error {
	res, err := r.db.Conn(ctx).NewDelete().Model(entity).WherePK().Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	return requireRows(res)
}

type rowsResult interface {
	RowsAffected() (int64, error)
}

func requireRows(res rowsResult) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
