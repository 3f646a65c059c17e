package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"ms-catalog/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("duplicate record")
	ErrInsufficientSeats = errors.New("insufficient seats left")
	ErrTxInProgress      = errors.New("a transaction is already in progress for this unit of work")
)

type DB struct {
	Bun *bun.DB
}

// New wraps a bun.DB and registers the association model the m2m relations need.
func New(bunDB *bun.DB) *DB {
	bunDB.RegisterModel((*models.EventCategory)(nil))
	return &DB{Bun: bunDB}
}

type txKey struct{}

// WithTx runs fn as one unit of work. The transaction travels in the context
// handed to fn; every store method called with that context joins it. It is
// committed when fn returns nil and rolled back on error or panic.
//
// Calling WithTx with a context that already carries a transaction returns
// ErrTxInProgress.
func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return ErrTxInProgress
	}
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// InTx reports whether ctx carries an active unit of work.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bun.Tx)
	return ok
}

// Conn returns the transaction bound to ctx, or the pool when there is none.
func (d *DB) Conn(ctx context.Context) bun.IDB {
	if tx, ok := ctx.Value(txKey{}).(bun.Tx); ok {
		return tx
	}
	return d.Bun
}

// CreateSchema creates the catalog tables when missing. Production schemas come
// from the SQL migrations; this is for SQLite-backed tests and local runs.
func (d *DB) CreateSchema(ctx context.Context) error {
	for _, model := range []any{(*models.Category)(nil), (*models.Event)(nil), (*models.EventCategory)(nil)} {
		if _, err := d.Bun.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// mapError converts driver errors into the package sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsTransient reports errors worth retrying the whole unit of work for:
// serialization failures, deadlocks and a busy SQLite database.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
