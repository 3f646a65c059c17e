// Package dbtest opens in-memory SQLite catalogs for tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-catalog/internal/catalog/db"
	"ms-catalog/internal/models"
)

// New returns a catalog DB backed by a private in-memory SQLite database with
// the schema created. The pool is pinned to one connection so every query sees
// the same database and transactions queue instead of failing with SQLITE_BUSY.
func New(t testing.TB) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	catalog := db.New(bunDB)
	require.NoError(t, catalog.CreateSchema(context.Background()))
	return catalog
}

// SeedCategory inserts a category and returns it.
func SeedCategory(t testing.TB, d *db.DB, name string) models.Category {
	t.Helper()
	c := models.NewCategoryEntity(models.CategoryRegForm{CategoryName: name})
	require.NoError(t, db.NewCategoryStore(d).Create(context.Background(), &c))
	return c
}

// SeedEvent inserts an event with the given capacity, linked to categoryIDs.
func SeedEvent(t testing.TB, d *db.DB, name string, totalSeats int, categoryIDs ...string) models.Event {
	t.Helper()
	start := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	e := models.NewEventEntity(models.EventRegForm{
		EventName:   name,
		Description: name + " description",
		Venue:       "Main Hall",
		City:        "Stockholm",
		Start:       start,
		End:         start.Add(2 * time.Hour),
		Price:       199,
		Currency:    "SEK",
		TotalSeats:  totalSeats,
	})

	ctx := context.Background()
	store := db.NewEventStore(d)
	require.NoError(t, store.Create(ctx, &e))
	require.NoError(t, store.ReplaceCategories(ctx, e.ID, categoryIDs))
	return e
}
