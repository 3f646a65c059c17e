package db_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-catalog/internal/catalog/db"
	"ms-catalog/internal/catalog/db/dbtest"
	"ms-catalog/internal/models"
)

func TestEventStore_CreateAndGetWithCategories(t *testing.T) {
	catalog := dbtest.New(t)
	ctx := context.Background()

	rock := dbtest.SeedCategory(t, catalog, "Rock")
	jazz := dbtest.SeedCategory(t, catalog, "Jazz")
	event := dbtest.SeedEvent(t, catalog, "Festival", 50, rock.ID, jazz.ID)

	got, err := db.NewEventStore(catalog).GetWithCategories(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Festival", got.EventName)
	assert.Equal(t, 50, got.RemainingSeats())
	assert.ElementsMatch(t, []string{rock.ID, jazz.ID}, got.CategoryIDs())
}

func TestEventStore_GetMissingReturnsNotFound(t *testing.T) {
	catalog := dbtest.New(t)

	_, err := db.NewEventStore(catalog).GetWithCategories(context.Background(), "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestEventStore_GetAllEmptyIsNotAnError(t *testing.T) {
	catalog := dbtest.New(t)

	events, err := db.NewEventStore(catalog).ListWithCategories(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestEventStore_ReplaceCategoriesIsDestructive(t *testing.T) {
	catalog := dbtest.New(t)
	ctx := context.Background()
	store := db.NewEventStore(catalog)

	a := dbtest.SeedCategory(t, catalog, "Alpha")
	b := dbtest.SeedCategory(t, catalog, "Beta")
	event := dbtest.SeedEvent(t, catalog, "Show", 10, a.ID)

	require.NoError(t, store.ReplaceCategories(ctx, event.ID, []string{b.ID, b.ID}))

	got, err := store.GetWithCategories(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, got.CategoryIDs())
}

func TestEventStore_DebitSeats(t *testing.T) {
	catalog := dbtest.New(t)
	ctx := context.Background()
	store := db.NewEventStore(catalog)
	event := dbtest.SeedEvent(t, catalog, "Concert", 5)

	left, err := store.DebitSeats(ctx, event.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, left)

	_, err = store.DebitSeats(ctx, event.ID, 3)
	assert.ErrorIs(t, err, db.ErrInsufficientSeats)

	got, err := store.GetOne(ctx, db.WhereID(event.ID))
	require.NoError(t, err)
	assert.Equal(t, 2, got.RemainingSeats(), "a rejected debit must not change seats left")
}

func TestEventStore_DebitSeatsTreatsNullAsCapacity(t *testing.T) {
	catalog := dbtest.New(t)
	ctx := context.Background()
	store := db.NewEventStore(catalog)
	event := dbtest.SeedEvent(t, catalog, "Legacy", 8)

	_, err := catalog.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("seats_left = NULL").
		Where("id = ?", event.ID).
		Exec(ctx)
	require.NoError(t, err)

	left, err := store.DebitSeats(ctx, event.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, left)
}

func TestEventStore_RemoveDeletesAssociations(t *testing.T) {
	catalog := dbtest.New(t)
	ctx := context.Background()
	store := db.NewEventStore(catalog)

	c := dbtest.SeedCategory(t, catalog, "Opera")
	event := dbtest.SeedEvent(t, catalog, "Carmen", 20, c.ID)

	require.NoError(t, store.Remove(ctx, event.ID))

	links, err := catalog.Bun.NewSelect().Model((*models.EventCategory)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, links)

	assert.ErrorIs(t, store.Remove(ctx, event.ID), db.ErrNotFound)
}

func TestCategoryStore_UniqueNameMapsToDuplicate(t *testing.T) {
	catalog := dbtest.New(t)
	ctx := context.Background()
	store := db.NewCategoryStore(catalog)

	dbtest.SeedCategory(t, catalog, "Sports")

	dup := models.NewCategoryEntity(models.CategoryRegForm{CategoryName: "Sports"})
	err := store.Create(ctx, &dup)
	assert.ErrorIs(t, err, db.ErrDuplicate)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCategoryStore_ExistsByNameExcludesSelf(t *testing.T) {
	catalog := dbtest.New(t)
	ctx := context.Background()
	store := db.NewCategoryStore(catalog)
	c := dbtest.SeedCategory(t, catalog, "Theatre")

	exists, err := store.ExistsByName(ctx, "Theatre", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ExistsByName(ctx, "Theatre", c.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCategoryStore_GetWithEvents(t *testing.T) {
	catalog := dbtest.New(t)
	ctx := context.Background()

	c := dbtest.SeedCategory(t, catalog, "Comedy")
	e1 := dbtest.SeedEvent(t, catalog, "Standup", 30, c.ID)
	dbtest.SeedEvent(t, catalog, "Unrelated", 30)

	got, err := db.NewCategoryStore(catalog).GetWithEvents(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Events, 1)
	assert.Equal(t, e1.ID, got.Events[0].ID)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	catalog := dbtest.New(t)
	ctx := context.Background()
	store := db.NewCategoryStore(catalog)
	boom := errors.New("boom")

	err := catalog.WithTx(ctx, func(ctx context.Context) error {
		c := models.NewCategoryEntity(models.CategoryRegForm{CategoryName: "Ghost"})
		require.NoError(t, store.Create(ctx, &c))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := store.ExistsByName(ctx, "Ghost", "")
	require.NoError(t, err)
	assert.False(t, exists, "rolled back insert must not be visible")
}

func TestWithTx_RejectsNestedUnitOfWork(t *testing.T) {
	catalog := dbtest.New(t)

	err := catalog.WithTx(context.Background(), func(ctx context.Context) error {
		assert.True(t, db.InTx(ctx))
		return catalog.WithTx(ctx, func(context.Context) error { return nil })
	})
	assert.ErrorIs(t, err, db.ErrTxInProgress)
}

func TestEventStore_ConcurrentDebitsNeverOversell(t *testing.T) {
	catalog := dbtest.New(t)
	ctx := context.Background()
	store := db.NewEventStore(catalog)
	event := dbtest.SeedEvent(t, catalog, "Limited", 10)

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := catalog.WithTx(ctx, func(ctx context.Context) error {
				_, err := store.DebitSeats(ctx, event.ID, 1)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, db.ErrInsufficientSeats) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 10, rejected)

	got, err := store.GetOne(ctx, db.WhereID(event.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, got.RemainingSeats())
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", &pq.Error{Code: "40P01"}, true},
		{"wrapped deadlock", fmt.Errorf("debit: %w", &pq.Error{Code: "40P01"}), true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"sqlite locked", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"not found", db.ErrNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, db.IsTransient(tt.err))
		})
	}
}
