package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-catalog/internal/catalog/db"
	"ms-catalog/internal/catalog/db/dbtest"
	"ms-catalog/internal/catalog/service"
	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
)

func newCategoryService(catalog *db.DB, locker service.NameLocker) *service.CategoryService {
	return service.NewCategoryService(catalog, logger.NewNop(), service.Deps{Locker: locker, Topics: testTopics})
}

func categoryCount(t *testing.T, catalog *db.DB) int {
	t.Helper()
	n, err := db.NewCategoryStore(catalog).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestCategoryService_Create(t *testing.T) {
	catalog := dbtest.New(t)
	locker := new(MockLocker)
	locker.On("Lock", "Music", mock.AnythingOfType("string")).Return(true, nil).Once()
	locker.On("Unlock", "Music", mock.AnythingOfType("string")).Return(nil).Once()

	res := newCategoryService(catalog, locker).Create(context.Background(), models.CategoryRegForm{CategoryName: " Music "})

	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "Music", res.Data.CategoryName)
	assert.NotEmpty(t, res.Data.ID)
	locker.AssertExpectations(t)
}

func TestCategoryService_CreateDuplicateIsConflictAndWritesNothing(t *testing.T) {
	catalog := dbtest.New(t)
	dbtest.SeedCategory(t, catalog, "Sports")
	svc := newCategoryService(catalog, nil)

	res := svc.Create(context.Background(), models.CategoryRegForm{CategoryName: "Sports"})

	assert.False(t, res.Success)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "A category with the name Sports already exists.", res.ErrorMessage)
	assert.Equal(t, 1, categoryCount(t, catalog))
}

func TestCategoryService_CreateWhileNameLockedIsConflict(t *testing.T) {
	catalog := dbtest.New(t)
	locker := new(MockLocker)
	locker.On("Lock", "Film", mock.Anything).Return(false, nil).Once()

	res := newCategoryService(catalog, locker).Create(context.Background(), models.CategoryRegForm{CategoryName: "Film"})

	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Zero(t, categoryCount(t, catalog))
	locker.AssertNotCalled(t, "Unlock", mock.Anything, mock.Anything)
}

func TestCategoryService_CreateSurvivesLockBackendFailure(t *testing.T) {
	catalog := dbtest.New(t)
	locker := new(MockLocker)
	locker.On("Lock", "Art", mock.Anything).Return(false, errors.New("redis down")).Once()

	res := newCategoryService(catalog, locker).Create(context.Background(), models.CategoryRegForm{CategoryName: "Art"})

	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, 1, categoryCount(t, catalog))
}

func TestCategoryService_CreateInvalidName(t *testing.T) {
	res := newCategoryService(dbtest.New(t), nil).Create(context.Background(), models.CategoryRegForm{CategoryName: "x"})

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "Category name must be between 2 and 20 characters.", res.ErrorMessage)
}

func TestCategoryService_GetAllAndGetOne(t *testing.T) {
	catalog := dbtest.New(t)
	svc := newCategoryService(catalog, nil)

	empty := svc.GetAll(context.Background())
	assert.True(t, empty.Success)
	assert.Empty(t, empty.DataList)

	c := dbtest.SeedCategory(t, catalog, "Dance")
	dbtest.SeedEvent(t, catalog, "Ballet", 60, c.ID)

	all := svc.GetAll(context.Background())
	require.True(t, all.Success)
	require.Len(t, all.DataList, 1)
	assert.Len(t, all.DataList[0].Events, 1)

	one := svc.GetOne(context.Background(), c.ID)
	require.True(t, one.Success)
	assert.Equal(t, "Dance", one.Data.CategoryName)

	missing := svc.GetOne(context.Background(), "nope")
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestCategoryService_UpdateRenameAndRelink(t *testing.T) {
	catalog := dbtest.New(t)
	c := dbtest.SeedCategory(t, catalog, "Kids")
	e := dbtest.SeedEvent(t, catalog, "Puppets", 20)
	svc := newCategoryService(catalog, nil)

	res := svc.Update(context.Background(), c.ID, models.CategoryUpdateForm{CategoryName: "Family", Events: []string{e.ID}})

	require.True(t, res.Success, res.ErrorMessage)
	assert.Equal(t, "Family", res.Data.CategoryName)
	require.Len(t, res.Data.Events, 1)
	assert.Equal(t, e.ID, res.Data.Events[0].ID)
}

func TestCategoryService_UpdateOntoTakenNameIsConflict(t *testing.T) {
	catalog := dbtest.New(t)
	dbtest.SeedCategory(t, catalog, "Rock")
	pop := dbtest.SeedCategory(t, catalog, "Pop")
	svc := newCategoryService(catalog, nil)

	res := svc.Update(context.Background(), pop.ID, models.CategoryUpdateForm{CategoryName: "Rock"})
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	same := svc.Update(context.Background(), pop.ID, models.CategoryUpdateForm{CategoryName: "Pop"})
	assert.True(t, same.Success, "keeping its own name is not a conflict")
}

func TestCategoryService_DeleteMissingIsNotFound(t *testing.T) {
	catalog := dbtest.New(t)
	dbtest.SeedCategory(t, catalog, "Stays")

	res := newCategoryService(catalog, nil).Delete(context.Background(), "ghost")

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, 1, categoryCount(t, catalog))
}

func TestCategoryService_DeleteUnlinksEvents(t *testing.T) {
	catalog := dbtest.New(t)
	c := dbtest.SeedCategory(t, catalog, "Temp")
	e := dbtest.SeedEvent(t, catalog, "Linked", 10, c.ID)

	res := newCategoryService(catalog, nil).Delete(context.Background(), c.ID)
	require.True(t, res.Success, res.ErrorMessage)

	got, err := db.NewEventStore(catalog).GetWithCategories(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Categories)
}
