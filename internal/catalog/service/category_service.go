package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ms-catalog/internal/catalog/db"
	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
)

type CategoryService struct {
	db         *db.DB
	categories *db.CategoryStore
	events     *db.EventStore
	deps       Deps
	logger     *logger.Logger
}

func NewCategoryService(d *db.DB, log *logger.Logger, deps Deps) *CategoryService {
	return &CategoryService{
		db:         d,
		categories: db.NewCategoryStore(d),
		events:     db.NewEventStore(d),
		deps:       deps.withDefaults(),
		logger:     log,
	}
}

// Create adds a category. The name must be unused: it is checked inside the
// unit of work, guarded across instances by the name lock and finally by the
// unique index on category_name.
func (s *CategoryService) Create(ctx context.Context, form models.CategoryRegForm) models.Result[models.CategoryModel] {
	form.CategoryName = strings.TrimSpace(form.CategoryName)
	if err := form.Validate(); err != nil {
		return failure[models.CategoryModel](invalid("%s", err.Error()), "")
	}

	release, err := s.claimName(ctx, form.CategoryName)
	if err != nil {
		return failure[models.CategoryModel](err, "")
	}
	defer release()

	entity := models.NewCategoryEntity(form)
	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		exists, err := s.categories.ExistsByName(ctx, entity.CategoryName, "")
		if err != nil {
			return err
		}
		if exists {
			return conflict("A category with the name %s already exists.", entity.CategoryName)
		}
		return s.categories.Create(ctx, &entity)
	})
	if err != nil {
		return s.fail(err, "create", "Something went wrong creating category.")
	}

	model := models.ToCategoryModel(entity)
	s.logger.LogDatabase("INSERT", "categories", fmt.Sprintf("Category %s (%s) created", model.CategoryName, model.ID))
	s.publish(ctx, s.deps.Topics.CategoryCreated, "created", model)
	return models.Created(model)
}

// GetAll lists every category with its events. No categories is a success.
func (s *CategoryService) GetAll(ctx context.Context) models.Result[models.CategoryModel] {
	categories, err := s.categories.ListWithEvents(ctx)
	if err != nil {
		return s.fail(err, "list", "Failed to fetch categories.")
	}
	return models.List(models.ToCategoryModels(categories))
}

func (s *CategoryService) GetOne(ctx context.Context, id string) models.Result[models.CategoryModel] {
	id = strings.TrimSpace(id)
	if id == "" {
		return failure[models.CategoryModel](invalid("Id cannot be null or empty."), "")
	}

	category, err := s.categories.GetWithEvents(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return failure[models.CategoryModel](notFound("No category with id %s was found.", id), "")
	}
	if err != nil {
		return s.fail(err, "get", "Failed to fetch category.")
	}
	return models.OK(models.ToCategoryModel(*category))
}

// Update replaces the category name, and its event associations when the form
// lists them. Renaming onto a name another category holds is a Conflict.
func (s *CategoryService) Update(ctx context.Context, id string, form models.CategoryUpdateForm) models.Result[models.CategoryModel] {
	id = strings.TrimSpace(id)
	form.CategoryName = strings.TrimSpace(form.CategoryName)
	if id == "" {
		return failure[models.CategoryModel](invalid("Id cannot be null or empty."), "")
	}
	if err := form.Validate(); err != nil {
		return failure[models.CategoryModel](invalid("%s", err.Error()), "")
	}

	release, err := s.claimName(ctx, form.CategoryName)
	if err != nil {
		return failure[models.CategoryModel](err, "")
	}
	defer release()

	var updated *models.Category
	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		category, err := s.categories.GetOne(ctx, db.WhereID(id))
		if errors.Is(err, db.ErrNotFound) {
			return notFound("No category with id %s was found.", id)
		}
		if err != nil {
			return err
		}

		taken, err := s.categories.ExistsByName(ctx, form.CategoryName, id)
		if err != nil {
			return err
		}
		if taken {
			return conflict("A category with the name %s already exists.", form.CategoryName)
		}

		category.CategoryName = form.CategoryName
		if err := s.categories.Update(ctx, category, "category_name"); err != nil {
			return err
		}

		if form.Events != nil {
			ids := models.Distinct(form.Events)
			n, err := s.events.CountExisting(ctx, ids)
			if err != nil {
				return err
			}
			if n != len(ids) {
				return invalid("One or more events do not exist.")
			}
			if err := s.categories.ReplaceEvents(ctx, id, ids); err != nil {
				return err
			}
		}

		updated, err = s.categories.GetWithEvents(ctx, id)
		return err
	})
	if err != nil {
		return s.fail(err, "update", "Something went wrong updating category.")
	}

	model := models.ToCategoryModel(*updated)
	s.publish(ctx, s.deps.Topics.CategoryUpdated, "updated", model)
	return models.OK(model)
}

// Delete removes a category and its event associations. The category must exist.
func (s *CategoryService) Delete(ctx context.Context, id string) models.Result[models.CategoryModel] {
	id = strings.TrimSpace(id)
	if id == "" {
		return failure[models.CategoryModel](invalid("Invalid id."), "")
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.categories.GetOne(ctx, db.WhereID(id)); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return notFound("No category with id %s was found.", id)
			}
			return err
		}
		return s.categories.Remove(ctx, id)
	})
	if err != nil {
		return s.fail(err, "delete", "Something went wrong deleting category.")
	}

	s.logger.LogDatabase("DELETE", "categories", fmt.Sprintf("Category %s deleted", id))
	s.publish(ctx, s.deps.Topics.CategoryDeleted, "deleted", models.CategoryModel{ID: id})
	return models.Empty[models.CategoryModel]()
}

// claimName takes the distributed name lock. A held lock means another
// instance is writing the same name right now, which is reported as Conflict.
// Lock backend errors are logged and the storage constraint is relied on.
func (s *CategoryService) claimName(ctx context.Context, name string) (func(), error) {
	owner := uuid.NewString()
	ok, err := s.deps.Locker.Lock(ctx, name, owner)
	if err != nil {
		s.logger.Warn("REDIS", fmt.Sprintf("Category name lock unavailable for %q: %v", name, err))
		return func() {}, nil
	}
	if !ok {
		return nil, conflict("A category with the name %s already exists.", name)
	}
	return func() {
		if err := s.deps.Locker.Unlock(context.WithoutCancel(ctx), name, owner); err != nil {
			s.logger.Warn("REDIS", fmt.Sprintf("Failed to release category name lock for %q: %v", name, err))
		}
	}, nil
}

func (s *CategoryService) fail(err error, op, fallback string) models.Result[models.CategoryModel] {
	res := failure[models.CategoryModel](err, fallback)
	if res.StatusCode >= 500 {
		s.logger.Error("CATEGORY", fmt.Sprintf("%s failed, unit of work rolled back: %v", op, err))
	} else {
		s.logger.Debug("CATEGORY", fmt.Sprintf("%s rejected: %s", op, res.ErrorMessage))
	}
	if errors.Is(err, db.ErrDuplicate) {
		res.ErrorMessage = "A category with that name already exists."
	}
	return res
}

func (s *CategoryService) publish(ctx context.Context, topic, action string, model models.CategoryModel) {
	msg := models.NewCatalogChange(action, model.ID, &model)
	if err := s.deps.Publisher.Publish(ctx, topic, model.ID, msg); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish category %s %s: %v", model.ID, action, err))
	}
}
