package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ms-catalog/internal/catalog/db"
	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
)

type EventService struct {
	db         *db.DB
	events     *db.EventStore
	categories *db.CategoryStore
	deps       Deps
	logger     *logger.Logger
}

func NewEventService(d *db.DB, log *logger.Logger, deps Deps) *EventService {
	return &EventService{
		db:         d,
		events:     db.NewEventStore(d),
		categories: db.NewCategoryStore(d),
		deps:       deps.withDefaults(),
		logger:     log,
	}
}

// Create stores a new event with seats left equal to its capacity and links
// the listed categories, all in one unit of work.
func (s *EventService) Create(ctx context.Context, form models.EventRegForm) models.Result[models.EventModel] {
	if err := form.Validate(); err != nil {
		return failure[models.EventModel](invalid("%s", err.Error()), "")
	}

	entity := models.NewEventEntity(form)
	var created *models.Event
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		ids := form.CategoryIDs()
		if err := s.requireCategories(ctx, ids); err != nil {
			return err
		}
		if err := s.events.Create(ctx, &entity); err != nil {
			return err
		}
		if err := s.events.ReplaceCategories(ctx, entity.ID, ids); err != nil {
			return err
		}
		var err error
		created, err = s.events.GetWithCategories(ctx, entity.ID)
		return err
	})
	if err != nil {
		return s.fail(err, "create", "Something went wrong creating event.")
	}

	model := models.ToEventModel(*created)
	s.logger.LogDatabase("INSERT", "events", fmt.Sprintf("Event %s (%s) created with %d seats", model.EventName, model.ID, model.TotalSeats))
	s.publish(ctx, s.deps.Topics.EventCreated, "created", model)
	return models.Created(model)
}

// GetAll lists every event with its categories. No events is a success with
// an empty list.
func (s *EventService) GetAll(ctx context.Context) models.Result[models.EventModel] {
	events, err := s.events.ListWithCategories(ctx)
	if err != nil {
		return s.fail(err, "list", "Failed to fetch events.")
	}
	return models.List(models.ToEventModels(events))
}

func (s *EventService) GetOne(ctx context.Context, id string) models.Result[models.EventModel] {
	id = strings.TrimSpace(id)
	if id == "" {
		return failure[models.EventModel](invalid("Id cannot be null or empty."), "")
	}

	event, err := s.events.GetWithCategories(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return failure[models.EventModel](notFound("No event with id %s was found.", id), "")
	}
	if err != nil {
		return s.fail(err, "get", "Failed to fetch event.")
	}
	return models.OK(models.ToEventModel(*event))
}

// Update replaces every mutable field and regenerates the category links from
// the form. Capacity and seats left are untouched.
func (s *EventService) Update(ctx context.Context, id string, form models.EventUpdateForm) models.Result[models.EventModel] {
	id = strings.TrimSpace(id)
	if id == "" {
		return failure[models.EventModel](invalid("Id cannot be null or empty."), "")
	}
	if err := form.Validate(); err != nil {
		return failure[models.EventModel](invalid("%s", err.Error()), "")
	}

	var updated *models.Event
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetOne(ctx, db.WhereID(id))
		if errors.Is(err, db.ErrNotFound) {
			return notFound("No event with id %s was found.", id)
		}
		if err != nil {
			return err
		}

		ids := form.CategoryIDs()
		if err := s.requireCategories(ctx, ids); err != nil {
			return err
		}

		models.ApplyEventUpdate(event, form)
		if err := s.events.Update(ctx, event, models.EventMutableColumns...); err != nil {
			return err
		}
		if err := s.events.ReplaceCategories(ctx, id, ids); err != nil {
			return err
		}

		updated, err = s.events.GetWithCategories(ctx, id)
		return err
	})
	if err != nil {
		return s.fail(err, "update", "Something went wrong updating event.")
	}

	model := models.ToEventModel(*updated)
	s.publish(ctx, s.deps.Topics.EventUpdated, "updated", model)
	return models.OK(model)
}

// Delete removes an event and its category links. The event must exist.
func (s *EventService) Delete(ctx context.Context, id string) models.Result[models.EventModel] {
	id = strings.TrimSpace(id)
	if id == "" {
		return failure[models.EventModel](invalid("Invalid id."), "")
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.events.GetOne(ctx, db.WhereID(id)); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return notFound("No event with id %s was found.", id)
			}
			return err
		}
		return s.events.Remove(ctx, id)
	})
	if err != nil {
		return s.fail(err, "delete", "Something went wrong deleting event.")
	}

	s.logger.LogDatabase("DELETE", "events", fmt.Sprintf("Event %s deleted", id))
	s.publish(ctx, s.deps.Topics.EventDeleted, "deleted", models.EventModel{ID: id})
	return models.Empty[models.EventModel]()
}

func (s *EventService) requireCategories(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := s.categories.CountExisting(ctx, ids)
	if err != nil {
		return err
	}
	if n != len(ids) {
		return invalid("One or more categories do not exist.")
	}
	return nil
}

func (s *EventService) fail(err error, op, fallback string) models.Result[models.EventModel] {
	res := failure[models.EventModel](err, fallback)
	if res.StatusCode >= 500 {
		s.logger.Error("EVENTS", fmt.Sprintf("%s failed, unit of work rolled back: %v", op, err))
	} else {
		s.logger.Debug("EVENTS", fmt.Sprintf("%s rejected: %s", op, res.ErrorMessage))
	}
	return res
}

func (s *EventService) publish(ctx context.Context, topic, action string, model models.EventModel) {
	msg := models.NewCatalogChange(action, model.ID, &model)
	if err := s.deps.Publisher.Publish(ctx, topic, model.ID, msg); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Failed to publish event %s %s: %v", model.ID, action, err))
	}
}
