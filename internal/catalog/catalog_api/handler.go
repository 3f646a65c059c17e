package catalog_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
	"ms-catalog/internal/utils"
)

type EventService interface {
	Create(ctx context.Context, form models.EventRegForm) models.Result[models.EventModel]
	GetAll(ctx context.Context) models.Result[models.EventModel]
	GetOne(ctx context.Context, id string) models.Result[models.EventModel]
	Update(ctx context.Context, id string, form models.EventUpdateForm) models.Result[models.EventModel]
	Delete(ctx context.Context, id string) models.Result[models.EventModel]
}

type CategoryService interface {
	Create(ctx context.Context, form models.CategoryRegForm) models.Result[models.CategoryModel]
	GetAll(ctx context.Context) models.Result[models.CategoryModel]
	GetOne(ctx context.Context, id string) models.Result[models.CategoryModel]
	Update(ctx context.Context, id string, form models.CategoryUpdateForm) models.Result[models.CategoryModel]
	Delete(ctx context.Context, id string) models.Result[models.CategoryModel]
}

type SeatLedger interface {
	DebitSeats(ctx context.Context, eventID string, count int) models.Result[models.SeatDebit]
}

type Handler struct {
	Events     EventService
	Categories CategoryService
	Ledger     SeatLedger
	Seats      SeatStream
	Logger     *logger.Logger
}

func NewHandler(events EventService, categories CategoryService, ledger SeatLedger, log *logger.Logger) *Handler {
	return &Handler{
		Events:     events,
		Categories: categories,
		Ledger:     ledger,
		Logger:     log,
	}
}

// SeatsRequest is the body of a seat debit.
type SeatsRequest struct {
	SeatsOrdered int `json:"seatsOrdered"`
}

// RegisterRoutes mounts the catalog API on r. Mutating routes are wrapped by
// protect when it is non-nil.
func (h *Handler) RegisterRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	guarded := func(r chi.Router) chi.Router {
		if protect == nil {
			return r
		}
		return r.With(protect)
	}

	r.Route("/api/category", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/{id}", h.GetCategory)
		guarded(r).Post("/create", h.CreateCategory)
		guarded(r).Put("/{id}", h.UpdateCategory)
		guarded(r).Delete("/{id}", h.DeleteCategory)
	})

	r.Route("/api/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Get("/event{id}", h.GetEvent)
		guarded(r).Post("/create", h.CreateEvent)
		guarded(r).Put("/{id}", h.UpdateEvent)
		guarded(r).Delete("/{id}", h.DeleteEvent)
		guarded(r).Post("/{id}/seats", h.DebitSeats)
		if h.Seats != nil {
			r.Get("/{id}/seats/stream", h.StreamSeats)
		}
	})
}

// Health reports liveness only.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, "ok", nil)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var form models.CategoryRegForm
	if !h.decode(w, r, "CreateCategory", &form) {
		return
	}
	res := h.Categories.Create(r.Context(), form)
	h.Logger.Info("API", fmt.Sprintf("CreateCategory: name=%q status=%d", form.CategoryName, res.StatusCode))
	writeResult(w, res, "Category created")
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.Categories.GetAll(r.Context()), "Categories retrieved")
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.Categories.GetOne(r.Context(), chi.URLParam(r, "id")), "Category retrieved")
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var form models.CategoryUpdateForm
	if !h.decode(w, r, "UpdateCategory", &form) {
		return
	}
	res := h.Categories.Update(r.Context(), id, form)
	h.Logger.Info("API", fmt.Sprintf("UpdateCategory: id=%s status=%d", id, res.StatusCode))
	writeResult(w, res, "Category updated")
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := h.Categories.Delete(r.Context(), id)
	h.Logger.Info("API", fmt.Sprintf("DeleteCategory: id=%s status=%d", id, res.StatusCode))
	writeResult(w, res, "Category deleted")
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var form models.EventRegForm
	if !h.decode(w, r, "CreateEvent", &form) {
		return
	}
	res := h.Events.Create(r.Context(), form)
	h.Logger.Info("API", fmt.Sprintf("CreateEvent: name=%q status=%d", form.EventName, res.StatusCode))
	writeResult(w, res, "Event created")
}

// ListEvents answers 404 when the catalog holds no events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	res := h.Events.GetAll(r.Context())
	if res.Success && len(res.DataList) == 0 {
		utils.WriteError(w, http.StatusNotFound, "No events found.", "")
		return
	}
	writeResult(w, res, "Events retrieved")
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.Events.GetOne(r.Context(), chi.URLParam(r, "id")), "Event retrieved")
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var form models.EventUpdateForm
	if !h.decode(w, r, "UpdateEvent", &form) {
		return
	}
	res := h.Events.Update(r.Context(), id, form)
	h.Logger.Info("API", fmt.Sprintf("UpdateEvent: id=%s status=%d", id, res.StatusCode))
	writeResult(w, res, "Event updated")
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res := h.Events.Delete(r.Context(), id)
	h.Logger.Info("API", fmt.Sprintf("DeleteEvent: id=%s status=%d", id, res.StatusCode))
	writeResult(w, res, "Event deleted")
}

func (h *Handler) DebitSeats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SeatsRequest
	if !h.decode(w, r, "DebitSeats", &req) {
		return
	}
	res := h.Ledger.DebitSeats(r.Context(), id, req.SeatsOrdered)
	h.Logger.LogLedger("DEBIT_API", id, fmt.Sprintf("seats=%d status=%d", req.SeatsOrdered, res.StatusCode))
	writeResult(w, res, "Seats debited")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, op string, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.Logger.Warn("API", fmt.Sprintf("%s: failed to decode body: %v", op, err))
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body.", err.Error())
		return false
	}
	return true
}

// writeResult maps a service result onto the response envelope. Single
// entities go out as data, collections as a list.
func writeResult[T any](w http.ResponseWriter, res models.Result[T], message string) {
	if !res.Success {
		utils.WriteError(w, res.StatusCode, res.ErrorMessage, http.StatusText(res.StatusCode))
		return
	}
	var data any
	switch {
	case res.Data != nil:
		data = res.Data
	case res.DataList != nil:
		data = res.DataList
	}
	utils.WriteSuccess(w, res.StatusCode, message, data)
}
