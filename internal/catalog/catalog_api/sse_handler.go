package catalog_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-catalog/internal/models"
	"ms-catalog/internal/utils"
)

// SeatStream is the subscription side of the seat emitter.
type SeatStream interface {
	Subscribe(ctx context.Context, eventID string) <-chan models.SeatsDebitedEvent
	ClientCount(eventID string) int
}

// StreamSeats pushes the seats left of one event as Server-Sent Events: a
// snapshot first, then one "seats" message per committed debit.
func (h *Handler) StreamSeats(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, "Streaming unsupported.", "")
		return
	}

	res := h.Events.GetOne(r.Context(), eventID)
	if !res.Success {
		writeResult(w, res, "")
		return
	}

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	ctx := r.Context()
	updates := h.Seats.Subscribe(ctx, eventID)

	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	writeSSE(w, "seats", models.SeatsDebitedEvent{EventID: eventID, SeatsLeft: res.Data.SeatsLeft})
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to seat updates for event: %s (%d watching)", eventID, h.Seats.ClientCount(eventID)))

	for {
		select {
		case ev, ok := <-updates:
			if !ok {
				return
			}
			writeSSE(w, "seats", ev)
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from seat updates for: %s", eventID))
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
