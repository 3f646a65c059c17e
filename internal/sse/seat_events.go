package sse

import (
	"context"
	"sync"

	"ms-catalog/internal/models"
)

// SeatEmitter fans seat debits out to SSE clients watching an event.
type SeatEmitter struct {
	mu      sync.RWMutex
	clients map[string][]chan models.SeatsDebitedEvent
}

func NewSeatEmitter() *SeatEmitter {
	return &SeatEmitter{clients: make(map[string][]chan models.SeatsDebitedEvent)}
}

// Subscribe registers a client for eventID. The channel is closed once ctx ends.
func (e *SeatEmitter) Subscribe(ctx context.Context, eventID string) <-chan models.SeatsDebitedEvent {
	ch := make(chan models.SeatsDebitedEvent, 10)

	e.mu.Lock()
	e.clients[eventID] = append(e.clients[eventID], ch)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(eventID, ch)
	}()
	return ch
}

// Emit delivers ev to every subscriber of its event. Slow clients whose
// buffer is full miss the update rather than stall the caller.
func (e *SeatEmitter) Emit(ev models.SeatsDebitedEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ch := range e.clients[ev.EventID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Publish lets the emitter sit behind the catalog's publisher port. Only seat
// debits are streamed; every other payload is ignored.
func (e *SeatEmitter) Publish(_ context.Context, _, _ string, payload any) error {
	switch ev := payload.(type) {
	case models.SeatsDebitedEvent:
		e.Emit(ev)
	case *models.SeatsDebitedEvent:
		e.Emit(*ev)
	}
	return nil
}

func (e *SeatEmitter) remove(eventID string, ch chan models.SeatsDebitedEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[eventID]
	for i, c := range clients {
		if c == ch {
			e.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(e.clients[eventID]) == 0 {
		delete(e.clients, eventID)
	}
}

// ClientCount returns the number of clients currently watching eventID.
func (e *SeatEmitter) ClientCount(eventID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[eventID])
}
