package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ms-catalog/internal/catalog/db"
	"ms-catalog/internal/config"
	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
)

// SeatStore is the storage a debit reads and writes through.
type SeatStore interface {
	GetOne(ctx context.Context, opts ...db.QueryOption) (*models.Event, error)
	DebitSeats(ctx context.Context, id string, count int) (int, error)
}

// SeatLedger owns the seats-left counter of every event. DebitSeats is the
// only code path that decrements it.
type SeatLedger struct {
	db             *db.DB
	events         SeatStore
	deps           Deps
	logger         *logger.Logger
	tracer         trace.Tracer
	maxRetries     int
	initialBackoff time.Duration
}

func NewSeatLedger(d *db.DB, log *logger.Logger, cfg config.LedgerConfig, deps Deps) *SeatLedger {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 20 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &SeatLedger{
		db:             d,
		events:         db.NewEventStore(d),
		deps:           deps.withDefaults(),
		logger:         log,
		tracer:         otel.Tracer("ms-catalog/ledger"),
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
	}
}

// DebitSeats takes count seats from the event and returns what is left.
//
// Checks run in order and stop at the first failure: a blank id or a
// non-positive count is InvalidInput (400) and touches no storage; an unknown
// event is NotFound (404); a count above the seats left is Conflict (409).
// The debit itself is one conditional update inside a unit of work, so a lost
// race against a concurrent debit also ends as Conflict, and any storage
// failure rolls the whole unit back. Serialization failures and deadlocks are
// retried a bounded number of times.
func (l *SeatLedger) DebitSeats(ctx context.Context, eventID string, count int) models.Result[models.SeatDebit] {
	eventID = strings.TrimSpace(eventID)

	ctx, span := l.tracer.Start(ctx, "ledger.DebitSeats", trace.WithAttributes(
		attribute.String("catalog.event_id", eventID),
		attribute.Int("catalog.seats_ordered", count),
	))
	defer span.End()

	if eventID == "" || count <= 0 {
		span.SetStatus(codes.Error, "invalid input")
		return failure[models.SeatDebit](invalid("Invalid data. Either eventId or seats are missing."), "")
	}

	var left int
	attempt := 0
	op := func() error {
		attempt++
		err := l.db.WithTx(ctx, func(ctx context.Context) error {
			var err error
			left, err = l.debitInTx(ctx, eventID, count)
			return err
		})
		if err == nil || db.IsTransient(err) {
			if err != nil {
				l.logger.Warn("LEDGER", fmt.Sprintf("Transient failure debiting event %s (attempt %d): %v", eventID, attempt, err))
			}
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = l.initialBackoff
	policy.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(l.maxRetries)), ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		res := failure[models.SeatDebit](err, fmt.Sprintf("Failed to update seats left for event with id %s.", eventID))
		if res.StatusCode >= http.StatusInternalServerError {
			l.logger.Error("LEDGER", fmt.Sprintf("Debit of %d seats on event %s rolled back: %v", count, eventID, err))
		} else {
			l.logger.Warn("LEDGER", fmt.Sprintf("Debit of %d seats on event %s rejected: %s", count, eventID, res.ErrorMessage))
		}
		return res
	}

	debit := models.SeatDebit{EventID: eventID, SeatsOrdered: count, SeatsLeft: left}
	span.SetAttributes(attribute.Int("catalog.seats_left", left))
	l.logger.LogLedger("DEBIT", eventID, fmt.Sprintf("%d seats debited, %d left", count, left))

	if err := l.deps.Publisher.Publish(ctx, l.deps.Topics.SeatsDebited, eventID, models.NewSeatsDebitedEvent(debit)); err != nil {
		l.logger.Error("KAFKA", fmt.Sprintf("Failed to publish seats debited for event %s: %v", eventID, err))
	}

	return models.OK(debit)
}

func (l *SeatLedger) debitInTx(ctx context.Context, eventID string, count int) (int, error) {
	event, err := l.events.GetOne(ctx, db.WhereID(eventID))
	if errors.Is(err, db.ErrNotFound) {
		return 0, notFound("No event found with id %s.", eventID)
	}
	if err != nil {
		return 0, fmt.Errorf("load event %s: %w", eventID, err)
	}

	if count > event.RemainingSeats() {
		return 0, conflict("Seats ordered exceeds available seats for event with id %s.", eventID)
	}

	left, err := l.events.DebitSeats(ctx, eventID, count)
	if errors.Is(err, db.ErrInsufficientSeats) {
		return 0, conflict("Seats ordered exceeds available seats for event with id %s.", eventID)
	}
	if err != nil {
		return 0, fmt.Errorf("debit event %s: %w", eventID, err)
	}
	return left, nil
}
