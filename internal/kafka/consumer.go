package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"

	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SeatDebiter applies a booking against an event's seat inventory.
type SeatDebiter interface {
	DebitSeats(ctx context.Context, eventID string, count int) models.Result[models.SeatDebit]
}

type OutcomePublisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// BookingConsumer turns booking requests from Kafka into seat debits and
// reports each outcome on a second topic.
type BookingConsumer struct {
	Reader       MessageReader
	Ledger       SeatDebiter
	Publisher    OutcomePublisher
	OutcomeTopic string
	Logger       *logger.Logger
	// RetryInterval is the first wait before a server error is retried.
	RetryInterval time.Duration
}

func NewBookingConsumer(brokers []string, topic, groupID, outcomeTopic string, ledger SeatDebiter, pub OutcomePublisher, log *logger.Logger) *BookingConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
	})
	return &BookingConsumer{
		Reader:       reader,
		Ledger:       ledger,
		Publisher:    pub,
		OutcomeTopic: outcomeTopic,
		Logger:       log,
	}
}

// Run consumes until ctx is cancelled. Requests that end in a client error
// (400, 404, 409) are reported and committed. A server error means the debit
// rolled back, so the same message is retried with backoff and its offset is
// only committed once it settles; cancelling mid-retry leaves it uncommitted
// for redelivery.
func (c *BookingConsumer) Run(ctx context.Context) error {
	c.Logger.LogKafka("CONSUME", c.OutcomeTopic, "booking consumer started")
	for {
		msg, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.Logger.Error("KAFKA", fmt.Sprintf("Error reading booking request: %v", err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		outcome, err := c.settle(ctx, msg)
		if err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Booking at offset %d left uncommitted: %v", msg.Offset, err))
			return nil
		}
		c.report(ctx, outcomeKey(msg, outcome), outcome)

		if err := c.Reader.CommitMessages(ctx, msg); err != nil {
			c.Logger.Error("KAFKA", fmt.Sprintf("Failed to commit offset %d on %s: %v", msg.Offset, msg.Topic, err))
		}
	}
}

// settle applies msg until it ends in anything but a server error.
func (c *BookingConsumer) settle(ctx context.Context, msg kafka.Message) (models.BookingOutcome, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.RetryInterval
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = 500 * time.Millisecond
	}
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0

	var outcome models.BookingOutcome
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		outcome = c.apply(ctx, msg)
		if outcome.StatusCode >= http.StatusInternalServerError {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Booking %s for event %s failed (attempt %d): %s", outcome.RequestID, outcome.EventID, attempt, outcome.Message))
			return fmt.Errorf("booking %s: status %d", outcome.RequestID, outcome.StatusCode)
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	return outcome, err
}

// Handle applies one booking request and publishes its outcome.
func (c *BookingConsumer) Handle(ctx context.Context, msg kafka.Message) models.BookingOutcome {
	outcome := c.apply(ctx, msg)
	c.report(ctx, outcomeKey(msg, outcome), outcome)
	return outcome
}

func (c *BookingConsumer) apply(ctx context.Context, msg kafka.Message) models.BookingOutcome {
	var req models.BookingRequest
	outcome := models.BookingOutcome{}

	if err := json.Unmarshal(msg.Value, &req); err != nil {
		c.Logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal booking request at offset %d: %v", msg.Offset, err))
		outcome.StatusCode = http.StatusBadRequest
		outcome.Message = "Malformed booking request."
		return outcome
	}
	if err := req.Normalize(); err != nil {
		outcome.EventID = req.EventID
		outcome.StatusCode = http.StatusBadRequest
		outcome.Message = err.Error()
		return outcome
	}

	res := c.Ledger.DebitSeats(ctx, req.EventID, req.SeatsOrdered)
	outcome = models.BookingOutcome{
		RequestID:    req.RequestID,
		EventID:      req.EventID,
		Success:      res.Success,
		StatusCode:   res.StatusCode,
		Message:      res.ErrorMessage,
		SeatsOrdered: req.SeatsOrdered,
	}
	if res.Success && res.Data != nil {
		outcome.SeatsLeft = res.Data.SeatsLeft
	}

	c.Logger.LogKafka("BOOKING", req.EventID, fmt.Sprintf("request %s -> %d", req.RequestID, outcome.StatusCode))
	return outcome
}

func outcomeKey(msg kafka.Message, outcome models.BookingOutcome) string {
	if outcome.EventID != "" {
		return outcome.EventID
	}
	return string(msg.Key)
}

func (c *BookingConsumer) report(ctx context.Context, key string, outcome models.BookingOutcome) {
	if c.Publisher == nil || c.OutcomeTopic == "" {
		return
	}
	if err := c.Publisher.Publish(ctx, c.OutcomeTopic, key, outcome); err != nil {
		c.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish booking outcome for %s: %v", outcome.RequestID, err))
	}
}

func (c *BookingConsumer) Close() error {
	return c.Reader.Close()
}
