package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-catalog/internal/logger"
	"ms-catalog/internal/models"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 10 * time.Millisecond
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader serves queued messages, then blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type MockDebiter struct {
	mock.Mock
}

func (m *MockDebiter) DebitSeats(ctx context.Context, eventID string, count int) models.Result[models.SeatDebit] {
	args := m.Called(eventID, count)
	return args.Get(0).(models.Result[models.SeatDebit])
}

func TestProducer_PublishEncodesAndKeys(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{Writer: w, Logger: logger.NewNop()}

	payload := models.SeatsDebitedEvent{EventID: "evt-1", SeatsOrdered: 2, SeatsLeft: 8}
	require.NoError(t, p.Publish(context.Background(), "catalog.seats.debited", "evt-1", payload))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "catalog.seats.debited", msg.Topic)
	assert.Equal(t, "evt-1", string(msg.Key))

	var decoded models.SeatsDebitedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, 8, decoded.SeatsLeft)
}

func TestProducer_PublishErrors(t *testing.T) {
	p := &Producer{Writer: &fakeWriter{err: errors.New("broker down")}, Logger: logger.NewNop()}

	assert.ErrorContains(t, p.Publish(context.Background(), "t", "k", 1), "broker down")
	assert.Error(t, p.Publish(context.Background(), "", "k", 1))
}

func bookingMessage(t *testing.T, req models.BookingRequest) kafka.Message {
	t.Helper()
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return kafka.Message{Topic: "catalog.booking.requested", Key: []byte(req.EventID), Value: b}
}

func TestBookingConsumer_HandleSuccess(t *testing.T) {
	debiter := new(MockDebiter)
	debiter.On("DebitSeats", "evt-1", 3).
		Return(models.OK(models.SeatDebit{EventID: "evt-1", SeatsOrdered: 3, SeatsLeft: 7})).Once()

	w := &fakeWriter{}
	c := &BookingConsumer{
		Ledger:       debiter,
		Publisher:    &Producer{Writer: w, Logger: logger.NewNop()},
		OutcomeTopic: "catalog.booking.processed",
		Logger:       logger.NewNop(),
	}

	out := c.Handle(context.Background(), bookingMessage(t, models.BookingRequest{EventID: "evt-1", SeatsOrdered: 3}))

	assert.True(t, out.Success)
	assert.Equal(t, 7, out.SeatsLeft)
	assert.NotEmpty(t, out.RequestID, "a missing request id is generated")
	require.Len(t, w.messages, 1)
	assert.Equal(t, "catalog.booking.processed", w.messages[0].Topic)
	debiter.AssertExpectations(t)
}

func TestBookingConsumer_HandleConflictIsReported(t *testing.T) {
	debiter := new(MockDebiter)
	debiter.On("DebitSeats", "evt-2", 50).
		Return(models.Fail[models.SeatDebit](http.StatusConflict, "Seats ordered exceeds available seats for event with id evt-2.")).Once()

	w := &fakeWriter{}
	c := &BookingConsumer{Ledger: debiter, Publisher: &Producer{Writer: w, Logger: logger.NewNop()}, OutcomeTopic: "out", Logger: logger.NewNop()}

	out := c.Handle(context.Background(), bookingMessage(t, models.BookingRequest{EventID: "evt-2", SeatsOrdered: 50}))

	assert.False(t, out.Success)
	assert.Equal(t, http.StatusConflict, out.StatusCode)
	require.Len(t, w.messages, 1)

	var reported models.BookingOutcome
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &reported))
	assert.Equal(t, out.Message, reported.Message)
}

func TestBookingConsumer_HandleMalformed(t *testing.T) {
	debiter := new(MockDebiter)
	c := &BookingConsumer{Ledger: debiter, Logger: logger.NewNop()}

	out := c.Handle(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.Equal(t, http.StatusBadRequest, out.StatusCode)

	out = c.Handle(context.Background(), bookingMessage(t, models.BookingRequest{RequestID: "abc", EventID: "evt", SeatsOrdered: 1}))
	assert.Equal(t, http.StatusBadRequest, out.StatusCode)

	debiter.AssertNotCalled(t, "DebitSeats", mock.Anything, mock.Anything)
}

func TestBookingConsumer_RunCommitsHandledMessages(t *testing.T) {
	debiter := new(MockDebiter)
	debiter.On("DebitSeats", mock.Anything, mock.Anything).
		Return(models.OK(models.SeatDebit{SeatsLeft: 1}))

	reader := &fakeReader{queue: []kafka.Message{
		bookingMessage(t, models.BookingRequest{EventID: "a", SeatsOrdered: 1}),
		bookingMessage(t, models.BookingRequest{EventID: "b", SeatsOrdered: 1}),
	}}
	c := &BookingConsumer{Reader: reader, Ledger: debiter, Logger: logger.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return len(reader.committed) == 2
	}, testTimeout, testTick)

	cancel()
	assert.NoError(t, <-done)
	debiter.AssertNumberOfCalls(t, "DebitSeats", 2)
}

func TestBookingConsumer_RunRetriesServerErrorsBeforeCommit(t *testing.T) {
	debiter := new(MockDebiter)
	debiter.On("DebitSeats", "evt-9", 2).
		Return(models.Fail[models.SeatDebit](http.StatusInternalServerError, "Failed to update seats left for event with id evt-9.")).Twice()
	debiter.On("DebitSeats", "evt-9", 2).
		Return(models.OK(models.SeatDebit{EventID: "evt-9", SeatsOrdered: 2, SeatsLeft: 3})).Once()

	reader := &fakeReader{queue: []kafka.Message{
		bookingMessage(t, models.BookingRequest{RequestID: "r-9", EventID: "evt-9", SeatsOrdered: 2}),
	}}
	w := &fakeWriter{}
	c := &BookingConsumer{
		Reader:        reader,
		Ledger:        debiter,
		Publisher:     &Producer{Writer: w, Logger: logger.NewNop()},
		OutcomeTopic:  "catalog.booking.processed",
		Logger:        logger.NewNop(),
		RetryInterval: time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		reader.mu.Lock()
		defer reader.mu.Unlock()
		return len(reader.committed) == 1
	}, testTimeout, testTick)

	cancel()
	assert.NoError(t, <-done)
	debiter.AssertNumberOfCalls(t, "DebitSeats", 3)

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.messages, 1, "only the settled outcome is reported")
	var reported models.BookingOutcome
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &reported))
	assert.True(t, reported.Success)
	assert.Equal(t, 3, reported.SeatsLeft)
}

func TestBookingConsumer_RunLeavesFailingMessageUncommitted(t *testing.T) {
	var attempts atomic.Int32
	debiter := new(MockDebiter)
	debiter.On("DebitSeats", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { attempts.Add(1) }).
		Return(models.Fail[models.SeatDebit](http.StatusInternalServerError, "Failed to update seats left for event with id evt-x."))

	reader := &fakeReader{queue: []kafka.Message{
		bookingMessage(t, models.BookingRequest{EventID: "evt-x", SeatsOrdered: 1}),
	}}
	w := &fakeWriter{}
	c := &BookingConsumer{
		Reader:        reader,
		Ledger:        debiter,
		Publisher:     &Producer{Writer: w, Logger: logger.NewNop()},
		OutcomeTopic:  "catalog.booking.processed",
		Logger:        logger.NewNop(),
		RetryInterval: time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		return attempts.Load() >= 3
	}, testTimeout, testTick)
	cancel()
	assert.NoError(t, <-done)

	reader.mu.Lock()
	assert.Empty(t, reader.committed)
	reader.mu.Unlock()
	w.mu.Lock()
	assert.Empty(t, w.messages)
	w.mu.Unlock()
}
