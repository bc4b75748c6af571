package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/pkg/logger"
)

type MockWriter struct {
	Messages []kafka.Message
	Err      error
	Closed   bool
	// CtxErr captures the context state seen by WriteMessages
	CtxErr error
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.CtxErr = ctx.Err()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, msgs...)
	return nil
}

func (m *MockWriter) Close() error {
	m.Closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestOrderSubmitted(t *testing.T) {
	w := &MockWriter{}
	p := New(w, logger.Discard())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	order := &domain.OrderConfirmation{OrderID: "order_1", CartID: "cart_1", Email: "a@b.com", Total: 10, CurrencyCode: "eur"}
	require.NoError(t, p.OrderSubmitted(context.Background(), order))

	require.Len(t, w.Messages, 1)
	msg := w.Messages[0]
	assert.Equal(t, "cart_1", string(msg.Key))
	assert.Equal(t, EventOrderSubmitted, header(msg, "event_type"))

	var ev Event
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, EventOrderSubmitted, ev.Type)
	assert.Equal(t, header(msg, "event_id"), ev.ID)
	assert.NotEmpty(t, ev.ID)
	assert.True(t, fixed.Equal(ev.OccurredAt))

	var got domain.OrderConfirmation
	require.NoError(t, json.Unmarshal(ev.Payload, &got))
	assert.Equal(t, *order, got)
}

func TestCartMismatch(t *testing.T) {
	w := &MockWriter{}
	p := New(w, logger.Discard())

	report := &domain.MismatchReport{
		CartID:     "cart_9",
		CustomerID: "cus_1",
		Reasons:    []domain.MismatchReason{domain.MismatchReasonEmail},
	}
	require.NoError(t, p.CartMismatch(context.Background(), report))

	require.Len(t, w.Messages, 1)
	assert.Equal(t, "cart_9", string(w.Messages[0].Key))
	assert.Equal(t, EventCartMismatch, header(w.Messages[0], "event_type"))
}

func TestPublish_EventIDsAreUnique(t *testing.T) {
	w := &MockWriter{}
	p := New(w, logger.Discard())
	order := &domain.OrderConfirmation{OrderID: "order_1", CartID: "cart_1"}

	require.NoError(t, p.OrderSubmitted(context.Background(), order))
	require.NoError(t, p.OrderSubmitted(context.Background(), order))

	require.Len(t, w.Messages, 2)
	assert.NotEqual(t, header(w.Messages[0], "event_id"), header(w.Messages[1], "event_id"))
}

func TestPublish_SurvivesFinishedRequest(t *testing.T) {
	w := &MockWriter{}
	p := New(w, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.OrderSubmitted(ctx, &domain.OrderConfirmation{CartID: "cart_1"}))
	assert.NoError(t, w.CtxErr)
}

func TestPublish_WriterError(t *testing.T) {
	w := &MockWriter{Err: errors.New("leader not available")}
	p := New(w, logger.Discard())

	err := p.OrderSubmitted(context.Background(), &domain.OrderConfirmation{CartID: "cart_1"})

	assert.ErrorContains(t, err, "leader not available")
}

func TestClose(t *testing.T) {
	w := &MockWriter{}
	require.NoError(t, New(w, nil).Close())
	assert.True(t, w.Closed)

	assert.NoError(t, Nop{}.Close())
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter("checkout-events", "localhost:9092")
	defer w.Close()

	assert.Equal(t, "checkout-events", w.Topic)
	assert.True(t, w.AllowAutoTopicCreation)
}
