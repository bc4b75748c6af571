package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/fjod/storefront-checkout/domain"
)

const (
	EventOrderSubmitted = "checkout.order_submitted"
	EventCartMismatch   = "checkout.cart_mismatch"
)

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Event struct {
	ID         string          `json:"event_id"`
	Type       string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type Publisher struct {
	writer  MessageWriter
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func New(writer MessageWriter, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{writer: writer, timeout: 5 * time.Second, now: time.Now, log: log}
}

func (p *Publisher) OrderSubmitted(ctx context.Context, order *domain.OrderConfirmation) error {
	return p.publish(ctx, EventOrderSubmitted, order.CartID, order)
}

func (p *Publisher) CartMismatch(ctx context.Context, report *domain.MismatchReport) error {
	return p.publish(ctx, EventCartMismatch, report.CartID, report)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// publish keys every message by cart id so events of one cart stay ordered.
func (p *Publisher) publish(ctx context.Context, eventType, cartID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Payload:    body,
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(cartID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	// The request may already be finished; the event should still go out.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(wctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	p.log.Debug("event published", slog.String("event_type", eventType), slog.String("event_id", event.ID))
	return nil
}

// Nop drops every event. It is used when no brokers are configured.
type Nop struct{}

func (Nop) OrderSubmitted(context.Context, *domain.OrderConfirmation) error { return nil }

func (Nop) CartMismatch(context.Context, *domain.MismatchReport) error { return nil }

func (Nop) Close() error { return nil }
