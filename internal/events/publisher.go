package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/order"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/payment"
)

const publishTimeout = 3 * time.Second

// Sequencer hands out the next producer sequence for a partition.
type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type PublisherOptions struct {
	Producer string
	// CorrelationID extracts the request correlation id from ctx, if any.
	CorrelationID func(ctx context.Context) string
}

// Publisher emits enveloped domain events on the topic exchange. Every envelope
// is partitioned by order id and carries the next sequence for that order.
type Publisher struct {
	ch            channel
	seq           Sequencer
	producer      string
	correlationID func(ctx context.Context) string
	now           func() time.Time
}

func NewPublisher(conn *amqp.Connection, seq Sequencer, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return newPublisher(ch, seq, opts), nil
}

func newPublisher(ch channel, seq Sequencer, opts PublisherOptions) *Publisher {
	p := &Publisher{
		ch:            ch,
		seq:           seq,
		producer:      opts.Producer,
		correlationID: opts.CorrelationID,
		now:           func() time.Time { return time.Now().UTC() },
	}
	if p.producer == "" {
		p.producer = defaultProducer
	}
	if p.correlationID == nil {
		p.correlationID = func(context.Context) string { return "" }
	}
	return p
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) OrderPlaced(ctx context.Context, o *order.Order, pay *payment.Payment) error {
	payload := OrderPlacedPayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		PaymentID:     pay.ID,
		PaymentMethod: string(pay.Method),
		PaymentStatus: string(pay.Status),
		Items:         orderItems(o),
		TotalAmount:   o.TotalAmount,
		Timestamp:     o.CreatedAt,
	}
	return publish(ctx, p, orderPlacedEventName, orderEventVersion, OrderPlacedRoutingKey, o.ID, payload)
}

func (p *Publisher) OrderCancelled(ctx context.Context, o *order.Order) error {
	payload := OrderCancelledPayload{
		OrderID:   o.ID,
		UserID:    o.UserID,
		Timestamp: p.now(),
	}
	return publish(ctx, p, orderCancelledEventName, orderEventVersion, OrderCancelledRoutingKey, o.ID, payload)
}

func (p *Publisher) PaymentCompleted(ctx context.Context, o *order.Order, pay *payment.Payment) error {
	payload := PaymentCompletedPayload{
		OrderID:         o.ID,
		PaymentID:       pay.ID,
		UserID:          pay.UserID,
		Amount:          pay.TotalAmount,
		PaymentMethod:   string(pay.Method),
		GatewayIntentID: pay.IntentID(),
		GatewayChargeID: pay.ChargeID(),
		ProductIDs:      o.ProductIDs(),
		Timestamp:       p.now(),
	}
	return publish(ctx, p, paymentCompletedEventName, paymentEventVersion, PaymentCompletedRoutingKey, o.ID, payload)
}

func (p *Publisher) PaymentFailed(ctx context.Context, pay *payment.Payment, reason string) error {
	payload := PaymentFailedPayload{
		OrderID:         pay.OrderID,
		PaymentID:       pay.ID,
		UserID:          pay.UserID,
		Amount:          pay.TotalAmount,
		GatewayIntentID: pay.IntentID(),
		Reason:          reason,
		Timestamp:       p.now(),
	}
	return publish(ctx, p, paymentFailedEventName, paymentEventVersion, PaymentFailedRoutingKey, pay.OrderID, payload)
}

func publish[T any](ctx context.Context, p *Publisher, name string, version int, routingKey, partitionKey string, payload T) error {
	seq, err := p.seq.NextSequence(ctx, partitionKey)
	if err != nil {
		return fmt.Errorf("sequence %s: %w", name, err)
	}

	env := EventEnvelope[T]{
		EventName:     name,
		EventVersion:  version,
		EventID:       uuid.NewString(),
		CorrelationID: p.correlationID(ctx),
		Producer:      p.producer,
		PartitionKey:  partitionKey,
		Sequence:      &seq,
		OccurredAt:    p.now(),
		Payload:       payload,
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", name, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.EventID,
			CorrelationId: env.CorrelationID,
			Timestamp:     env.OccurredAt,
			Type:          name,
			Body:          body,
		},
	); err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}
