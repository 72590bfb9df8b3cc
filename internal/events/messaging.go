package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange             = "ecommerce.events"
	OrderPlacedRoutingKey      = "order.placed.v1"
	OrderCancelledRoutingKey   = "order.cancelled.v1"
	PaymentCompletedRoutingKey = "payment.completed.v1"
	PaymentFailedRoutingKey    = "payment.failed.v1"
	defaultProducer            = "shop-service"
)

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
