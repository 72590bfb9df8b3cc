package events

import "time"

const (
	paymentCompletedEventName = "PaymentCompleted"
	paymentFailedEventName    = "PaymentFailed"
	paymentEventVersion       = 1
)

type PaymentCompletedPayload struct {
	OrderID         string    `json:"orderId"`
	PaymentID       string    `json:"paymentId"`
	UserID          string    `json:"userId"`
	Amount          float64   `json:"amount"`
	PaymentMethod   string    `json:"paymentMethod"`
	GatewayIntentID string    `json:"gatewayIntentId,omitempty"`
	GatewayChargeID string    `json:"gatewayChargeId,omitempty"`
	ProductIDs      []string  `json:"productIds"`
	Timestamp       time.Time `json:"timestamp"`
}

type PaymentCompletedEnvelope = EventEnvelope[PaymentCompletedPayload]

type PaymentFailedPayload struct {
	OrderID         string    `json:"orderId"`
	PaymentID       string    `json:"paymentId"`
	UserID          string    `json:"userId"`
	Amount          float64   `json:"amount"`
	GatewayIntentID string    `json:"gatewayIntentId,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

type PaymentFailedEnvelope = EventEnvelope[PaymentFailedPayload]
