package events

import (
	"time"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/order"
)

const (
	orderPlacedEventName    = "OrderPlaced"
	orderCancelledEventName = "OrderCancelled"
	orderEventVersion       = 1
)

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type OrderPlacedPayload struct {
	OrderID       string      `json:"orderId"`
	UserID        string      `json:"userId"`
	PaymentID     string      `json:"paymentId"`
	PaymentMethod string      `json:"paymentMethod"`
	PaymentStatus string      `json:"paymentStatus"`
	Items         []OrderItem `json:"items"`
	TotalAmount   float64     `json:"totalAmount"`
	Timestamp     time.Time   `json:"timestamp"`
}

type OrderPlacedEnvelope = EventEnvelope[OrderPlacedPayload]

type OrderCancelledPayload struct {
	OrderID   string    `json:"orderId"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type OrderCancelledEnvelope = EventEnvelope[OrderCancelledPayload]

func orderItems(o *order.Order) []OrderItem {
	items := make([]OrderItem, 0, len(o.Products))
	for _, it := range o.Products {
		items = append(items, OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return items
}
