package checkout

import (
	"context"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/order"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/payment"
)

// CartClearer removes purchased lines from a user's cart.
type CartClearer interface {
	DeleteItems(ctx context.Context, userID string, productIDs []string) (int64, error)
}

// Publisher announces state changes that have already been persisted.
type Publisher interface {
	OrderPlaced(ctx context.Context, o *order.Order, p *payment.Payment) error
	PaymentCompleted(ctx context.Context, o *order.Order, p *payment.Payment) error
	PaymentFailed(ctx context.Context, p *payment.Payment, reason string) error
	OrderCancelled(ctx context.Context, o *order.Order) error
}

// WebhookLedger remembers gateway event ids that were applied.
type WebhookLedger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string) error
}

type nopPublisher struct{}

func (nopPublisher) OrderPlaced(context.Context, *order.Order, *payment.Payment) error { return nil }
func (nopPublisher) PaymentCompleted(context.Context, *order.Order, *payment.Payment) error { return nil }
func (nopPublisher) PaymentFailed(context.Context, *payment.Payment, string) error { return nil }
func (nopPublisher) OrderCancelled(context.Context, *order.Order) error { return nil }

type nopLedger struct{}

func (nopLedger) Seen(context.Context, string) (bool, error) { return false, nil }
func (nopLedger) MarkProcessed(context.Context, string, string) error { return nil }
