// Package checkout places orders and reconciles their payments across the order store,
// the payment store and the payment gateway.
//
// Gateway payments can be finished by two independent callers: the client-driven confirm
// call and the gateway's signed webhook. Both funnel into applyOutcome, which writes the
// same terminal values no matter which caller runs first or whether both run.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/gateway"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/order"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/payment"
)

type Deps struct {
	Orders   order.Repository
	Payments payment.Repository
	Cart     CartClearer
	// Gateway may be nil; gateway operations then fail with ErrGatewayUnconfigured.
	Gateway   gateway.Gateway
	Publisher Publisher
	Ledger    WebhookLedger
	Logger    *log.Logger
}

type Service struct {
	orders   order.Repository
	payments payment.Repository
	cart     CartClearer
	gateway  gateway.Gateway
	pub      Publisher
	ledger   WebhookLedger
	logger   *log.Logger
}

func NewService(d Deps) *Service {
	s := &Service{
		orders:   d.Orders,
		payments: d.Payments,
		cart:     d.Cart,
		gateway:  d.Gateway,
		pub:      d.Publisher,
		ledger:   d.Ledger,
		logger:   d.Logger,
	}
	if s.pub == nil {
		s.pub = nopPublisher{}
	}
	if s.ledger == nil {
		s.ledger = nopLedger{}
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	return s
}

type PlaceOrderInput struct {
	UserID          string
	Products        []order.Item
	ShippingAddress string
	PhoneNumber     string
	TotalAmount     float64
	PaymentMethod   payment.Method
	// OrderStatus is optional; when set it must be pending.
	OrderStatus order.Status
}

type PlaceOrderResult struct {
	Order           *order.Order
	Payment         *payment.Payment
	RequiresPayment bool
}

type IntentResult struct {
	ClientSecret    string
	OrderID         string
	PaymentIntentID string
	Order           *order.Order
	Payment         *payment.Payment
}

type ConfirmResult struct {
	Order        *order.Order
	Payment      *payment.Payment
	Succeeded    bool
	IntentStatus string
}

// Outcome is a gateway-reported terminal result for one order's payment.
type Outcome struct {
	OrderID   string
	IntentID  string
	ChargeID  string
	Succeeded bool
	// GatewayStatus is the raw intent status or event type that produced the outcome.
	GatewayStatus string
}

var errNoPayment = errors.New("no payment for order")

// PlaceOrder creates a pending order and its payment. Cash on delivery is treated as paid
// immediately and clears the purchased cart lines; every other method leaves the cart
// alone until the gateway reports success.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlaceOrderResult, error) {
	if err := validatePlaceOrder(in); err != nil {
		return PlaceOrderResult{}, err
	}

	o, p, err := s.createOrderAndPayment(ctx, in)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	if in.PaymentMethod != payment.MethodCOD {
		s.publish("OrderPlaced", o.ID, s.pub.OrderPlaced(ctx, o, p))
		return PlaceOrderResult{Order: o, Payment: p, RequiresPayment: true}, nil
	}

	if _, err := s.cart.DeleteItems(ctx, o.UserID, o.ProductIDs()); err != nil {
		return PlaceOrderResult{}, fmt.Errorf("clear cart for order %s: %w", o.ID, err)
	}

	p.Status = payment.StatusCompleted
	if p, err = s.payments.Update(ctx, p); err != nil {
		return PlaceOrderResult{}, fmt.Errorf("complete cod payment for order %s: %w", o.ID, err)
	}

	s.logger.Printf("placed cod order %s for user %s", o.ID, o.UserID)
	s.publish("OrderPlaced", o.ID, s.pub.OrderPlaced(ctx, o, p))
	s.publish("PaymentCompleted", o.ID, s.pub.PaymentCompleted(ctx, o, p))
	return PlaceOrderResult{Order: o, Payment: p}, nil
}

// InitiateGatewayPayment creates the order and payment, then a gateway intent for the
// order total. If the gateway call fails both records stay pending.
func (s *Service) InitiateGatewayPayment(ctx context.Context, in PlaceOrderInput) (IntentResult, error) {
	if s.gateway == nil {
		return IntentResult{}, ErrGatewayUnconfigured
	}

	if in.PaymentMethod == "" {
		in.PaymentMethod = payment.MethodStripe
	}
	if err := validateIntentRequest(in); err != nil {
		return IntentResult{}, err
	}

	o, p, err := s.createOrderAndPayment(ctx, in)
	if err != nil {
		return IntentResult{}, err
	}

	intent, err := s.gateway.CreateIntent(ctx, MinorUnits(o.TotalAmount), Currency, map[string]string{
		"orderId":   o.ID,
		"userId":    o.UserID,
		"paymentId": p.ID,
	})
	if err != nil {
		s.logger.Printf("create intent for order %s failed, order and payment left pending: %v", o.ID, err)
		return IntentResult{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	p.GatewayIntentID = &intent.ID
	if p, err = s.payments.Update(ctx, p); err != nil {
		return IntentResult{}, fmt.Errorf("store intent %s on payment: %w", intent.ID, err)
	}

	s.logger.Printf("created intent %s for order %s (%d %s)", intent.ID, o.ID, MinorUnits(o.TotalAmount), Currency)
	s.publish("OrderPlaced", o.ID, s.pub.OrderPlaced(ctx, o, p))

	return IntentResult{
		ClientSecret:    intent.ClientSecret,
		OrderID:         o.ID,
		PaymentIntentID: intent.ID,
		Order:           o,
		Payment:         p,
	}, nil
}

// ConfirmGatewayPayment reads the intent status from the gateway and applies it. A
// non-succeeded intent is not an error: the result carries Succeeded=false and the raw
// status.
func (s *Service) ConfirmGatewayPayment(ctx context.Context, intentID, orderID string) (ConfirmResult, error) {
	if s.gateway == nil {
		return ConfirmResult{}, ErrGatewayUnconfigured
	}
	intentID, orderID = strings.TrimSpace(intentID), strings.TrimSpace(orderID)
	if intentID == "" {
		return ConfirmResult{}, invalid("paymentIntentId", "is required")
	}
	if orderID == "" {
		return ConfirmResult{}, invalid("orderId", "is required")
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	p, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("load payment for order %s: %w", orderID, err)
	}
	if o == nil || p == nil {
		return ConfirmResult{}, fmt.Errorf("order or payment %s: %w", orderID, ErrNotFound)
	}
	if stored := p.IntentID(); stored != "" && stored != intentID {
		return ConfirmResult{}, invalid("paymentIntentId", "does not belong to this order")
	}

	state, err := s.gateway.RetrieveIntent(ctx, intentID)
	if err != nil {
		s.logger.Printf("retrieve intent %s for order %s failed: %v", intentID, orderID, err)
		return ConfirmResult{}, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	if meta := state.Metadata["orderId"]; meta != "" && meta != orderID {
		return ConfirmResult{}, invalid("paymentIntentId", "does not belong to this order")
	}

	o, p, err = s.applyOutcomeTo(ctx, o, p, Outcome{
		OrderID:       orderID,
		IntentID:      intentID,
		ChargeID:      state.ChargeID,
		Succeeded:     state.Succeeded(),
		GatewayStatus: state.Status,
	})
	if err != nil {
		return ConfirmResult{}, err
	}

	return ConfirmResult{Order: o, Payment: p, Succeeded: state.Succeeded(), IntentStatus: state.Status}, nil
}

// HandleGatewayWebhook verifies and applies a gateway event. Unverifiable payloads are
// rejected with ErrSignature before anything is read or written. Event types other than
// payment success/failure are acknowledged and ignored.
func (s *Service) HandleGatewayWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return ErrGatewayUnconfigured
	}

	ev, err := s.gateway.VerifyWebhook(payload, signature)
	switch {
	case errors.Is(err, gateway.ErrNotConfigured):
		return fmt.Errorf("%w: %w", ErrGatewayUnconfigured, err)
	case errors.Is(err, gateway.ErrSignature):
		s.logger.Printf("webhook signature verification failed: %v", err)
		return fmt.Errorf("%w: %w", ErrSignature, err)
	case err != nil:
		// verified but undecodable; answered as a 500 so the gateway retries
		return fmt.Errorf("read webhook event: %w", err)
	}

	if ev.Type != gateway.EventPaymentSucceeded && ev.Type != gateway.EventPaymentFailed {
		s.logger.Printf("unhandled webhook event type %s (%s)", ev.Type, ev.ID)
		return nil
	}

	if ev.ID != "" {
		seen, err := s.ledger.Seen(ctx, ev.ID)
		if err != nil {
			s.logger.Printf("webhook ledger lookup for %s failed, applying anyway: %v", ev.ID, err)
		} else if seen {
			s.logger.Printf("webhook event %s already applied", ev.ID)
			return nil
		}
	}

	orderID := ev.Intent.Metadata["orderId"]
	if orderID == "" {
		s.logger.Printf("webhook event %s for intent %s has no orderId metadata", ev.ID, ev.Intent.ID)
		return nil
	}

	err = s.applyOutcome(ctx, Outcome{
		OrderID:       orderID,
		IntentID:      ev.Intent.ID,
		ChargeID:      ev.Intent.ChargeID,
		Succeeded:     ev.Type == gateway.EventPaymentSucceeded,
		GatewayStatus: ev.Type,
	})
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, errNoPayment):
		s.logger.Printf("webhook event %s references unknown order %s: %v", ev.ID, orderID, err)
	case err != nil:
		return err
	}

	if ev.ID != "" {
		if err := s.ledger.MarkProcessed(ctx, ev.ID, ev.Type); err != nil {
			s.logger.Printf("record webhook event %s: %v", ev.ID, err)
		}
	}
	return nil
}

// applyOutcome loads the records for an outcome and applies it.
func (s *Service) applyOutcome(ctx context.Context, out Outcome) error {
	p, err := s.payments.GetByOrderID(ctx, out.OrderID)
	if err != nil {
		return fmt.Errorf("load payment for order %s: %w", out.OrderID, err)
	}
	if p == nil {
		return fmt.Errorf("order %s: %w", out.OrderID, errNoPayment)
	}
	if stored := p.IntentID(); stored != "" && out.IntentID != "" && stored != out.IntentID {
		s.logger.Printf("ignoring outcome for intent %s: payment %s is bound to intent %s", out.IntentID, p.ID, stored)
		return nil
	}

	var o *order.Order
	if out.Succeeded {
		if o, err = s.orders.GetByID(ctx, out.OrderID); err != nil {
			return fmt.Errorf("load order %s: %w", out.OrderID, err)
		}
		if o == nil {
			return fmt.Errorf("order %s: %w", out.OrderID, ErrNotFound)
		}
	}

	_, _, err = s.applyOutcomeTo(ctx, o, p, out)
	return err
}

// applyOutcomeTo writes the terminal payment state for an outcome. Applying the same
// outcome again rewrites the same values; the cart is only cleared on the transition into
// completed. o may be nil for failures.
func (s *Service) applyOutcomeTo(ctx context.Context, o *order.Order, p *payment.Payment, out Outcome) (*order.Order, *payment.Payment, error) {
	if !out.Succeeded {
		if !p.Status.CanTransition(payment.StatusFailed) {
			s.logger.Printf("payment %s is %s; ignoring %s for order %s", p.ID, p.Status, out.GatewayStatus, out.OrderID)
			return o, p, nil
		}
		transition := p.Status != payment.StatusFailed
		p.Status = payment.StatusFailed
		if p.GatewayIntentID == nil && out.IntentID != "" {
			p.GatewayIntentID = &out.IntentID
		}
		updated, err := s.payments.Update(ctx, p)
		if err != nil {
			return nil, nil, fmt.Errorf("mark payment %s failed: %w", p.ID, err)
		}
		if transition {
			s.logger.Printf("payment %s for order %s failed (%s)", p.ID, out.OrderID, out.GatewayStatus)
			s.publish("PaymentFailed", out.OrderID, s.pub.PaymentFailed(ctx, updated, out.GatewayStatus))
		}
		return o, updated, nil
	}

	if !p.Status.CanTransition(payment.StatusCompleted) {
		s.logger.Printf("payment %s is %s; ignoring success for order %s", p.ID, p.Status, out.OrderID)
		return o, p, nil
	}

	transition := p.Status != payment.StatusCompleted
	if transition {
		n, err := s.cart.DeleteItems(ctx, o.UserID, o.ProductIDs())
		if err != nil {
			return nil, nil, fmt.Errorf("clear cart for order %s: %w", o.ID, err)
		}
		s.logger.Printf("cleared %d cart lines for user %s after order %s", n, o.UserID, o.ID)
	}

	p.Status = payment.StatusCompleted
	if out.ChargeID != "" {
		p.GatewayChargeID = &out.ChargeID
	}
	if p.GatewayIntentID == nil && out.IntentID != "" {
		p.GatewayIntentID = &out.IntentID
	}
	updated, err := s.payments.Update(ctx, p)
	if err != nil {
		return nil, nil, fmt.Errorf("mark payment %s completed: %w", p.ID, err)
	}

	// "pending" here means paid and awaiting fulfillment. The write only lands while the
	// order is still pending, so a cancel or completion in between is never undone.
	reloaded, err := s.orders.UpdateStatusFrom(ctx, o.ID, order.StatusPending, order.StatusPending)
	if err != nil {
		return nil, nil, fmt.Errorf("update order %s: %w", o.ID, err)
	}
	if reloaded == nil {
		current, err := s.orders.GetByID(ctx, o.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("reload order %s: %w", o.ID, err)
		}
		if current != nil {
			o = current
		}
		s.logger.Printf("payment for order %s completed while order is %s; status left unchanged", o.ID, o.Status)
	} else {
		o = reloaded
	}

	if transition {
		s.logger.Printf("payment %s for order %s completed (charge %s)", updated.ID, o.ID, updated.ChargeID())
		s.publish("PaymentCompleted", o.ID, s.pub.PaymentCompleted(ctx, o, updated))
	}
	return o, updated, nil
}

// createOrderAndPayment persists the order and its paired payment. When the payment
// cannot be stored the order is deleted again so it is not left without a payment.
func (s *Service) createOrderAndPayment(ctx context.Context, in PlaceOrderInput) (*order.Order, *payment.Payment, error) {
	o := &order.Order{
		UserID:          in.UserID,
		Products:        in.Products,
		ShippingAddress: in.ShippingAddress,
		PhoneNumber:     in.PhoneNumber,
		TotalAmount:     in.TotalAmount,
		PaymentMethod:   string(in.PaymentMethod),
		Status:          order.StatusPending,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, nil, fmt.Errorf("create order: %w", err)
	}

	p := &payment.Payment{
		UserID:      o.UserID,
		OrderID:     o.ID,
		Method:      in.PaymentMethod,
		TotalAmount: o.TotalAmount,
		Status:      payment.StatusPending,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		if deleted, derr := s.orders.Delete(ctx, o.ID); derr != nil || !deleted {
			s.logger.Printf("order %s left without payment (delete: %v, deleted=%t)", o.ID, derr, deleted)
		} else {
			s.logger.Printf("removed order %s after payment creation failed", o.ID)
		}
		return nil, nil, fmt.Errorf("create payment for order %s: %w", o.ID, err)
	}

	return o, p, nil
}

func (s *Service) publish(event, orderID string, err error) {
	if err != nil {
		s.logger.Printf("publish %s for order %s: %v", event, orderID, err)
	}
}
