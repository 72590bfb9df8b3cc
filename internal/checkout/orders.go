package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/order"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/payment"
)

func (s *Service) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if o == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context) ([]order.Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *Service) ListUserOrders(ctx context.Context, userID string) ([]order.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// GetPayment returns the latest payment recorded for an order.
func (s *Service) GetPayment(ctx context.Context, orderID string) (*payment.Payment, error) {
	p, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load payment for order %s: %w", orderID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("payment for order %s: %w", orderID, ErrNotFound)
	}
	return p, nil
}

// CancelOrder cancels a pending order. Orders in any other state are left untouched and
// ErrConflict is returned.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (*order.Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusPending {
		return nil, fmt.Errorf("cancel order %s in state %s: %w", orderID, o.Status, ErrConflict)
	}

	updated, err := s.moveOrder(ctx, orderID, order.StatusPending, order.StatusCancelled)
	if err != nil {
		return nil, err
	}

	s.logger.Printf("cancelled order %s", orderID)
	s.publish("OrderCancelled", orderID, s.pub.OrderCancelled(ctx, updated))
	return updated, nil
}

// UpdateOrderStatus is the admin status change. It follows the same transition table as
// the payment-driven writes.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, next order.Status) (*order.Order, error) {
	if !next.Valid() {
		return nil, invalid("orderStatus", "must be one of pending, completed, cancelled")
	}
	if next == order.StatusCancelled {
		return s.CancelOrder(ctx, orderID)
	}

	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransition(next) {
		return nil, fmt.Errorf("move order %s from %s to %s: %w", orderID, o.Status, next, ErrConflict)
	}

	updated, err := s.moveOrder(ctx, orderID, o.Status, next)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("order %s moved from %s to %s", orderID, o.Status, next)
	return updated, nil
}

// moveOrder writes to only while the stored order is still in from. A concurrent
// change in between is reported as ErrConflict.
func (s *Service) moveOrder(ctx context.Context, orderID string, from, to order.Status) (*order.Order, error) {
	updated, err := s.orders.UpdateStatusFrom(ctx, orderID, from, to)
	if err != nil {
		return nil, fmt.Errorf("move order %s to %s: %w", orderID, to, err)
	}
	if updated != nil {
		return updated, nil
	}

	current, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("move order %s from %s to %s: now %s: %w", orderID, from, to, current.Status, ErrConflict)
}

func (s *Service) DeleteOrder(ctx context.Context, orderID string) error {
	deleted, err := s.orders.Delete(ctx, orderID)
	if err != nil {
		return fmt.Errorf("delete order %s: %w", orderID, err)
	}
	if !deleted {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	s.logger.Printf("deleted order %s", orderID)
	return nil
}

func validatePlaceOrder(in PlaceOrderInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return invalid("userId", "is required")
	}
	if err := validateItems(in.Products); err != nil {
		return err
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		return invalid("shippingAddress", "is required")
	}
	if strings.TrimSpace(in.PhoneNumber) == "" {
		return invalid("phoneNumber", "is required")
	}
	if in.TotalAmount <= 0 {
		return invalid("totalAmount", "must be greater than zero")
	}
	if !in.PaymentMethod.Valid() {
		return invalid("paymentMethod", "is not supported")
	}
	if in.OrderStatus != "" && in.OrderStatus != order.StatusPending {
		return invalid("orderStatus", "must be pending for a new order")
	}
	return nil
}

func validateIntentRequest(in PlaceOrderInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return invalid("userId", "is required")
	}
	if err := validateItems(in.Products); err != nil {
		return err
	}
	if in.TotalAmount <= 0 {
		return invalid("totalAmount", "must be greater than zero")
	}
	if MinorUnits(in.TotalAmount) < 1 {
		return invalid("totalAmount", "is below the smallest chargeable amount")
	}
	if !in.PaymentMethod.UsesGateway() {
		return invalid("paymentMethod", "must be a gateway payment method")
	}
	return nil
}

func validateItems(items []order.Item) error {
	if len(items) == 0 {
		return invalid("products", "must not be empty")
	}
	for i, it := range items {
		if strings.TrimSpace(it.ProductID) == "" {
			return invalid(fmt.Sprintf("products[%d].productId", i), "is required")
		}
		if it.Quantity <= 0 {
			return invalid(fmt.Sprintf("products[%d].quantity", i), "must be greater than zero")
		}
	}
	return nil
}
