package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/gateway"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/order"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/payment"
)

type harness struct {
	svc      *Service
	orders   *fakeOrders
	payments *fakePayments
	cart     *fakeCart
	gw       *fakeGateway
	pub      *recordingPublisher
	ledger   *memLedger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		orders:   newFakeOrders(),
		payments: newFakePayments(),
		cart:     newFakeCart(),
		gw:       newFakeGateway(),
		pub:      &recordingPublisher{},
		ledger:   newMemLedger(),
	}
	h.svc = NewService(Deps{
		Orders:    h.orders,
		Payments:  h.payments,
		Cart:      h.cart,
		Gateway:   h.gw,
		Publisher: h.pub,
		Ledger:    h.ledger,
		Logger:    log.New(io.Discard, "", 0),
	})
	return h
}

func validInput(method payment.Method, total float64) PlaceOrderInput {
	return PlaceOrderInput{
		UserID: "user-1",
		Products: []order.Item{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
		ShippingAddress: "1 Main St",
		PhoneNumber:     "555-0100",
		TotalAmount:     total,
		PaymentMethod:   method,
	}
}

// initiate creates an order through the gateway path and returns its ids.
func (h *harness) initiate(t *testing.T, total float64) IntentResult {
	t.Helper()
	res, err := h.svc.InitiateGatewayPayment(context.Background(), validInput(payment.MethodStripe, total))
	require.NoError(t, err)
	return res
}

func succeededEvent(id string, res IntentResult) gateway.Event {
	return gateway.Event{
		ID:   id,
		Type: gateway.EventPaymentSucceeded,
		Intent: gateway.IntentState{
			ID:       res.PaymentIntentID,
			Status:   gateway.IntentStatusSucceeded,
			ChargeID: "ch_1",
			Metadata: map[string]string{"orderId": res.OrderID},
		},
	}
}

func TestPlaceOrder_COD(t *testing.T) {
	h := newHarness(t)
	h.cart.put("user-1", "p1", 2)
	h.cart.put("user-1", "p2", 1)
	h.cart.put("user-1", "p3", 5)

	res, err := h.svc.PlaceOrder(context.Background(), validInput(payment.MethodCOD, 100))
	require.NoError(t, err)

	assert.False(t, res.RequiresPayment)
	assert.Equal(t, 100.0, res.Order.TotalAmount)
	assert.Equal(t, order.StatusPending, res.Order.Status)
	assert.Equal(t, payment.StatusCompleted, res.Payment.Status)
	assert.Equal(t, payment.StatusCompleted, h.payments.get(res.Order.ID).Status)

	assert.False(t, h.cart.has("user-1", "p1"))
	assert.False(t, h.cart.has("user-1", "p2"))
	assert.True(t, h.cart.has("user-1", "p3"))
	assert.Equal(t, 1, h.cart.calls)
	assert.Equal(t, int64(2), h.cart.removed)

	assert.Equal(t, []string{"OrderPlaced", "PaymentCompleted"}, h.pub.names())
	assert.Empty(t, h.gw.creates)
}

func TestPlaceOrder_GatewayMethodDefersCart(t *testing.T) {
	h := newHarness(t)
	h.cart.put("user-1", "p1", 2)

	res, err := h.svc.PlaceOrder(context.Background(), validInput(payment.MethodCard, 30))
	require.NoError(t, err)

	assert.True(t, res.RequiresPayment)
	assert.Equal(t, payment.StatusPending, res.Payment.Status)
	assert.True(t, h.cart.has("user-1", "p1"))
	assert.Zero(t, h.cart.calls)
	assert.Equal(t, []string{"OrderPlaced"}, h.pub.names())
}

func TestPlaceOrder_Validation(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*PlaceOrderInput)
		field string
	}{
		{"missing user", func(in *PlaceOrderInput) { in.UserID = "" }, "userId"},
		{"no products", func(in *PlaceOrderInput) { in.Products = nil }, "products"},
		{"blank product id", func(in *PlaceOrderInput) { in.Products[1].ProductID = " " }, "products[1].productId"},
		{"zero quantity", func(in *PlaceOrderInput) { in.Products[0].Quantity = 0 }, "products[0].quantity"},
		{"missing address", func(in *PlaceOrderInput) { in.ShippingAddress = "" }, "shippingAddress"},
		{"missing phone", func(in *PlaceOrderInput) { in.PhoneNumber = "" }, "phoneNumber"},
		{"zero total", func(in *PlaceOrderInput) { in.TotalAmount = 0 }, "totalAmount"},
		{"negative total", func(in *PlaceOrderInput) { in.TotalAmount = -5 }, "totalAmount"},
		{"unknown method", func(in *PlaceOrderInput) { in.PaymentMethod = "bitcoin" }, "paymentMethod"},
		{"non-pending status", func(in *PlaceOrderInput) { in.OrderStatus = order.StatusCompleted }, "orderStatus"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			in := validInput(payment.MethodCOD, 10)
			tc.mut(&in)

			_, err := h.svc.PlaceOrder(context.Background(), in)
			require.ErrorIs(t, err, ErrValidation)

			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tc.field, fe.Field)
			assert.Zero(t, h.orders.writes)
			assert.Zero(t, h.payments.writes)
		})
	}
}

func TestPlaceOrder_PaymentCreateFailureRemovesOrder(t *testing.T) {
	h := newHarness(t)
	h.payments.createErr = errors.New("connection reset")

	_, err := h.svc.PlaceOrder(context.Background(), validInput(payment.MethodCOD, 10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	all, _ := h.orders.List(context.Background())
	assert.Empty(t, all)
	assert.Zero(t, h.cart.calls)
	assert.Empty(t, h.pub.names())
}

func TestPlaceOrder_CartFailureLeavesPaymentPending(t *testing.T) {
	h := newHarness(t)
	h.cart.err = errors.New("cart store down")

	_, err := h.svc.PlaceOrder(context.Background(), validInput(payment.MethodCOD, 10))
	require.Error(t, err)

	all, _ := h.orders.List(context.Background())
	require.Len(t, all, 1)
	assert.Equal(t, payment.StatusPending, h.payments.get(all[0].ID).Status)
}

func TestPlaceOrder_PublisherFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.pub.err = errors.New("broker unavailable")

	res, err := h.svc.PlaceOrder(context.Background(), validInput(payment.MethodCOD, 10))
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, res.Payment.Status)
}

func TestInitiateGatewayPayment_AmountInMinorUnits(t *testing.T) {
	h := newHarness(t)

	res := h.initiate(t, 50)

	require.Len(t, h.gw.creates, 1)
	call := h.gw.creates[0]
	assert.Equal(t, int64(5000), call.amount)
	assert.Equal(t, "usd", call.currency)
	assert.Equal(t, res.OrderID, call.metadata["orderId"])
	assert.Equal(t, "user-1", call.metadata["userId"])
	assert.Equal(t, res.Payment.ID, call.metadata["paymentId"])

	assert.NotEmpty(t, res.ClientSecret)
	stored := h.payments.get(res.OrderID)
	assert.Equal(t, res.PaymentIntentID, stored.IntentID())
	assert.Equal(t, payment.StatusPending, stored.Status)
	assert.Equal(t, payment.MethodStripe, stored.Method)
}

func TestInitiateGatewayPayment_AddressAndPhoneOptional(t *testing.T) {
	h := newHarness(t)
	in := validInput("", 12.5)
	in.ShippingAddress = ""
	in.PhoneNumber = ""

	res, err := h.svc.InitiateGatewayPayment(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), h.gw.creates[0].amount)
	assert.Equal(t, "stripe", res.Order.PaymentMethod)
}

func TestInitiateGatewayPayment_Rejects(t *testing.T) {
	t.Run("cod", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.InitiateGatewayPayment(context.Background(), validInput(payment.MethodCOD, 10))
		require.ErrorIs(t, err, ErrValidation)
		assert.Empty(t, h.gw.creates)
	})

	t.Run("below one cent", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.InitiateGatewayPayment(context.Background(), validInput(payment.MethodStripe, 0.004))
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("no gateway", func(t *testing.T) {
		h := newHarness(t)
		svc := NewService(Deps{Orders: h.orders, Payments: h.payments, Cart: h.cart})
		_, err := svc.InitiateGatewayPayment(context.Background(), validInput(payment.MethodStripe, 10))
		require.ErrorIs(t, err, ErrGatewayUnconfigured)
		assert.Zero(t, h.orders.writes)
	})
}

func TestInitiateGatewayPayment_GatewayFailureLeavesRecordsPending(t *testing.T) {
	h := newHarness(t)
	h.gw.createErr = errors.New("stripe: 503")

	_, err := h.svc.InitiateGatewayPayment(context.Background(), validInput(payment.MethodStripe, 10))
	require.ErrorIs(t, err, ErrGateway)

	all, _ := h.orders.List(context.Background())
	require.Len(t, all, 1)
	p := h.payments.get(all[0].ID)
	assert.Equal(t, payment.StatusPending, p.Status)
	assert.Nil(t, p.GatewayIntentID)
}

func TestConfirmGatewayPayment_Succeeded(t *testing.T) {
	h := newHarness(t)
	h.cart.put("user-1", "p1", 2)
	h.cart.put("user-1", "p2", 1)
	res := h.initiate(t, 50)
	h.gw.settle(res.PaymentIntentID, gateway.IntentStatusSucceeded, "ch_123")

	out, err := h.svc.ConfirmGatewayPayment(context.Background(), res.PaymentIntentID, res.OrderID)
	require.NoError(t, err)

	assert.True(t, out.Succeeded)
	assert.Equal(t, order.StatusPending, out.Order.Status)
	assert.Equal(t, payment.StatusCompleted, out.Payment.Status)
	assert.Equal(t, "ch_123", out.Payment.ChargeID())

	stored := h.payments.get(res.OrderID)
	assert.Equal(t, payment.StatusCompleted, stored.Status)
	assert.Equal(t, "ch_123", stored.ChargeID())
	assert.Equal(t, order.StatusPending, h.orders.get(res.OrderID).Status)
	assert.False(t, h.cart.has("user-1", "p1"))
	assert.False(t, h.cart.has("user-1", "p2"))
	assert.Equal(t, []string{"OrderPlaced", "PaymentCompleted"}, h.pub.names())
}

func TestConfirmGatewayPayment_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.cart.put("user-1", "p1", 2)
	res := h.initiate(t, 20)
	h.gw.settle(res.PaymentIntentID, gateway.IntentStatusSucceeded, "ch_9")

	first, err := h.svc.ConfirmGatewayPayment(context.Background(), res.PaymentIntentID, res.OrderID)
	require.NoError(t, err)
	// the user re-adds the product after paying; a repeated confirm must not touch it
	h.cart.put("user-1", "p1", 1)

	second, err := h.svc.ConfirmGatewayPayment(context.Background(), res.PaymentIntentID, res.OrderID)
	require.NoError(t, err)

	assert.Equal(t, first.Payment.Status, second.Payment.Status)
	assert.Equal(t, first.Payment.ChargeID(), second.Payment.ChargeID())
	assert.Equal(t, first.Order.Status, second.Order.Status)
	assert.Equal(t, 1, h.cart.calls)
	assert.True(t, h.cart.has("user-1", "p1"))
	assert.Equal(t, []string{"OrderPlaced", "PaymentCompleted"}, h.pub.names())
}

func TestConfirmGatewayPayment_NotSucceeded(t *testing.T) {
	h := newHarness(t)
	h.cart.put("user-1", "p1", 2)
	res := h.initiate(t, 20)
	before := h.orders.get(res.OrderID)

	out, err := h.svc.ConfirmGatewayPayment(context.Background(), res.PaymentIntentID, res.OrderID)
	require.NoError(t, err)

	assert.False(t, out.Succeeded)
	assert.Equal(t, "requires_payment_method", out.IntentStatus)
	assert.Equal(t, payment.StatusFailed, h.payments.get(res.OrderID).Status)
	assert.Equal(t, before, h.orders.get(res.OrderID))
	assert.True(t, h.cart.has("user-1", "p1"))
	assert.Equal(t, []string{"OrderPlaced", "PaymentFailed"}, h.pub.names())
}

func TestConfirmGatewayPayment_FailedThenSucceeded(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, 20)

	_, err := h.svc.ConfirmGatewayPayment(context.Background(), res.PaymentIntentID, res.OrderID)
	require.NoError(t, err)
	require.Equal(t, payment.StatusFailed, h.payments.get(res.OrderID).Status)

	h.gw.settle(res.PaymentIntentID, gateway.IntentStatusSucceeded, "ch_retry")
	out, err := h.svc.ConfirmGatewayPayment(context.Background(), res.PaymentIntentID, res.OrderID)
	require.NoError(t, err)
	assert.True(t, out.Succeeded)
	assert.Equal(t, payment.StatusCompleted, h.payments.get(res.OrderID).Status)
}

func TestConfirmGatewayPayment_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing ids", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.ConfirmGatewayPayment(ctx, "", "o1")
		require.ErrorIs(t, err, ErrValidation)
		_, err = h.svc.ConfirmGatewayPayment(ctx, "pi_1", " ")
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown order", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.ConfirmGatewayPayment(ctx, "pi_1", "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("intent of another order", func(t *testing.T) {
		h := newHarness(t)
		a := h.initiate(t, 10)
		b := h.initiate(t, 10)
		h.gw.settle(b.PaymentIntentID, gateway.IntentStatusSucceeded, "ch_b")

		_, err := h.svc.ConfirmGatewayPayment(ctx, b.PaymentIntentID, a.OrderID)
		require.ErrorIs(t, err, ErrValidation)
		assert.Equal(t, payment.StatusPending, h.payments.get(a.OrderID).Status)
	})

	t.Run("gateway unavailable", func(t *testing.T) {
		h := newHarness(t)
		res := h.initiate(t, 10)
		h.gw.retrieveErr = errors.New("timeout")

		_, err := h.svc.ConfirmGatewayPayment(ctx, res.PaymentIntentID, res.OrderID)
		require.ErrorIs(t, err, ErrGateway)
		assert.Equal(t, payment.StatusPending, h.payments.get(res.OrderID).Status)
	})
}

func TestConfirmAndWebhookConverge(t *testing.T) {
	orders := map[string]func(t *testing.T, h *harness, res IntentResult){
		"confirm then webhook": func(t *testing.T, h *harness, res IntentResult) {
			_, err := h.svc.ConfirmGatewayPayment(context.Background(), res.PaymentIntentID, res.OrderID)
			require.NoError(t, err)
			h.gw.deliver(succeededEvent("evt_1", res))
			require.NoError(t, h.svc.HandleGatewayWebhook(context.Background(), []byte("{}"), h.gw.secret))
		},
		"webhook then confirm": func(t *testing.T, h *harness, res IntentResult) {
			h.gw.deliver(succeededEvent("evt_1", res))
			require.NoError(t, h.svc.HandleGatewayWebhook(context.Background(), []byte("{}"), h.gw.secret))
			_, err := h.svc.ConfirmGatewayPayment(context.Background(), res.PaymentIntentID, res.OrderID)
			require.NoError(t, err)
		},
	}

	for name, run := range orders {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.cart.put("user-1", "p1", 2)
			res := h.initiate(t, 40)
			h.gw.settle(res.PaymentIntentID, gateway.IntentStatusSucceeded, "ch_1")

			run(t, h, res)

			p := h.payments.get(res.OrderID)
			assert.Equal(t, payment.StatusCompleted, p.Status)
			assert.Equal(t, "ch_1", p.ChargeID())
			assert.Equal(t, order.StatusPending, h.orders.get(res.OrderID).Status)
			assert.False(t, h.cart.has("user-1", "p1"))
			assert.Equal(t, 1, h.cart.calls)
			assert.Equal(t, []string{"OrderPlaced", "PaymentCompleted"}, h.pub.names())
		})
	}
}

func TestHandleGatewayWebhook_InvalidSignatureNeverMutates(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, 10)
	h.gw.deliver(succeededEvent("evt_forged", res))
	orderWrites, paymentWrites := h.orders.writes, h.payments.writes

	err := h.svc.HandleGatewayWebhook(context.Background(), []byte("{}"), "t=1,v1=forged")
	require.ErrorIs(t, err, ErrSignature)

	assert.Equal(t, orderWrites, h.orders.writes)
	assert.Equal(t, paymentWrites, h.payments.writes)
	assert.Equal(t, payment.StatusPending, h.payments.get(res.OrderID).Status)
	assert.Zero(t, h.cart.calls)
	assert.Empty(t, h.ledger.seen)
}

func TestHandleGatewayWebhook_UndecodableEventIsNotASignatureFailure(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, 10)
	decodeErr := errors.New("unexpected end of JSON input")
	h.gw.verifyErr = fmt.Errorf("decode payment intent event evt_1: %w", decodeErr)
	orderWrites, paymentWrites := h.orders.writes, h.payments.writes

	err := h.svc.HandleGatewayWebhook(context.Background(), []byte("{}"), h.gw.secret)
	require.ErrorIs(t, err, decodeErr)
	assert.NotErrorIs(t, err, ErrSignature)
	assert.NotErrorIs(t, err, ErrGatewayUnconfigured)

	assert.Equal(t, orderWrites, h.orders.writes)
	assert.Equal(t, paymentWrites, h.payments.writes)
	assert.Equal(t, payment.StatusPending, h.payments.get(res.OrderID).Status)
	assert.Empty(t, h.ledger.seen)
}

func TestHandleGatewayWebhook_NoSecret(t *testing.T) {
	h := newHarness(t)
	h.gw.secret = ""

	err := h.svc.HandleGatewayWebhook(context.Background(), []byte("{}"), "anything")
	require.ErrorIs(t, err, ErrGatewayUnconfigured)
	assert.NotErrorIs(t, err, ErrSignature)
}

func TestHandleGatewayWebhook_PaymentFailed(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, 10)
	before := h.orders.get(res.OrderID)
	h.gw.deliver(gateway.Event{
		ID:   "evt_fail",
		Type: gateway.EventPaymentFailed,
		Intent: gateway.IntentState{
			ID:       res.PaymentIntentID,
			Status:   "requires_payment_method",
			Metadata: map[string]string{"orderId": res.OrderID},
		},
	})

	require.NoError(t, h.svc.HandleGatewayWebhook(context.Background(), []byte("{}"), h.gw.secret))

	assert.Equal(t, payment.StatusFailed, h.payments.get(res.OrderID).Status)
	assert.Equal(t, before, h.orders.get(res.OrderID))
	assert.Contains(t, h.ledger.seen, "evt_fail")
}

func TestHandleGatewayWebhook_FailureAfterSuccessIgnored(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, 10)
	h.gw.deliver(succeededEvent("evt_ok", res))
	require.NoError(t, h.svc.HandleGatewayWebhook(context.Background(), []byte("{}"), h.gw.secret))

	h.gw.deliver(gateway.Event{
		ID:     "evt_late_fail",
		Type:   gateway.EventPaymentFailed,
		Intent: gateway.IntentState{ID: res.PaymentIntentID, Metadata: map[string]string{"orderId": res.OrderID}},
	})
	require.NoError(t, h.svc.HandleGatewayWebhook(context.Background(), []byte("{}"), h.gw.secret))

	assert.Equal(t, payment.StatusCompleted, h.payments.get(res.OrderID).Status)
}

func TestHandleGatewayWebhook_Acknowledged(t *testing.T) {
	cases := []struct {
		name string
		ev   func(res IntentResult) gateway.Event
	}{
		{"unhandled type", func(res IntentResult) gateway.Event {
			return gateway.Event{ID: "evt_x", Type: "charge.refunded"}
		}},
		{"missing orderId", func(res IntentResult) gateway.Event {
			ev := succeededEvent("evt_y", res)
			ev.Intent.Metadata = nil
			return ev
		}},
		{"unknown order", func(res IntentResult) gateway.Event {
			ev := succeededEvent("evt_z", res)
			ev.Intent.Metadata = map[string]string{"orderId": "gone"}
			return ev
		}},
		{"intent not bound to payment", func(res IntentResult) gateway.Event {
			ev := succeededEvent("evt_w", res)
			ev.Intent.ID = "pi_other"
			return ev
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			res := h.initiate(t, 10)
			h.gw.deliver(tc.ev(res))

			require.NoError(t, h.svc.HandleGatewayWebhook(context.Background(), []byte("{}"), h.gw.secret))
			assert.Equal(t, payment.StatusPending, h.payments.get(res.OrderID).Status)
			assert.Zero(t, h.cart.calls)
		})
	}
}

func TestHandleGatewayWebhook_RedeliverySkipped(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, 10)
	h.gw.deliver(succeededEvent("evt_1", res))

	require.NoError(t, h.svc.HandleGatewayWebhook(context.Background(), []byte("{}"), h.gw.secret))
	writes := h.payments.writes

	require.NoError(t, h.svc.HandleGatewayWebhook(context.Background(), []byte("{}"), h.gw.secret))
	assert.Equal(t, writes, h.payments.writes)
	assert.Equal(t, string(gateway.EventPaymentSucceeded), h.ledger.seen["evt_1"])
}

func TestHandleGatewayWebhook_LedgerErrorStillApplies(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, 10)
	h.ledger.seenErr = errors.New("ledger down")
	h.gw.deliver(succeededEvent("evt_1", res))

	require.NoError(t, h.svc.HandleGatewayWebhook(context.Background(), []byte("{}"), h.gw.secret))
	assert.Equal(t, payment.StatusCompleted, h.payments.get(res.OrderID).Status)
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("pending", func(t *testing.T) {
		h := newHarness(t)
		res, err := h.svc.PlaceOrder(ctx, validInput(payment.MethodCard, 10))
		require.NoError(t, err)

		o, err := h.svc.CancelOrder(ctx, res.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusCancelled, o.Status)
		assert.Equal(t, order.StatusCancelled, h.orders.get(res.Order.ID).Status)
		assert.Contains(t, h.pub.names(), "OrderCancelled")
	})

	for _, st := range []order.Status{order.StatusCompleted, order.StatusCancelled} {
		t.Run(string(st), func(t *testing.T) {
			h := newHarness(t)
			res, err := h.svc.PlaceOrder(ctx, validInput(payment.MethodCard, 10))
			require.NoError(t, err)
			h.orders.set(res.Order.ID, st)
			writes := h.orders.writes

			_, err = h.svc.CancelOrder(ctx, res.Order.ID)
			require.ErrorIs(t, err, ErrConflict)
			assert.Equal(t, writes, h.orders.writes)
			assert.Equal(t, st, h.orders.get(res.Order.ID).Status)
		})
	}

	t.Run("missing", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.svc.CancelOrder(ctx, "nope")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSuccessAfterCancelLeavesOrderCancelled(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, 10)
	_, err := h.svc.CancelOrder(context.Background(), res.OrderID)
	require.NoError(t, err)

	h.gw.settle(res.PaymentIntentID, gateway.IntentStatusSucceeded, "ch_late")
	out, err := h.svc.ConfirmGatewayPayment(context.Background(), res.PaymentIntentID, res.OrderID)
	require.NoError(t, err)

	assert.Equal(t, order.StatusCancelled, out.Order.Status)
	assert.Equal(t, order.StatusCancelled, h.orders.get(res.OrderID).Status)
	assert.Equal(t, payment.StatusCompleted, out.Payment.Status)
}

func TestCancelDuringConfirmKeepsOrderCancelled(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res := h.initiate(t, 10)
	h.gw.settle(res.PaymentIntentID, gateway.IntentStatusSucceeded, "ch_1")

	// the cancel lands after confirm has read the order as pending
	var cancelErr error
	h.cart.onDelete = func() {
		h.cart.onDelete = nil
		_, cancelErr = h.svc.CancelOrder(ctx, res.OrderID)
	}

	out, err := h.svc.ConfirmGatewayPayment(ctx, res.PaymentIntentID, res.OrderID)
	require.NoError(t, err)
	require.NoError(t, cancelErr)

	assert.Equal(t, order.StatusCancelled, out.Order.Status)
	assert.Equal(t, order.StatusCancelled, h.orders.get(res.OrderID).Status)
	assert.Equal(t, payment.StatusCompleted, h.payments.get(res.OrderID).Status)
}

func TestOrderStatusWritesLoseToConcurrentChange(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel after completion", func(t *testing.T) {
		h := newHarness(t)
		res, err := h.svc.PlaceOrder(ctx, validInput(payment.MethodCard, 10))
		require.NoError(t, err)
		h.orders.beforeUpdate = func(id string) {
			h.orders.beforeUpdate = nil
			h.orders.set(id, order.StatusCompleted)
		}

		_, err = h.svc.CancelOrder(ctx, res.Order.ID)
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, order.StatusCompleted, h.orders.get(res.Order.ID).Status)
		assert.NotContains(t, h.pub.names(), "OrderCancelled")
	})

	t.Run("completion after cancel", func(t *testing.T) {
		h := newHarness(t)
		res, err := h.svc.PlaceOrder(ctx, validInput(payment.MethodCard, 10))
		require.NoError(t, err)
		h.orders.beforeUpdate = func(id string) {
			h.orders.beforeUpdate = nil
			h.orders.set(id, order.StatusCancelled)
		}

		_, err = h.svc.UpdateOrderStatus(ctx, res.Order.ID, order.StatusCompleted)
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, order.StatusCancelled, h.orders.get(res.Order.ID).Status)
	})

	t.Run("order deleted in between", func(t *testing.T) {
		h := newHarness(t)
		res, err := h.svc.PlaceOrder(ctx, validInput(payment.MethodCard, 10))
		require.NoError(t, err)
		h.orders.beforeUpdate = func(id string) {
			h.orders.beforeUpdate = nil
			_, _ = h.orders.Delete(ctx, id)
		}

		_, err = h.svc.CancelOrder(ctx, res.Order.ID)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res, err := h.svc.PlaceOrder(ctx, validInput(payment.MethodCOD, 10))
	require.NoError(t, err)

	_, err = h.svc.UpdateOrderStatus(ctx, res.Order.ID, "shipped")
	require.ErrorIs(t, err, ErrValidation)

	o, err := h.svc.UpdateOrderStatus(ctx, res.Order.ID, order.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, o.Status)

	_, err = h.svc.UpdateOrderStatus(ctx, res.Order.ID, order.StatusPending)
	require.ErrorIs(t, err, ErrConflict)
	_, err = h.svc.UpdateOrderStatus(ctx, res.Order.ID, order.StatusCancelled)
	require.ErrorIs(t, err, ErrConflict)
}

func TestReadsAndDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	res, err := h.svc.PlaceOrder(ctx, validInput(payment.MethodCOD, 10))
	require.NoError(t, err)

	got, err := h.svc.GetOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Order.ID, got.ID)

	mine, err := h.svc.ListUserOrders(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	others, err := h.svc.ListUserOrders(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, others)

	p, err := h.svc.GetPayment(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCompleted, p.Status)

	require.NoError(t, h.svc.DeleteOrder(ctx, res.Order.ID))
	require.ErrorIs(t, h.svc.DeleteOrder(ctx, res.Order.ID), ErrNotFound)
	_, err = h.svc.GetOrder(ctx, res.Order.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.svc.GetPayment(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
