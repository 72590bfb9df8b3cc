package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/checkout"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/middleware"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/order"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/payment"
)

const (
	opPlaceOrder   = "place order"
	opGetOrder     = "get order"
	opListOrders   = "list orders"
	opCancelOrder  = "cancel order"
	opUpdateStatus = "update order status"
	opDeleteOrder  = "delete order"
	opGetPayment   = "get payment"
)

const maxBodyBytes = 1 << 20

type OrderHandler struct {
	svc     Checkout
	logger  *log.Logger
	timeout time.Duration
}

type placeOrderRequest struct {
	Products        []order.Item `json:"products"`
	ShippingAddress string       `json:"shippingAddress"`
	PhoneNumber     string       `json:"phoneNumber"`
	TotalAmount     float64      `json:"totalAmount"`
	PaymentMethod   string       `json:"paymentMethod"`
	OrderStatus     string       `json:"orderStatus"`
}

func (req placeOrderRequest) input(userID string) checkout.PlaceOrderInput {
	return checkout.PlaceOrderInput{
		UserID:          userID,
		Products:        req.Products,
		ShippingAddress: req.ShippingAddress,
		PhoneNumber:     req.PhoneNumber,
		TotalAmount:     req.TotalAmount,
		PaymentMethod:   payment.Method(req.PaymentMethod),
		OrderStatus:     order.Status(req.OrderStatus),
	}
}

type placeOrderResponse struct {
	Message         string           `json:"message"`
	Order           *order.Order     `json:"order"`
	Payment         *payment.Payment `json:"payment,omitempty"`
	RequiresPayment bool             `json:"requiresPayment,omitempty"`
}

type dataResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())

	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.PlaceOrder(ctx, req.input(id.UserID))
	if err != nil {
		writeServiceError(w, r, h.logger, opPlaceOrder, err)
		return
	}

	msg := "Order placed successfully with Cash on Delivery"
	if res.RequiresPayment {
		msg = "Order created. Proceed to payment."
	}
	writeJSON(w, http.StatusOK, placeOrderResponse{
		Message:         msg,
		Order:           res.Order,
		Payment:         res.Payment,
		RequiresPayment: res.RequiresPayment,
	})
}

func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.svc.ListUserOrders(ctx, id.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, opListOrders, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Successfully fetched my orders", Data: orders})
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.svc.ListOrders(ctx)
	if err != nil {
		writeServiceError(w, r, h.logger, opListOrders, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Successfully fetched all orders", Data: orders})
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, ok := h.ownedOrder(ctx, w, r, opGetOrder)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Successfully fetched the order", Data: o})
}

func (h *OrderHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, ok := h.ownedOrder(ctx, w, r, opGetPayment)
	if !ok {
		return
	}
	p, err := h.svc.GetPayment(ctx, o.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, opGetPayment, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Successfully fetched the payment", Data: p})
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, ok := h.ownedOrder(ctx, w, r, opCancelOrder)
	if !ok {
		return
	}
	cancelled, err := h.svc.CancelOrder(ctx, o.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, opCancelOrder, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Successfully cancelled the order", Data: cancelled})
}

type updateStatusRequest struct {
	OrderStatus string `json:"orderStatus"`
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, err := h.svc.UpdateOrderStatus(ctx, chi.URLParam(r, "id"), order.Status(req.OrderStatus))
	if err != nil {
		writeServiceError(w, r, h.logger, opUpdateStatus, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Successfully updated the order", Data: o})
}

func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.svc.DeleteOrder(ctx, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, opDeleteOrder, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Successfully deleted the order"})
}

// ownedOrder loads the order named in the path. Customers only see their own orders;
// someone else's order is reported as missing.
func (h *OrderHandler) ownedOrder(ctx context.Context, w http.ResponseWriter, r *http.Request, op string) (*order.Order, bool) {
	o, err := h.svc.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, op, err)
		return nil, false
	}
	id, _ := middleware.GetIdentity(r.Context())
	if !id.IsAdmin() && o.UserID != id.UserID {
		writeError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	return o, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
