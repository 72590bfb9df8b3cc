package httpapi

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/middleware"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/order"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/payment"
)

const (
	opCreateIntent   = "create payment intent"
	opConfirmPayment = "confirm payment"
	opWebhook        = "gateway webhook"

	HeaderStripeSignature = "Stripe-Signature"
	maxWebhookBytes       = 65536
)

type PaymentHandler struct {
	svc     Checkout
	logger  *log.Logger
	timeout time.Duration
}

type intentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	OrderID         string `json:"orderId"`
	PaymentIntentID string `json:"paymentIntentId"`
}

func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())

	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.InitiateGatewayPayment(ctx, req.input(id.UserID))
	if err != nil {
		writeServiceError(w, r, h.logger, opCreateIntent, err)
		return
	}
	writeJSON(w, http.StatusOK, intentResponse{
		ClientSecret:    res.ClientSecret,
		OrderID:         res.OrderID,
		PaymentIntentID: res.PaymentIntentID,
	})
}

type confirmRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
	OrderID         string `json:"orderId"`
}

type confirmResponse struct {
	Message string           `json:"message"`
	Order   *order.Order     `json:"order,omitempty"`
	Payment *payment.Payment `json:"payment,omitempty"`
	Status  string           `json:"status,omitempty"`
}

func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())

	var req confirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if req.OrderID != "" && !id.IsAdmin() {
		o, err := h.svc.GetOrder(ctx, req.OrderID)
		if err != nil {
			writeServiceError(w, r, h.logger, opConfirmPayment, err)
			return
		}
		if o.UserID != id.UserID {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
	}

	res, err := h.svc.ConfirmGatewayPayment(ctx, req.PaymentIntentID, req.OrderID)
	if err != nil {
		writeServiceError(w, r, h.logger, opConfirmPayment, err)
		return
	}
	if !res.Succeeded {
		writeJSON(w, http.StatusBadRequest, confirmResponse{
			Message: "Payment was not successful",
			Status:  res.IntentStatus,
		})
		return
	}
	writeJSON(w, http.StatusOK, confirmResponse{
		Message: "Payment confirmed successfully",
		Order:   res.Order,
		Payment: res.Payment,
	})
}

func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable webhook body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.svc.HandleGatewayWebhook(ctx, payload, r.Header.Get(HeaderStripeSignature)); err != nil {
		writeServiceError(w, r, h.logger, opWebhook, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
