package httpapi

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/cart"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/middleware"
)

// CartHandler serves the caller's own cart lines. Purchased lines are removed by the
// checkout flow, not here.
type CartHandler struct {
	repo    cart.Repository
	logger  *log.Logger
	timeout time.Duration
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) List(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.repo.ListItems(ctx, id.UserID)
	if err != nil {
		h.logger.Printf("list cart for user %s: %v", id.UserID, err)
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Successfully fetched cart", Data: items})
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.GetIdentity(r.Context())

	var req addCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ProductID) == "" || req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "productId and a positive quantity are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	item := cart.Item{UserID: id.UserID, ProductID: req.ProductID, Quantity: req.Quantity}
	if err := h.repo.AddItem(ctx, item); err != nil {
		h.logger.Printf("add %s to cart of user %s: %v", req.ProductID, id.UserID, err)
		writeError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: "Successfully added to cart", Data: item})
}
