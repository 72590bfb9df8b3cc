package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/cart"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/checkout"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/middleware"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/order"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/payment"
)

const defaultRequestTimeout = 10 * time.Second

// Checkout is the orchestrator surface the handlers drive.
type Checkout interface {
	PlaceOrder(ctx context.Context, in checkout.PlaceOrderInput) (checkout.PlaceOrderResult, error)
	InitiateGatewayPayment(ctx context.Context, in checkout.PlaceOrderInput) (checkout.IntentResult, error)
	ConfirmGatewayPayment(ctx context.Context, intentID, orderID string) (checkout.ConfirmResult, error)
	HandleGatewayWebhook(ctx context.Context, payload []byte, signature string) error
	CancelOrder(ctx context.Context, orderID string) (*order.Order, error)
	GetOrder(ctx context.Context, orderID string) (*order.Order, error)
	ListOrders(ctx context.Context) ([]order.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]order.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, next order.Status) (*order.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
	GetPayment(ctx context.Context, orderID string) (*payment.Payment, error)
}

type Deps struct {
	Checkout Checkout
	// Cart enables the /api/cart routes when set.
	Cart             cart.Repository
	Logger           *log.Logger
	JWTSecret        []byte
	CORSAllowOrigins []string
	// RequestTimeout bounds each orchestrator call. Zero means 10s.
	RequestTimeout time.Duration
	// RequestLog enables chi's per-request log lines.
	RequestLog bool
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = log.New(io.Discard, "", 0)
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = defaultRequestTimeout
	}
	if len(d.CORSAllowOrigins) == 0 {
		d.CORSAllowOrigins = []string{"*"}
	}

	orders := &OrderHandler{svc: d.Checkout, logger: d.Logger, timeout: d.RequestTimeout}
	payments := &PaymentHandler{svc: d.Checkout, logger: d.Logger, timeout: d.RequestTimeout}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recover(d.Logger))
	if d.RequestLog {
		r.Use(chimw.Logger)
	}
	r.Use(middleware.CORS(d.CORSAllowOrigins))

	r.Get("/health", healthHandler)

	// the webhook is authenticated by its signature and needs the untouched body
	r.Post("/api/stripe/webhook", payments.Webhook)

	authenticate := middleware.Authenticate(d.JWTSecret)
	adminOnly := middleware.RequireRole(middleware.RoleAdmin)

	r.Route("/api/order", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", orders.PlaceOrder)
		r.Get("/me", orders.ListMyOrders)
		r.Get("/{id}", orders.GetOrder)
		r.Patch("/{id}/cancel", orders.CancelOrder)
		r.Get("/{id}/payment", orders.GetPayment)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", orders.ListOrders)
			r.Patch("/{id}/status", orders.UpdateStatus)
			r.Delete("/{id}", orders.DeleteOrder)
		})
	})

	if d.Cart != nil {
		carts := &CartHandler{repo: d.Cart, logger: d.Logger, timeout: d.RequestTimeout}
		r.Route("/api/cart", func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/", carts.List)
			r.Post("/", carts.Add)
		})
	}

	r.Route("/api/stripe", func(r chi.Router) {
		r.Use(authenticate)
		r.Post("/create-payment-intent", payments.CreateIntent)
		r.Post("/confirm-payment", payments.Confirm)
	})

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "shop-service",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
