package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/checkout"
	"github.com/samrakshanadhikari/NEWWEBAPPECOMMERCE/internal/middleware"
)

// writeServiceError maps orchestrator errors onto status codes. Anything that is not a
// caller mistake is logged and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *log.Logger, op string, err error) {
	var fe *checkout.FieldError
	switch {
	case errors.As(err, &fe):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fe.Error(), "field": fe.Field})
	case errors.Is(err, checkout.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, checkout.ErrConflict):
		writeError(w, http.StatusConflict, conflictMessage(op))
	case errors.Is(err, checkout.ErrSignature):
		writeError(w, http.StatusBadRequest, "webhook signature verification failed")
	case errors.Is(err, checkout.ErrGatewayUnconfigured):
		logger.Printf("%s: %v (correlation %s)", op, err, middleware.GetCorrelationID(r.Context()))
		writeError(w, http.StatusInternalServerError, "payment gateway is not configured")
	default:
		logger.Printf("%s: %v (correlation %s)", op, err, middleware.GetCorrelationID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func conflictMessage(op string) string {
	switch op {
	case opCancelOrder:
		return "order must be pending for cancellation"
	case opUpdateStatus:
		return "order status cannot be changed from its current state"
	}
	return "conflict"
}
