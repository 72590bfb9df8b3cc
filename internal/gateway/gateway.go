// Package gateway is the narrow client surface the checkout flow needs from a payment
// processor: create an intent, read its current state, verify signed webhooks.
package gateway

import (
	"context"
	"errors"
)

// Intent status reported by the processor once funds are captured.
const IntentStatusSucceeded = "succeeded"

// Webhook event types the checkout flow reacts to.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

var (
	// ErrSignature is returned when a webhook payload fails verification.
	ErrSignature = errors.New("webhook signature verification failed")
	// ErrNotConfigured is returned when a credential the call needs is missing.
	ErrNotConfigured = errors.New("payment gateway not configured")
)

// Intent is what the client needs to complete a payment in the browser.
type Intent struct {
	ID           string
	ClientSecret string
}

// IntentState is the processor's view of an intent.
type IntentState struct {
	ID       string
	Status   string
	ChargeID string
	Metadata map[string]string
}

func (s IntentState) Succeeded() bool {
	return s.Status == IntentStatusSucceeded
}

// Event is a verified webhook delivery. Intent is only populated for payment intent events.
type Event struct {
	ID     string
	Type   string
	Intent IntentState
}

type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (IntentState, error)
	VerifyWebhook(payload []byte, signatureHeader string) (Event, error)
}
