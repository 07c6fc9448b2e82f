// Package payment hides the payment provider behind a small gateway so the
// checkout flow can be exercised without network access.
package payment

import (
	"context"
	"errors"
)

var (
	// ErrInvalidSignature means the webhook body was not signed by the provider.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent means a correctly signed body could not be decoded.
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// EventPaymentSucceeded is the only event type that mutates local state.
const EventPaymentSucceeded = "payment_intent.succeeded"

// LineItem is one course in a checkout session. UnitAmount is in minor units.
type LineItem struct {
	CourseID   uint
	Name       string
	ImageURL   string
	UnitAmount int64
}

type SessionRequest struct {
	UserID     uint
	Currency   string
	Items      []LineItem
	SuccessURL string
	CancelURL  string
}

type Session struct {
	ID          string `json:"session_id"`
	URL         string `json:"url"`
	AmountTotal int64  `json:"amount_total"`
}

// Event is a verified provider event reduced to what the service needs.
type Event struct {
	ID   string
	Type string
	// Set for payment_intent.succeeded only
	Payment *PaymentSucceeded
}

type PaymentSucceeded struct {
	PaymentIntentID string
	// UserID comes from the metadata written at checkout; 0 when missing
	UserID   uint
	Amount   int64
	Currency string
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	// ParseEvent verifies signature against payload and decodes it.
	// A verification failure wraps ErrInvalidSignature and a signed body
	// that does not decode wraps ErrMalformedEvent.
	ParseEvent(payload []byte, signature string) (*Event, error)
}
