// Package provider talks to the external payment and identity services.
// Both are opaque: the coordinator only creates sessions and later receives
// signed webhook callbacks.
package provider

import (
	"context"
	"errors"
)

const (
	NamePayments = "payments"
	NameIdentity = "identity"
)

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type CheckoutRequest struct {
	ExchangeID     string `json:"exchange_id"`
	UserID         string `json:"user_id"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"-"`
}

type VerificationRequest struct {
	UserID         string `json:"user_id"`
	ExchangeID     string `json:"exchange_id,omitempty"`
	IdempotencyKey string `json:"-"`
}

type Payments interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (Session, error)
}

type Identity interface {
	CreateVerificationSession(ctx context.Context, req VerificationRequest) (Session, error)
}

// ErrMalformed means the provider answered with something we cannot use.
var ErrMalformed = errors.New("malformed provider response")
