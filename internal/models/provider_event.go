package models

import "time"

// ProviderEvent is one applied external callback, keyed by the provider's
// own event id. A second delivery of the same key is never applied.
type ProviderEvent struct {
	Provider   string    `json:"provider"`
	EventID    string    `json:"event_id"`
	Kind       string    `json:"kind"`
	ReceivedAt time.Time `json:"received_at"`
}

const (
	EventCheckoutCompleted = "checkout.completed"
	EventCheckoutFailed    = "checkout.failed"
	EventCreditsPurchased  = "credits.purchased"
	EventIdentityUpdated   = "identity.updated"
)

type Notification struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ExchangeID string    `json:"exchange_id,omitempty"`
	Kind       string    `json:"kind"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}
