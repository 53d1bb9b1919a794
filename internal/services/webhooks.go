package services

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/swapbnb/exchange-coordinator/internal/apperr"
	"github.com/swapbnb/exchange-coordinator/internal/models"
	"github.com/swapbnb/exchange-coordinator/internal/provider"
)

// Webhooks decodes provider callbacks and routes them to the exchange
// service. Signatures are checked by the HTTP layer before this runs.
type Webhooks struct {
	ex       *ExchangeService
	currency string
}

func NewWebhooks(ex *ExchangeService, currency string) *Webhooks {
	return &Webhooks{ex: ex, currency: currency}
}

type paymentPayload struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	ExchangeID string `json:"exchange_id"`
	UserID     string `json:"user_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Credits    int    `json:"credits"`
}

type identityPayload struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	ExchangeID string `json:"exchange_id"`
	Role       string `json:"role"`
	Status     string `json:"status"`
}

type WebhookResult struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	Duplicate bool   `json:"duplicate"`
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(v); err != nil {
		return apperr.New(apperr.Validation, "malformed event: %v", err)
	}
	return nil
}

// toCents converts a decimal amount in major units to whole cents.
func toCents(amount string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return 0, apperr.Invalid(apperr.FieldError{Field: "amount", Msg: "must be a decimal number"})
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) || cents.IsNegative() {
		return 0, apperr.Invalid(apperr.FieldError{Field: "amount", Msg: "must be a non-negative amount in whole cents"})
	}
	return cents.IntPart(), nil
}

func (h *Webhooks) Payment(ctx context.Context, body []byte) (WebhookResult, error) {
	var p paymentPayload
	if err := decode(body, &p); err != nil {
		return WebhookResult{}, err
	}
	res := WebhookResult{EventID: p.ID, Type: p.Type}

	switch p.Type {
	case models.EventCheckoutCompleted:
		if p.Currency != "" && h.currency != "" && !strings.EqualFold(p.Currency, h.currency) {
			return res, apperr.Invalid(apperr.FieldError{Field: "currency", Msg: "must be " + h.currency})
		}
		cents, err := toCents(p.Amount)
		if err != nil {
			return res, err
		}
		out, err := h.ex.RecordPayment(ctx, PaymentEvent{
			Provider:    provider.NamePayments,
			EventID:     p.ID,
			ExchangeID:  p.ExchangeID,
			ActorID:     p.UserID,
			AmountCents: cents,
		})
		res.Duplicate = out.Duplicate
		return res, err
	case models.EventCheckoutFailed:
		out, err := h.ex.RecordPaymentFailure(ctx, PaymentEvent{
			Provider:   provider.NamePayments,
			EventID:    p.ID,
			ExchangeID: p.ExchangeID,
			ActorID:    p.UserID,
		})
		res.Duplicate = out.Duplicate
		return res, err
	case models.EventCreditsPurchased:
		dup, err := h.ex.RecordCreditsPurchase(ctx, CreditsEvent{
			Provider: provider.NamePayments,
			EventID:  p.ID,
			UserID:   p.UserID,
			Credits:  p.Credits,
		})
		res.Duplicate = dup
		return res, err
	}
	return res, apperr.Invalid(apperr.FieldError{Field: "type", Msg: "unsupported event type"})
}

func (h *Webhooks) Identity(ctx context.Context, body []byte) (WebhookResult, error) {
	var p identityPayload
	if err := decode(body, &p); err != nil {
		return WebhookResult{}, err
	}
	res := WebhookResult{EventID: p.ID, Type: models.EventIdentityUpdated}
	dup, err := h.ex.RecordIdentityVerification(ctx, IdentityEvent{
		Provider:   provider.NameIdentity,
		EventID:    p.ID,
		UserID:     p.UserID,
		ExchangeID: p.ExchangeID,
		Role:       models.Role(p.Role),
		Status:     models.VerificationStatus(p.Status),
	})
	res.Duplicate = dup
	return res, err
}
