package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/swapbnb/exchange-coordinator/internal/apperr"
	"github.com/swapbnb/exchange-coordinator/internal/metrics"
	"github.com/swapbnb/exchange-coordinator/internal/models"
	"github.com/swapbnb/exchange-coordinator/internal/notify"
	"github.com/swapbnb/exchange-coordinator/internal/provider"
	repo "github.com/swapbnb/exchange-coordinator/internal/repository"
)

// PaymentEvent is a completed checkout reported by the payment provider.
type PaymentEvent struct {
	Provider    string
	EventID     string
	ExchangeID  string
	ActorID     string
	AmountCents int64
}

// IdentityEvent names the user either directly or by role on an exchange.
type IdentityEvent struct {
	Provider   string
	EventID    string
	UserID     string
	ExchangeID string
	Role       models.Role
	Status     models.VerificationStatus
}

type CreditsEvent struct {
	Provider string
	EventID  string
	UserID   string
	Credits  int
}

type PaymentResult struct {
	Exchange  models.Exchange `json:"exchange"`
	Duplicate bool            `json:"duplicate"`
}

func eventFields(source, eventID string) []apperr.FieldError {
	var fields []apperr.FieldError
	if strings.TrimSpace(source) == "" {
		fields = append(fields, apperr.FieldError{Field: "provider", Msg: "required"})
	}
	if strings.TrimSpace(eventID) == "" {
		fields = append(fields, apperr.FieldError{Field: "id", Msg: "required"})
	}
	return fields
}

func countEvent(source, kind string, applied bool) {
	result := "applied"
	if !applied {
		result = "duplicate"
	}
	metrics.ProviderEvents.WithLabelValues(source, kind, result).Inc()
}

// RecordPayment marks the actor's fee for the exchange as paid. Replays of
// the same provider event are reported as duplicates and change nothing.
func (s *ExchangeService) RecordPayment(ctx context.Context, ev PaymentEvent) (PaymentResult, error) {
	fields := eventFields(ev.Provider, ev.EventID)
	if ev.ExchangeID == "" {
		fields = append(fields, apperr.FieldError{Field: "exchange_id", Msg: "required"})
	}
	if ev.ActorID == "" {
		fields = append(fields, apperr.FieldError{Field: "user_id", Msg: "required"})
	}
	if ev.AmountCents < s.feeCents {
		fields = append(fields, apperr.FieldError{Field: "amount", Msg: "below the service fee"})
	}
	if len(fields) > 0 {
		metrics.ProviderEvents.WithLabelValues(ev.Provider, models.EventCheckoutCompleted, "rejected").Inc()
		return PaymentResult{}, apperr.Invalid(fields...)
	}

	ex, applied, err := s.exchanges.ApplyPayment(ctx, repo.PaymentUpdate{
		Event:      models.ProviderEvent{Provider: ev.Provider, EventID: ev.EventID, Kind: models.EventCheckoutCompleted},
		ExchangeID: ev.ExchangeID,
		ActorID:    ev.ActorID,
		Status:     models.PaymentPaid,
	})
	if err != nil {
		metrics.ProviderEvents.WithLabelValues(ev.Provider, models.EventCheckoutCompleted, "rejected").Inc()
		return PaymentResult{}, fromRepo(err, "exchange")
	}
	countEvent(ev.Provider, models.EventCheckoutCompleted, applied)
	if !applied {
		slog.InfoContext(ctx, "duplicate payment event", "provider", ev.Provider, "event_id", ev.EventID)
		return PaymentResult{Exchange: ex, Duplicate: true}, nil
	}
	s.audit(ctx, ex.ID, "payment", ev.ActorID, map[string]any{"event_id": ev.EventID, "amount_cents": ev.AmountCents})
	slog.InfoContext(ctx, "payment recorded", "exchange_id", ex.ID, "actor_id", ev.ActorID, "event_id", ev.EventID)
	s.notify(notify.KindPaymentPaid, ex, "payment received; you can confirm the swap now", ev.ActorID)
	return PaymentResult{Exchange: ex}, nil
}

// RecordPaymentFailure puts a pending payment back to unpaid. A payment
// that already succeeded is left alone.
func (s *ExchangeService) RecordPaymentFailure(ctx context.Context, ev PaymentEvent) (PaymentResult, error) {
	fields := eventFields(ev.Provider, ev.EventID)
	if ev.ExchangeID == "" {
		fields = append(fields, apperr.FieldError{Field: "exchange_id", Msg: "required"})
	}
	if ev.ActorID == "" {
		fields = append(fields, apperr.FieldError{Field: "user_id", Msg: "required"})
	}
	if len(fields) > 0 {
		return PaymentResult{}, apperr.Invalid(fields...)
	}
	ex, applied, err := s.exchanges.ApplyPayment(ctx, repo.PaymentUpdate{
		Event:      models.ProviderEvent{Provider: ev.Provider, EventID: ev.EventID, Kind: models.EventCheckoutFailed},
		ExchangeID: ev.ExchangeID,
		ActorID:    ev.ActorID,
		Status:     models.PaymentUnpaid,
		OnlyFrom:   models.PaymentPending,
	})
	if err != nil {
		return PaymentResult{}, fromRepo(err, "exchange")
	}
	countEvent(ev.Provider, models.EventCheckoutFailed, applied)
	if applied {
		s.audit(ctx, ex.ID, "payment_failed", ev.ActorID, map[string]any{"event_id": ev.EventID})
		slog.InfoContext(ctx, "payment failed", "exchange_id", ex.ID, "actor_id", ev.ActorID, "event_id", ev.EventID)
	}
	return PaymentResult{Exchange: ex, Duplicate: !applied}, nil
}

// RecordIdentityVerification applies a verification outcome to the user and
// to every live exchange they are a party to.
func (s *ExchangeService) RecordIdentityVerification(ctx context.Context, ev IdentityEvent) (duplicate bool, err error) {
	fields := eventFields(ev.Provider, ev.EventID)
	if !ev.Status.Valid() {
		fields = append(fields, apperr.FieldError{Field: "status", Msg: "must be one of: verified pending unverified"})
	}
	if ev.UserID == "" {
		if ev.ExchangeID == "" {
			fields = append(fields, apperr.FieldError{Field: "user_id", Msg: "required without exchange_id"})
		}
		if ev.Role != models.RoleRequester && ev.Role != models.RoleHost {
			fields = append(fields, apperr.FieldError{Field: "role", Msg: "must be one of: requester host"})
		}
	}
	if len(fields) > 0 {
		return false, apperr.Invalid(fields...)
	}

	userID := ev.UserID
	if userID == "" {
		ex, err := s.exchanges.GetByID(ctx, ev.ExchangeID)
		if err != nil {
			return false, fromRepo(err, "exchange")
		}
		userID = ex.PartyID(ev.Role)
	}

	pe := models.ProviderEvent{Provider: ev.Provider, EventID: ev.EventID, Kind: models.EventIdentityUpdated}
	applied, err := s.exchanges.ApplyIdentity(ctx, pe, userID, ev.Status)
	if err != nil {
		return false, fromRepo(err, "user")
	}
	countEvent(ev.Provider, models.EventIdentityUpdated, applied)
	if applied {
		slog.InfoContext(ctx, "identity status recorded", "user_id", userID, "status", ev.Status, "event_id", ev.EventID)
	}
	return !applied, nil
}

// RecordCreditsPurchase adds purchased credits to the user once per event.
func (s *ExchangeService) RecordCreditsPurchase(ctx context.Context, ev CreditsEvent) (duplicate bool, err error) {
	fields := eventFields(ev.Provider, ev.EventID)
	if ev.UserID == "" {
		fields = append(fields, apperr.FieldError{Field: "user_id", Msg: "required"})
	}
	if ev.Credits < 1 {
		fields = append(fields, apperr.FieldError{Field: "credits", Msg: "must be at least 1"})
	}
	if len(fields) > 0 {
		return false, apperr.Invalid(fields...)
	}
	pe := models.ProviderEvent{Provider: ev.Provider, EventID: ev.EventID, Kind: models.EventCreditsPurchased}
	applied, err := s.exchanges.ApplyCredits(ctx, pe, ev.UserID, ev.Credits)
	if err != nil {
		return false, fromRepo(err, "user")
	}
	countEvent(ev.Provider, models.EventCreditsPurchased, applied)
	if applied {
		slog.InfoContext(ctx, "credits purchased", "user_id", ev.UserID, "credits", ev.Credits, "event_id", ev.EventID)
		s.notifier.Publish(notify.Event{Kind: notify.KindCreditsAdded, Recipients: []string{ev.UserID}, Text: "credits added to your account"})
	}
	return !applied, nil
}

// ----------------- provider sessions -----------------

// StartResult is a provider session; Reused means no new session was
// created because one was already stored.
type StartResult struct {
	provider.Session
	Reused bool `json:"reused"`
}

// StartPayment opens, or reuses, the actor's checkout session for the
// service fee of an accepted exchange.
func (s *ExchangeService) StartPayment(ctx context.Context, exchangeID, actorID string) (StartResult, error) {
	ex, err := s.exchanges.GetByID(ctx, exchangeID)
	if err != nil {
		return StartResult{}, fromRepo(err, "exchange")
	}
	role, ok := ex.RoleOf(actorID)
	if !ok {
		return StartResult{}, apperr.New(apperr.Unauthorized, "not a party to this exchange")
	}
	if ex.Status != models.StatusAccepted {
		return StartResult{}, apperr.New(apperr.InvalidState, "payment opens once the exchange is accepted; it is %s", ex.Status)
	}
	if ex.Payment(role) == models.PaymentPaid {
		return StartResult{}, apperr.New(apperr.Conflict, "the service fee is already paid")
	}
	if sid := ex.PaymentSession(role); sid != nil {
		return StartResult{Session: provider.Session{ID: *sid}, Reused: true}, nil
	}

	sess, err := s.payments.CreateCheckoutSession(ctx, provider.CheckoutRequest{
		ExchangeID:     ex.ID,
		UserID:         actorID,
		AmountCents:    s.feeCents,
		Currency:       s.currency,
		IdempotencyKey: "checkout:" + ex.ID + ":" + string(role),
	})
	if err != nil {
		slog.ErrorContext(ctx, "checkout session failed", "exchange_id", ex.ID, "actor_id", actorID, "err", err)
		return StartResult{}, apperr.Wrap(apperr.ExternalProvider, err, "the payment provider is unavailable")
	}
	ex, err = s.exchanges.SetPaymentSession(ctx, ex.ID, role, sess.ID)
	if err != nil {
		return StartResult{}, fromRepo(err, "exchange")
	}
	// a concurrent call may have stored its session first
	if sid := ex.PaymentSession(role); sid != nil && *sid != sess.ID {
		return StartResult{Session: provider.Session{ID: *sid}, Reused: true}, nil
	}
	s.audit(ctx, ex.ID, "payment_session", actorID, map[string]any{"session_id": sess.ID})
	return StartResult{Session: sess}, nil
}

// StartVerification opens, or reuses, the actor's identity session.
func (s *ExchangeService) StartVerification(ctx context.Context, actorID string) (StartResult, error) {
	u, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return StartResult{}, fromRepo(err, "user")
	}
	if u.IdentityStatus == models.IdentityVerified {
		return StartResult{}, apperr.New(apperr.Conflict, "your identity is already verified")
	}
	if u.IdentitySessionID != nil {
		return StartResult{Session: provider.Session{ID: *u.IdentitySessionID}, Reused: true}, nil
	}
	sess, err := s.identity.CreateVerificationSession(ctx, provider.VerificationRequest{
		UserID:         u.ID,
		IdempotencyKey: "identity:" + u.ID,
	})
	if err != nil {
		slog.ErrorContext(ctx, "verification session failed", "user_id", u.ID, "err", err)
		return StartResult{}, apperr.Wrap(apperr.ExternalProvider, err, "the identity provider is unavailable")
	}
	u, err = s.users.SetIdentitySession(ctx, u.ID, sess.ID)
	if err != nil {
		return StartResult{}, fromRepo(err, "user")
	}
	if u.IdentitySessionID != nil && *u.IdentitySessionID != sess.ID {
		return StartResult{Session: provider.Session{ID: *u.IdentitySessionID}, Reused: true}, nil
	}
	return StartResult{Session: sess}, nil
}
