package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/swapbnb/exchange-coordinator/internal/apperr"
	"github.com/swapbnb/exchange-coordinator/internal/exchange"
	"github.com/swapbnb/exchange-coordinator/internal/metrics"
	"github.com/swapbnb/exchange-coordinator/internal/models"
	"github.com/swapbnb/exchange-coordinator/internal/notify"
	"github.com/swapbnb/exchange-coordinator/internal/provider"
	repo "github.com/swapbnb/exchange-coordinator/internal/repository"
)

// ExchangeService coordinates the exchange lifecycle. Every method takes
// the authenticated actor explicitly.
type ExchangeService struct {
	users     repo.Users
	homes     repo.Homes
	exchanges repo.Exchanges
	log       repo.AuditLogs
	payments  provider.Payments
	identity  provider.Identity
	notifier  notify.Publisher
	feeCents  int64
	currency  string
}

type ExchangeDeps struct {
	Users     repo.Users
	Homes     repo.Homes
	Exchanges repo.Exchanges
	AuditLogs repo.AuditLogs
	Payments  provider.Payments
	Identity  provider.Identity
	Notifier  notify.Publisher
	FeeCents  int64
	Currency  string
}

func NewExchangeService(d ExchangeDeps) *ExchangeService {
	if d.Notifier == nil {
		d.Notifier = notify.Discard{}
	}
	return &ExchangeService{
		users:     d.Users,
		homes:     d.Homes,
		exchanges: d.Exchanges,
		log:       d.AuditLogs,
		payments:  d.Payments,
		identity:  d.Identity,
		notifier:  d.Notifier,
		feeCents:  d.FeeCents,
		currency:  d.Currency,
	}
}

func (s *ExchangeService) FeeCents() int64 { return s.feeCents }

// ----------------- helpers -----------------

func (s *ExchangeService) audit(ctx context.Context, entityID, action, actorID string, details map[string]any) {
	l := models.NewAuditLog(models.AuditEntityExchange, entityID, action, actorID, details)
	if err := s.log.Create(ctx, l); err != nil {
		slog.ErrorContext(ctx, "audit log write failed", "exchange_id", entityID, "action", action, "err", err)
	}
}

func (s *ExchangeService) transitioned(ctx context.Context, ex models.Exchange, action exchange.Action, from models.ExchangeStatus, actorID string) {
	metrics.TransitionsTotal.WithLabelValues(string(action), string(ex.Status)).Inc()
	s.audit(ctx, ex.ID, string(action), actorID, map[string]any{"from": from, "to": ex.Status})
	slog.InfoContext(ctx, "exchange transition", "exchange_id", ex.ID, "action", action, "from", from, "to", ex.Status, "actor_id", actorID)
}

func (s *ExchangeService) notify(kind string, ex models.Exchange, text string, recipients ...string) {
	s.notifier.Publish(notify.Event{Kind: kind, ExchangeID: ex.ID, Recipients: recipients, Text: text})
}

// ----------------- request -----------------

type RequestInput struct {
	HostHomeID      string    `json:"host_home_id" validate:"required"`
	RequesterHomeID string    `json:"requester_home_id" validate:"required"`
	StartDate       time.Time `json:"start_date" validate:"required"`
	EndDate         time.Time `json:"end_date" validate:"required"`
	Guests          int       `json:"guests" validate:"min=1"`
	Message         string    `json:"message" validate:"required,max=2000"`
}

func (in RequestInput) check() error {
	var fields []apperr.FieldError
	req := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			fields = append(fields, apperr.FieldError{Field: name, Msg: "required"})
		}
	}
	req("host_home_id", in.HostHomeID)
	req("requester_home_id", in.RequesterHomeID)
	req("message", in.Message)
	switch {
	case in.StartDate.IsZero():
		fields = append(fields, apperr.FieldError{Field: "start_date", Msg: "required"})
	case in.EndDate.IsZero():
		fields = append(fields, apperr.FieldError{Field: "end_date", Msg: "required"})
	case !in.StartDate.Before(in.EndDate):
		fields = append(fields, apperr.FieldError{Field: "end_date", Msg: "must be after start_date"})
	}
	if in.Guests < 1 {
		fields = append(fields, apperr.FieldError{Field: "guests", Msg: "must be at least 1"})
	}
	if len(fields) > 0 {
		return apperr.Invalid(fields...)
	}
	return nil
}

// RequestExchange creates a pending exchange from the actor towards the
// owner of HostHomeID.
func (s *ExchangeService) RequestExchange(ctx context.Context, actorID string, in RequestInput) (models.Exchange, error) {
	if err := in.check(); err != nil {
		return models.Exchange{}, err
	}
	hostHome, err := s.homes.GetByID(ctx, in.HostHomeID)
	if err != nil {
		return models.Exchange{}, fromRepo(err, "home")
	}
	if hostHome.OwnerID == actorID {
		return models.Exchange{}, apperr.New(apperr.Conflict, "you cannot request a swap of your own home")
	}
	reqHome, err := s.homes.GetByID(ctx, in.RequesterHomeID)
	if err != nil {
		return models.Exchange{}, fromRepo(err, "home")
	}
	if reqHome.OwnerID != actorID {
		return models.Exchange{}, apperr.Invalid(apperr.FieldError{Field: "requester_home_id", Msg: "must be one of your homes"})
	}
	requester, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return models.Exchange{}, fromRepo(err, "user")
	}
	host, err := s.users.GetByID(ctx, hostHome.OwnerID)
	if err != nil {
		return models.Exchange{}, fromRepo(err, "host")
	}

	ex, err := s.exchanges.Create(ctx, models.Exchange{
		RequesterID:             requester.ID,
		HostID:                  host.ID,
		RequesterHomeID:         reqHome.ID,
		HostHomeID:              hostHome.ID,
		StartDate:               in.StartDate,
		EndDate:                 in.EndDate,
		Guests:                  in.Guests,
		Message:                 strings.TrimSpace(in.Message),
		Status:                  models.StatusPending,
		RequesterPaymentStatus:  models.PaymentUnpaid,
		HostPaymentStatus:       models.PaymentUnpaid,
		RequesterIdentityStatus: requester.IdentityStatus,
		HostIdentityStatus:      host.IdentityStatus,
	})
	if err != nil {
		return models.Exchange{}, fromRepo(err, "exchange")
	}
	metrics.TransitionsTotal.WithLabelValues("request", string(ex.Status)).Inc()
	s.audit(ctx, ex.ID, "request", actorID, map[string]any{"host_home_id": ex.HostHomeID})
	slog.InfoContext(ctx, "exchange requested", "exchange_id", ex.ID, "requester_id", ex.RequesterID, "host_id", ex.HostID)
	s.notify(notify.KindRequested, ex, requester.Username+" asked to swap homes with you", ex.HostID)
	return ex, nil
}

// ----------------- respond / cancel -----------------

const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

func (s *ExchangeService) RespondToRequest(ctx context.Context, exchangeID, actorID, decision string) (models.Exchange, error) {
	var action exchange.Action
	switch decision {
	case DecisionAccept:
		action = exchange.ActionAccept
	case DecisionReject:
		action = exchange.ActionReject
	default:
		return models.Exchange{}, apperr.Invalid(apperr.FieldError{Field: "decision", Msg: "must be one of: accept reject"})
	}
	ex, err := s.apply(ctx, exchangeID, actorID, action)
	if err != nil {
		return models.Exchange{}, err
	}
	if action == exchange.ActionAccept {
		s.notify(notify.KindAccepted, ex, "your swap request was accepted; confirm to lock it in", ex.RequesterID)
	} else {
		s.notify(notify.KindRejected, ex, "your swap request was declined", ex.RequesterID)
	}
	return ex, nil
}

func (s *ExchangeService) CancelExchange(ctx context.Context, exchangeID, actorID string) (models.Exchange, error) {
	ex, err := s.apply(ctx, exchangeID, actorID, exchange.ActionCancel)
	if err != nil {
		return models.Exchange{}, err
	}
	s.notify(notify.KindCancelled, ex, "the swap request was withdrawn", ex.HostID)
	return ex, nil
}

func (s *ExchangeService) apply(ctx context.Context, exchangeID, actorID string, action exchange.Action) (models.Exchange, error) {
	ex, from, err := s.exchanges.Transition(ctx, exchangeID, func(ex models.Exchange) (models.ExchangeStatus, error) {
		return exchange.Decide(ex, actorID, action)
	})
	if err != nil {
		return models.Exchange{}, fromRepo(err, "exchange")
	}
	s.transitioned(ctx, ex, action, from, actorID)
	return ex, nil
}

// ----------------- confirm -----------------

type ConfirmResult struct {
	Exchange         models.Exchange `json:"exchange"`
	BothConfirmed    bool            `json:"both_confirmed"`
	AlreadyConfirmed bool            `json:"already_confirmed"`
	CreditSpent      bool            `json:"credit_spent"`
}

// ConfirmExchange records the actor's confirmation once the identity and
// payment gate passes, and confirms the swap when the other party already
// has.
func (s *ExchangeService) ConfirmExchange(ctx context.Context, exchangeID, actorID string) (ConfirmResult, error) {
	out, err := s.exchanges.Confirm(ctx, exchangeID, actorID, exchange.PlanConfirm)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.VerificationRequired:
			metrics.ConfirmBlocked.WithLabelValues(string(exchange.BlockNotVerified)).Inc()
			slog.InfoContext(ctx, "confirmation blocked", "exchange_id", exchangeID, "actor_id", actorID, "reason", exchange.BlockNotVerified)
		case apperr.PaymentRequired:
			metrics.ConfirmBlocked.WithLabelValues(string(exchange.BlockNoCreditOrPayment)).Inc()
			slog.InfoContext(ctx, "confirmation blocked", "exchange_id", exchangeID, "actor_id", actorID, "reason", exchange.BlockNoCreditOrPayment)
		}
		return ConfirmResult{}, fromRepo(err, "exchange")
	}

	ex := out.Exchange
	res := ConfirmResult{
		Exchange:         ex,
		BothConfirmed:    ex.BothConfirmed(),
		AlreadyConfirmed: out.Plan.AlreadyConfirmed,
		CreditSpent:      out.Plan.SpendCredit && !out.Plan.AlreadyConfirmed,
	}
	if res.AlreadyConfirmed {
		return res, nil
	}

	if res.CreditSpent {
		metrics.CreditsSpent.Inc()
	}
	metrics.TransitionsTotal.WithLabelValues(string(exchange.ActionConfirm), string(ex.Status)).Inc()
	s.audit(ctx, ex.ID, string(exchange.ActionConfirm), actorID, map[string]any{
		"role":         out.Plan.Role,
		"credit_spent": res.CreditSpent,
		"credits_left": out.Credits,
		"status":       ex.Status,
	})
	slog.InfoContext(ctx, "exchange confirmed by party", "exchange_id", ex.ID, "actor_id", actorID, "role", out.Plan.Role, "status", ex.Status)

	if ex.Status == models.StatusConfirmed {
		s.notify(notify.KindConfirmed, ex, "swap confirmed", ex.RequesterID, ex.HostID)
	} else {
		s.notify(notify.KindPartyConfirmed, ex, "the other party confirmed; waiting on you", ex.PartyID(out.Plan.Role.Other()))
	}
	return res, nil
}

// ----------------- complete -----------------

// CompleteExchange closes a confirmed exchange whose stay has ended.
func (s *ExchangeService) CompleteExchange(ctx context.Context, exchangeID, adminID string, now time.Time) (models.Exchange, error) {
	ex, from, err := s.exchanges.Transition(ctx, exchangeID, func(ex models.Exchange) (models.ExchangeStatus, error) {
		to, err := exchange.Next(ex.Status, exchange.ActionComplete)
		if err != nil {
			return "", err
		}
		if ex.EndDate.After(now) {
			return "", apperr.New(apperr.InvalidState, "the stay ends on %s", ex.EndDate.Format(time.DateOnly))
		}
		return to, nil
	})
	if err != nil {
		return models.Exchange{}, fromRepo(err, "exchange")
	}
	s.transitioned(ctx, ex, exchange.ActionComplete, from, adminID)
	s.notify(notify.KindCompleted, ex, "swap completed", ex.RequesterID, ex.HostID)
	return ex, nil
}

// ----------------- read -----------------

// View is an exchange as seen by one of its parties.
type View struct {
	models.Exchange
	ViewerRole models.Role `json:"viewer_role"`
	NextStep   string      `json:"next_step"`
}

func (s *ExchangeService) Get(ctx context.Context, exchangeID, actorID string) (View, error) {
	ex, err := s.exchanges.GetByID(ctx, exchangeID)
	if err != nil {
		return View{}, fromRepo(err, "exchange")
	}
	role, ok := ex.RoleOf(actorID)
	if !ok {
		return View{}, apperr.New(apperr.Unauthorized, "not a party to this exchange")
	}
	u, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return View{}, fromRepo(err, "user")
	}
	return View{Exchange: ex, ViewerRole: role, NextStep: exchange.NextStep(ex, role, u.Credits)}, nil
}

const (
	defaultPage = 20
	maxPage     = 100
)

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPage
	}
	if limit > maxPage {
		limit = maxPage
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *ExchangeService) ListForUser(ctx context.Context, actorID string, limit, offset int) ([]View, error) {
	limit, offset = clampPage(limit, offset)
	u, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, fromRepo(err, "user")
	}
	exs, err := s.exchanges.ListByUser(ctx, actorID, limit, offset)
	if err != nil {
		return nil, fromRepo(err, "exchanges")
	}
	out := make([]View, 0, len(exs))
	for _, ex := range exs {
		role, _ := ex.RoleOf(actorID)
		out = append(out, View{Exchange: ex, ViewerRole: role, NextStep: exchange.NextStep(ex, role, u.Credits)})
	}
	return out, nil
}
