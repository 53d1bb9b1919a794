package repository

import (
	"context"
	"errors"

	"github.com/swapbnb/exchange-coordinator/internal/exchange"
	"github.com/swapbnb/exchange-coordinator/internal/models"
)

var (
	// ErrNotFound is returned by every lookup that matches no row.
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("duplicate")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNotParty            = errors.New("user is not a party to the exchange")
)

type Users interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	// AddCredits applies a signed delta; the result may never go negative.
	AddCredits(ctx context.Context, id string, delta int) (models.User, error)
	// SetIdentitySession stores the provider session id and marks the user
	// pending, unless a session is already stored. It returns the user as
	// persisted afterwards.
	SetIdentitySession(ctx context.Context, id, sessionID string) (models.User, error)
}

type Homes interface {
	Create(ctx context.Context, h models.Home) (models.Home, error)
	GetByID(ctx context.Context, id string) (models.Home, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Home, error)
	List(ctx context.Context, limit, offset int) ([]models.Home, error)
}

// TransitionFunc decides the next status from a locked snapshot.
type TransitionFunc func(ex models.Exchange) (models.ExchangeStatus, error)

// ConfirmOutcome is the persisted result of a confirmation attempt.
type ConfirmOutcome struct {
	Exchange models.Exchange
	Plan     exchange.ConfirmPlan
	Credits  int
}

// PaymentUpdate is applied to one party of an exchange.
type PaymentUpdate struct {
	Event      models.ProviderEvent
	ExchangeID string
	ActorID    string
	// Check runs on the locked exchange before anything is written.
	Check  func(ex models.Exchange, role models.Role) error
	Status models.PaymentStatus
	// OnlyFrom, when set, applies Status only if the current status equals it.
	OnlyFrom models.PaymentStatus
}

type Exchanges interface {
	Create(ctx context.Context, ex models.Exchange) (models.Exchange, error)
	GetByID(ctx context.Context, id string) (models.Exchange, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Exchange, error)

	// Transition locks the exchange, asks fn for the next status, and
	// persists it in one atomic step.
	Transition(ctx context.Context, id string, fn TransitionFunc) (models.Exchange, models.ExchangeStatus, error)

	// Confirm locks the exchange and the actor's user row, asks the policy
	// for a plan, then applies the credit decrement, the flag and an
	// optional elevation to confirmed in one atomic step.
	Confirm(ctx context.Context, id, actorID string, policy exchange.ConfirmPolicy) (ConfirmOutcome, error)

	// SetPaymentSession stores a checkout session for the party unless one
	// is already stored, and marks the party's payment pending.
	SetPaymentSession(ctx context.Context, id string, role models.Role, sessionID string) (models.Exchange, error)

	// ApplyPayment records the provider event and updates the party's
	// payment status atomically. applied is false when the event id was
	// already recorded.
	ApplyPayment(ctx context.Context, u PaymentUpdate) (ex models.Exchange, applied bool, err error)

	// ApplyIdentity records the event, sets the user's identity status and
	// mirrors it onto every live exchange the user is a party to.
	ApplyIdentity(ctx context.Context, ev models.ProviderEvent, userID string, status models.VerificationStatus) (applied bool, err error)

	// ApplyCredits records the event and adds credits to the user.
	ApplyCredits(ctx context.Context, ev models.ProviderEvent, userID string, credits int) (applied bool, err error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
