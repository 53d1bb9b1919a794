package exchange

import (
	"github.com/swapbnb/exchange-coordinator/internal/apperr"
	"github.com/swapbnb/exchange-coordinator/internal/models"
)

// PartyState is what the gate needs to know about one party at the moment
// it tries to confirm.
type PartyState struct {
	Identity models.VerificationStatus
	Payment  models.PaymentStatus
	Credits  int
}

func PartyOf(ex models.Exchange, role models.Role, credits int) PartyState {
	return PartyState{
		Identity: ex.Identity(role),
		Payment:  ex.Payment(role),
		Credits:  credits,
	}
}

type BlockReason string

const (
	BlockNone              BlockReason = ""
	BlockNotVerified       BlockReason = "not_verified"
	BlockNoCreditOrPayment BlockReason = "no_credit_or_payment"
)

// ConfirmationBlockReason checks identity first: an unverified party is
// blocked no matter how much credit it holds.
func ConfirmationBlockReason(p PartyState) BlockReason {
	if p.Identity != models.IdentityVerified {
		return BlockNotVerified
	}
	if p.Payment != models.PaymentPaid && p.Credits <= 0 {
		return BlockNoCreditOrPayment
	}
	return BlockNone
}

func CanConfirm(p PartyState) bool { return ConfirmationBlockReason(p) == BlockNone }

// SpendsCredit reports whether confirming consumes a credit. A fee already
// paid for this exchange is used before any credit.
func SpendsCredit(p PartyState) bool { return p.Payment != models.PaymentPaid }

func (r BlockReason) Err() error {
	switch r {
	case BlockNotVerified:
		return apperr.New(apperr.VerificationRequired, "identity verification is required before confirming")
	case BlockNoCreditOrPayment:
		return apperr.New(apperr.PaymentRequired, "a credit or the service fee is required before confirming")
	}
	return nil
}

// ConfirmPlan is the write a confirmation must perform atomically.
type ConfirmPlan struct {
	Role             models.Role
	AlreadyConfirmed bool
	SpendCredit      bool
	Elevate          bool
}

// ConfirmPolicy decides a confirmation against a locked snapshot of the
// exchange and the actor's credit balance.
type ConfirmPolicy func(ex models.Exchange, actorID string, credits int) (ConfirmPlan, error)

// PlanConfirm is the ConfirmPolicy used in production.
func PlanConfirm(ex models.Exchange, actorID string, credits int) (ConfirmPlan, error) {
	role, ok := ex.RoleOf(actorID)
	if !ok {
		return ConfirmPlan{}, apperr.New(apperr.Unauthorized, "not a party to this exchange")
	}
	// a repeat confirm is only a no-op while the swap is live or just confirmed
	switch ex.Status {
	case models.StatusAccepted, models.StatusConfirmed:
	default:
		return ConfirmPlan{}, apperr.New(apperr.InvalidState, "cannot %s an exchange that is %s", ActionConfirm, ex.Status)
	}
	plan := ConfirmPlan{Role: role}
	if ex.Confirmed(role) {
		plan.AlreadyConfirmed = true
		return plan, nil
	}
	if _, err := Next(ex.Status, ActionConfirm); err != nil {
		return ConfirmPlan{}, err
	}
	p := PartyOf(ex, role, credits)
	if err := ConfirmationBlockReason(p).Err(); err != nil {
		return ConfirmPlan{}, err
	}
	plan.SpendCredit = SpendsCredit(p)
	plan.Elevate = ex.Confirmed(role.Other())
	return plan, nil
}
