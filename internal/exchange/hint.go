package exchange

import "github.com/swapbnb/exchange-coordinator/internal/models"

// NextStep is the short instruction shown to the viewer of an exchange.
func NextStep(ex models.Exchange, viewer models.Role, credits int) string {
	switch ex.Status {
	case models.StatusPending:
		if viewer == models.RoleHost {
			return "review the request and accept or reject it"
		}
		return "waiting for the host to respond"
	case models.StatusAccepted:
		if ex.Confirmed(viewer) {
			return "waiting on the other party to confirm"
		}
		switch ConfirmationBlockReason(PartyOf(ex, viewer, credits)) {
		case BlockNotVerified:
			if ex.Identity(viewer) == models.IdentityPending {
				return "identity verification is in progress"
			}
			return "verify your identity to confirm"
		case BlockNoCreditOrPayment:
			if ex.Payment(viewer) == models.PaymentPending {
				return "payment is processing"
			}
			return "pay the service fee to confirm"
		}
		return "confirm the swap"
	case models.StatusRejected:
		return "the host declined this request"
	case models.StatusCancelled:
		return "the request was withdrawn"
	case models.StatusConfirmed:
		return "swap confirmed"
	case models.StatusCompleted:
		return "swap completed"
	}
	return ""
}
