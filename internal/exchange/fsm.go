// Package exchange holds the exchange lifecycle rules: which party may take
// which action from which status, and what a party needs before it may
// confirm. Everything here is a pure function of an exchange snapshot;
// persistence and atomicity belong to the repository.
package exchange

import (
	"github.com/swapbnb/exchange-coordinator/internal/apperr"
	"github.com/swapbnb/exchange-coordinator/internal/models"
)

type Action string

const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
	ActionConfirm  Action = "confirm"
	ActionComplete Action = "complete"
)

// actor is who may take an action. "party" means either role; "admin" is an
// operator outside the exchange.
type actor string

const (
	actorHost      actor = "host"
	actorRequester actor = "requester"
	actorParty     actor = "party"
	actorAdmin     actor = "admin"
)

var actionActors = map[Action]actor{
	ActionAccept:   actorHost,
	ActionReject:   actorHost,
	ActionCancel:   actorRequester,
	ActionConfirm:  actorParty,
	ActionComplete: actorAdmin,
}

// legalTransitions maps a status to the actions allowed from it and the
// status each action leads to. Terminal statuses have no entries.
// Confirm keeps the exchange accepted; elevation to confirmed happens once
// both flags are set (see Elevate).
var legalTransitions = map[models.ExchangeStatus]map[Action]models.ExchangeStatus{
	models.StatusPending: {
		ActionAccept: models.StatusAccepted,
		ActionReject: models.StatusRejected,
		ActionCancel: models.StatusCancelled,
	},
	models.StatusAccepted: {
		ActionCancel:  models.StatusCancelled,
		ActionConfirm: models.StatusAccepted,
	},
	models.StatusConfirmed: {
		ActionComplete: models.StatusCompleted,
	},
	models.StatusRejected:  {},
	models.StatusCancelled: {},
	models.StatusCompleted: {},
}

// Authorize checks that role may take the action at all. It is independent
// of status so a wrong-role caller always gets Unauthorized.
func Authorize(a Action, role models.Role) error {
	need, ok := actionActors[a]
	if !ok {
		return apperr.New(apperr.Validation, "unknown action %q", a)
	}
	switch need {
	case actorParty:
		if role == models.RoleHost || role == models.RoleRequester {
			return nil
		}
	case actorHost:
		if role == models.RoleHost {
			return nil
		}
	case actorRequester:
		if role == models.RoleRequester {
			return nil
		}
	}
	return apperr.New(apperr.Unauthorized, "only the %s may %s this exchange", need, a)
}

// Next returns the status reached by taking a from status from.
func Next(from models.ExchangeStatus, a Action) (models.ExchangeStatus, error) {
	actions, ok := legalTransitions[from]
	if !ok {
		return "", apperr.New(apperr.InvalidState, "unknown status %q", from)
	}
	to, ok := actions[a]
	if !ok {
		return "", apperr.New(apperr.InvalidState, "cannot %s an exchange that is %s", a, from)
	}
	return to, nil
}

// Decide combines Authorize and Next for a party action on ex.
func Decide(ex models.Exchange, actorID string, a Action) (models.ExchangeStatus, error) {
	role, ok := ex.RoleOf(actorID)
	if !ok {
		return "", apperr.New(apperr.Unauthorized, "not a party to this exchange")
	}
	if err := Authorize(a, role); err != nil {
		return "", err
	}
	return Next(ex.Status, a)
}

// Elevate reports whether ex must move from accepted to confirmed.
func Elevate(ex models.Exchange) bool {
	return ex.Status == models.StatusAccepted && ex.BothConfirmed()
}
