package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/swapbnb/exchange-coordinator/internal/exchange"
	"github.com/swapbnb/exchange-coordinator/internal/models"
	repo "github.com/swapbnb/exchange-coordinator/internal/repository"
)

type exchangesRepo struct{ s *Store }

func (r *exchangesRepo) Create(_ context.Context, ex models.Exchange) (models.Exchange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	ex.CreatedAt = r.s.now()
	ex.UpdatedAt = ex.CreatedAt
	r.s.exchanges[ex.ID] = ex
	return ex, nil
}

func (r *exchangesRepo) GetByID(_ context.Context, id string) (models.Exchange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ex, ok := r.s.exchanges[id]
	if !ok {
		return models.Exchange{}, repo.ErrNotFound
	}
	return ex, nil
}

func (r *exchangesRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Exchange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Exchange
	for _, ex := range r.s.exchanges {
		if ex.RequesterID == userID || ex.HostID == userID {
			out = append(out, ex)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func (r *exchangesRepo) Transition(_ context.Context, id string, fn repo.TransitionFunc) (models.Exchange, models.ExchangeStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ex, ok := r.s.exchanges[id]
	if !ok {
		return models.Exchange{}, "", repo.ErrNotFound
	}
	from := ex.Status
	to, err := fn(ex)
	if err != nil {
		return models.Exchange{}, from, err
	}
	now := r.s.now()
	ex.Status = to
	ex.UpdatedAt = now
	if to == models.StatusCompleted {
		ex.CompletedAt = &now
	}
	r.s.exchanges[id] = ex
	return ex, from, nil
}

func (r *exchangesRepo) Confirm(_ context.Context, id, actorID string, policy exchange.ConfirmPolicy) (repo.ConfirmOutcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ex, ok := r.s.exchanges[id]
	if !ok {
		return repo.ConfirmOutcome{}, repo.ErrNotFound
	}
	u, ok := r.s.users[actorID]
	if !ok {
		// not a registered user, so certainly not a party
		u = models.User{ID: actorID}
	}
	plan, err := policy(ex, actorID, u.Credits)
	if err != nil {
		return repo.ConfirmOutcome{}, err
	}
	if plan.AlreadyConfirmed {
		return repo.ConfirmOutcome{Exchange: ex, Plan: plan, Credits: u.Credits}, nil
	}
	if plan.SpendCredit {
		if u.Credits <= 0 {
			return repo.ConfirmOutcome{}, repo.ErrInsufficientCredits
		}
		u.Credits--
		u.UpdatedAt = r.s.now()
		r.s.users[actorID] = u
	}
	now := r.s.now()
	ex.SetConfirmed(plan.Role)
	if plan.Elevate && ex.BothConfirmed() {
		ex.Status = models.StatusConfirmed
		ex.ConfirmedAt = &now
	}
	ex.UpdatedAt = now
	r.s.exchanges[id] = ex
	return repo.ConfirmOutcome{Exchange: ex, Plan: plan, Credits: u.Credits}, nil
}

func (r *exchangesRepo) SetPaymentSession(_ context.Context, id string, role models.Role, sessionID string) (models.Exchange, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ex, ok := r.s.exchanges[id]
	if !ok {
		return models.Exchange{}, repo.ErrNotFound
	}
	if ex.PaymentSession(role) != nil {
		return ex, nil
	}
	ex.SetPaymentSession(role, sessionID)
	if ex.Payment(role) == models.PaymentUnpaid {
		ex.SetPayment(role, models.PaymentPending)
	}
	ex.UpdatedAt = r.s.now()
	r.s.exchanges[id] = ex
	return ex, nil
}

func (r *exchangesRepo) ApplyPayment(_ context.Context, u repo.PaymentUpdate) (models.Exchange, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ex, ok := r.s.exchanges[u.ExchangeID]
	if !ok {
		return models.Exchange{}, false, repo.ErrNotFound
	}
	if _, dup := r.s.events[eventKey(u.Event)]; dup {
		return ex, false, nil
	}
	role, ok := ex.RoleOf(u.ActorID)
	if !ok {
		return models.Exchange{}, false, repo.ErrNotParty
	}
	if u.Check != nil {
		if err := u.Check(ex, role); err != nil {
			return models.Exchange{}, false, err
		}
	}
	r.s.recordEvent(u.Event)
	if u.OnlyFrom == "" || ex.Payment(role) == u.OnlyFrom {
		ex.SetPayment(role, u.Status)
		ex.UpdatedAt = r.s.now()
		r.s.exchanges[ex.ID] = ex
	}
	return ex, true, nil
}

func (r *exchangesRepo) ApplyIdentity(_ context.Context, ev models.ProviderEvent, userID string, status models.VerificationStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return false, repo.ErrNotFound
	}
	if !r.s.recordEvent(ev) {
		return false, nil
	}
	if !status.Replaces(u.IdentityStatus) {
		return true, nil
	}
	u.IdentityStatus = status
	u.UpdatedAt = r.s.now()
	r.s.users[userID] = u
	r.s.mirrorIdentity(userID, status)
	return true, nil
}

func (r *exchangesRepo) ApplyCredits(_ context.Context, ev models.ProviderEvent, userID string, credits int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return false, repo.ErrNotFound
	}
	if !r.s.recordEvent(ev) {
		return false, nil
	}
	u.Credits += credits
	u.UpdatedAt = r.s.now()
	r.s.users[userID] = u
	return true, nil
}
