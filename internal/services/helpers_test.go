package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/swapbnb/exchange-coordinator/internal/models"
	"github.com/swapbnb/exchange-coordinator/internal/notify"
	"github.com/swapbnb/exchange-coordinator/internal/provider"
	"github.com/swapbnb/exchange-coordinator/internal/repository/memory"
)

const testFee = 2500

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recorder) last() notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	store *memory.Store
	repos memory.Repositories
	pay   *provider.Fake
	idv   *provider.Fake
	notes *recorder
	svc   *ExchangeService
	hooks *Webhooks
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.New()
	repos := store.Repositories()
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		store: store,
		repos: repos,
		pay:   provider.NewFake(),
		idv:   provider.NewFake(),
		notes: &recorder{},
	}
	h.svc = NewExchangeService(ExchangeDeps{
		Users:     repos.Users,
		Homes:     repos.Homes,
		Exchanges: repos.Exchanges,
		AuditLogs: repos.AuditLogs,
		Payments:  h.pay,
		Identity:  h.idv,
		Notifier:  h.notes,
		FeeCents:  testFee,
		Currency:  "usd",
	})
	h.hooks = NewWebhooks(h.svc, "usd")
	return h
}

type party struct {
	user models.User
	home models.Home
}

func (h *harness) user(name string, credits int, identity models.VerificationStatus) party {
	h.t.Helper()
	u, err := h.repos.Users.Create(h.ctx, models.User{
		Username:       name,
		Email:          name + "@example.com",
		Role:           models.UserRoleUser,
		Credits:        credits,
		IdentityStatus: identity,
	})
	require.NoError(h.t, err)
	home, err := h.repos.Homes.Create(h.ctx, models.Home{OwnerID: u.ID, Title: name + "'s flat", City: "Lisbon"})
	require.NoError(h.t, err)
	return party{user: u, home: home}
}

func (h *harness) request(req, host party) models.Exchange {
	h.t.Helper()
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	ex, err := h.svc.RequestExchange(h.ctx, req.user.ID, RequestInput{
		HostHomeID:      host.home.ID,
		RequesterHomeID: req.home.ID,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, 7),
		Guests:          2,
		Message:         "swap in July?",
	})
	require.NoError(h.t, err)
	return ex
}

func (h *harness) accepted(req, host party) models.Exchange {
	h.t.Helper()
	ex := h.request(req, host)
	ex, err := h.svc.RespondToRequest(h.ctx, ex.ID, host.user.ID, DecisionAccept)
	require.NoError(h.t, err)
	return ex
}

func (h *harness) credits(userID string) int {
	h.t.Helper()
	u, err := h.repos.Users.GetByID(h.ctx, userID)
	require.NoError(h.t, err)
	return u.Credits
}

func (h *harness) exchange(id string) models.Exchange {
	h.t.Helper()
	ex, err := h.repos.Exchanges.GetByID(h.ctx, id)
	require.NoError(h.t, err)
	return ex
}
