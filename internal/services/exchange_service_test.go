package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapbnb/exchange-coordinator/internal/apperr"
	"github.com/swapbnb/exchange-coordinator/internal/models"
	"github.com/swapbnb/exchange-coordinator/internal/notify"
)

func TestRequestExchangeSeedsIdentityAndNotifiesHost(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityVerified)
	host := h.user("bob", 0, models.IdentityPending)

	ex := h.request(req, host)
	assert.Equal(t, models.StatusPending, ex.Status)
	assert.Equal(t, req.user.ID, ex.RequesterID)
	assert.Equal(t, host.user.ID, ex.HostID)
	assert.Equal(t, models.IdentityVerified, ex.RequesterIdentityStatus)
	assert.Equal(t, models.IdentityPending, ex.HostIdentityStatus)
	assert.Equal(t, models.PaymentUnpaid, ex.RequesterPaymentStatus)
	assert.False(t, ex.RequesterConfirmed || ex.HostConfirmed)

	ev := h.notes.last()
	assert.Equal(t, notify.KindRequested, ev.Kind)
	assert.Equal(t, []string{host.user.ID}, ev.Recipients)
}

func TestRequestExchangeValidation(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityVerified)
	host := h.user("bob", 1, models.IdentityVerified)
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	valid := RequestInput{
		HostHomeID: host.home.ID, RequesterHomeID: req.home.ID,
		StartDate: start, EndDate: start.AddDate(0, 0, 3), Guests: 1, Message: "hi",
	}

	cases := []struct {
		name   string
		actor  string
		mutate func(in *RequestInput)
		kind   apperr.Kind
	}{
		{"missing message", req.user.ID, func(in *RequestInput) { in.Message = " " }, apperr.Validation},
		{"end before start", req.user.ID, func(in *RequestInput) { in.EndDate = start.AddDate(0, 0, -1) }, apperr.Validation},
		{"same day", req.user.ID, func(in *RequestInput) { in.EndDate = start }, apperr.Validation},
		{"no guests", req.user.ID, func(in *RequestInput) { in.Guests = 0 }, apperr.Validation},
		{"unknown home", req.user.ID, func(in *RequestInput) { in.HostHomeID = "nope" }, apperr.NotFound},
		{"own home", host.user.ID, func(in *RequestInput) { in.RequesterHomeID = host.home.ID }, apperr.Conflict},
		{"someone else's home as offer", req.user.ID, func(in *RequestInput) { in.RequesterHomeID = host.home.ID }, apperr.Validation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := h.svc.RequestExchange(h.ctx, tc.actor, in)
			assert.Equal(t, tc.kind, apperr.KindOf(err), "err: %v", err)
		})
	}
}

func TestRespondToRequest(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityVerified)
	host := h.user("bob", 1, models.IdentityVerified)
	ex := h.request(req, host)

	_, err := h.svc.RespondToRequest(h.ctx, ex.ID, req.user.ID, DecisionAccept)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized, "requester may not respond")

	_, err = h.svc.RespondToRequest(h.ctx, ex.ID, host.user.ID, "maybe")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.svc.RespondToRequest(h.ctx, ex.ID, "stranger", DecisionAccept)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = h.svc.RespondToRequest(h.ctx, "missing", host.user.ID, DecisionAccept)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := h.svc.RespondToRequest(h.ctx, ex.ID, host.user.ID, DecisionAccept)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, got.Status)
	assert.Equal(t, notify.KindAccepted, h.notes.last().Kind)

	_, err = h.svc.RespondToRequest(h.ctx, ex.ID, host.user.ID, DecisionReject)
	assert.ErrorIs(t, err, apperr.ErrInvalidState, "already accepted")
}

func TestRejectedExchangeCannotBeConfirmed(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityVerified)
	host := h.user("bob", 1, models.IdentityVerified)
	ex := h.request(req, host)

	got, err := h.svc.RespondToRequest(h.ctx, ex.ID, host.user.ID, DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, got.Status)

	for _, actor := range []string{req.user.ID, host.user.ID} {
		_, err := h.svc.ConfirmExchange(h.ctx, ex.ID, actor)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	}
	assert.Equal(t, 1, h.credits(req.user.ID))
	assert.Equal(t, 1, h.credits(host.user.ID))
}

func TestCancelExchange(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityVerified)
	host := h.user("bob", 1, models.IdentityVerified)

	t.Run("host may not cancel", func(t *testing.T) {
		ex := h.accepted(req, host)
		_, err := h.svc.CancelExchange(h.ctx, ex.ID, host.user.ID)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("requester cancels pending and accepted", func(t *testing.T) {
		for _, ex := range []models.Exchange{h.request(req, host), h.accepted(req, host)} {
			got, err := h.svc.CancelExchange(h.ctx, ex.ID, req.user.ID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusCancelled, got.Status)
			assert.Equal(t, notify.KindCancelled, h.notes.last().Kind)
		}
	})

	t.Run("terminal statuses refuse", func(t *testing.T) {
		rejected := h.request(req, host)
		_, err := h.svc.RespondToRequest(h.ctx, rejected.ID, host.user.ID, DecisionReject)
		require.NoError(t, err)

		cancelled := h.request(req, host)
		_, err = h.svc.CancelExchange(h.ctx, cancelled.ID, req.user.ID)
		require.NoError(t, err)

		confirmed := h.accepted(req, host)
		_, err = h.svc.ConfirmExchange(h.ctx, confirmed.ID, req.user.ID)
		require.NoError(t, err)
		_, err = h.svc.ConfirmExchange(h.ctx, confirmed.ID, host.user.ID)
		require.NoError(t, err)

		for _, id := range []string{rejected.ID, cancelled.ID, confirmed.ID} {
			_, err := h.svc.CancelExchange(h.ctx, id, req.user.ID)
			assert.ErrorIs(t, err, apperr.ErrInvalidState)
		}
	})
}

func TestConfirmScenarioCreditThenPaid(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityVerified)
	host := h.user("bob", 0, models.IdentityVerified)
	ex := h.accepted(req, host)

	res, err := h.svc.ConfirmExchange(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)
	assert.True(t, res.CreditSpent)
	assert.False(t, res.BothConfirmed)
	assert.True(t, res.Exchange.RequesterConfirmed)
	assert.Equal(t, models.StatusAccepted, res.Exchange.Status)
	assert.Equal(t, 0, h.credits(req.user.ID))
	assert.Equal(t, notify.KindPartyConfirmed, h.notes.last().Kind)
	assert.Equal(t, []string{host.user.ID}, h.notes.last().Recipients)

	_, err = h.svc.RecordPayment(h.ctx, PaymentEvent{
		Provider: "payments", EventID: "evt_1", ExchangeID: ex.ID, ActorID: host.user.ID, AmountCents: testFee,
	})
	require.NoError(t, err)

	res, err = h.svc.ConfirmExchange(h.ctx, ex.ID, host.user.ID)
	require.NoError(t, err)
	assert.False(t, res.CreditSpent, "a paid fee is used before any credit")
	assert.True(t, res.BothConfirmed)
	assert.Equal(t, models.StatusConfirmed, res.Exchange.Status)
	require.NotNil(t, res.Exchange.ConfirmedAt)
	assert.Equal(t, 0, h.credits(host.user.ID))

	ev := h.notes.last()
	assert.Equal(t, notify.KindConfirmed, ev.Kind)
	assert.ElementsMatch(t, []string{req.user.ID, host.user.ID}, ev.Recipients)
}

func TestConfirmTwiceIsNoop(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 2, models.IdentityVerified)
	host := h.user("bob", 1, models.IdentityVerified)
	ex := h.accepted(req, host)

	_, err := h.svc.ConfirmExchange(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)
	res, err := h.svc.ConfirmExchange(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)
	assert.True(t, res.AlreadyConfirmed)
	assert.False(t, res.CreditSpent)
	assert.Equal(t, 1, h.credits(req.user.ID))
}

func TestConfirmAfterCancelIsRefused(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityVerified)
	host := h.user("bob", 1, models.IdentityVerified)
	ex := h.accepted(req, host)

	_, err := h.svc.ConfirmExchange(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)
	_, err = h.svc.CancelExchange(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)

	res, err := h.svc.ConfirmExchange(h.ctx, ex.ID, req.user.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.False(t, res.AlreadyConfirmed)
	_, err = h.svc.ConfirmExchange(h.ctx, ex.ID, host.user.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	got := h.exchange(ex.ID)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.False(t, got.HostConfirmed)
	assert.Equal(t, 0, h.credits(req.user.ID))
	assert.Equal(t, 1, h.credits(host.user.ID))
}

func TestConfirmGate(t *testing.T) {
	cases := []struct {
		name     string
		identity models.VerificationStatus
		credits  int
		paid     bool
		want     *apperr.Error
	}{
		{"unverified with credit", models.IdentityUnverified, 5, false, apperr.ErrVerificationRequired},
		{"pending with payment", models.IdentityPending, 0, true, apperr.ErrVerificationRequired},
		{"verified no credit unpaid", models.IdentityVerified, 0, false, apperr.ErrPaymentRequired},
		{"verified paid", models.IdentityVerified, 0, true, nil},
		{"verified credit", models.IdentityVerified, 1, false, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			req := h.user("alice", tc.credits, tc.identity)
			host := h.user("bob", 1, models.IdentityVerified)
			ex := h.accepted(req, host)
			if tc.paid {
				_, err := h.svc.RecordPayment(h.ctx, PaymentEvent{
					Provider: "payments", EventID: "evt", ExchangeID: ex.ID, ActorID: req.user.ID, AmountCents: testFee,
				})
				require.NoError(t, err)
			}
			before := h.exchange(ex.ID)

			_, err := h.svc.ConfirmExchange(h.ctx, ex.ID, req.user.ID)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, h.exchange(ex.ID), "a refused confirmation changes nothing")
			assert.Equal(t, tc.credits, h.credits(req.user.ID))
		})
	}
}

func TestConcurrentConfirmSpendsOneCredit(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 3, models.IdentityVerified)
	host := h.user("bob", 1, models.IdentityVerified)
	ex := h.accepted(req, host)

	const n = 16
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		spent int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.svc.ConfirmExchange(h.ctx, ex.ID, req.user.ID)
			if !assert.NoError(t, err) {
				return
			}
			if res.CreditSpent {
				mu.Lock()
				spent++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, spent)
	assert.Equal(t, 2, h.credits(req.user.ID))
	assert.True(t, h.exchange(ex.ID).RequesterConfirmed)
}

func TestConcurrentConfirmByBothPartiesElevatesOnce(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityVerified)
	host := h.user("bob", 1, models.IdentityVerified)
	ex := h.accepted(req, host)

	var wg sync.WaitGroup
	for _, actor := range []string{req.user.ID, host.user.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := h.svc.ConfirmExchange(h.ctx, ex.ID, id)
			assert.NoError(t, err)
		}(actor)
	}
	wg.Wait()

	got := h.exchange(ex.ID)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.True(t, got.BothConfirmed())
}

func TestConfirmedIffBothFlags(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityVerified)
	host := h.user("bob", 1, models.IdentityVerified)
	ex := h.accepted(req, host)

	check := func() {
		got := h.exchange(ex.ID)
		assert.Equal(t, got.BothConfirmed(), got.Status == models.StatusConfirmed || got.Status == models.StatusCompleted)
	}
	check()
	_, err := h.svc.ConfirmExchange(h.ctx, ex.ID, host.user.ID)
	require.NoError(t, err)
	check()
	_, err = h.svc.ConfirmExchange(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)
	check()
}

func TestPendingIdentityBlocksConfirm(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityUnverified)
	host := h.user("bob", 1, models.IdentityVerified)
	ex := h.accepted(req, host)

	_, err := h.svc.StartVerification(h.ctx, req.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IdentityPending, h.exchange(ex.ID).RequesterIdentityStatus)

	_, err = h.svc.ConfirmExchange(h.ctx, ex.ID, req.user.ID)
	assert.ErrorIs(t, err, apperr.ErrVerificationRequired)
	assert.False(t, h.exchange(ex.ID).RequesterConfirmed)
	assert.Equal(t, 1, h.credits(req.user.ID))
}

func TestCompleteExchange(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityVerified)
	host := h.user("bob", 1, models.IdentityVerified)
	ex := h.accepted(req, host)

	_, err := h.svc.CompleteExchange(h.ctx, ex.ID, "admin", ex.EndDate.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, apperr.ErrInvalidState, "not confirmed yet")

	_, err = h.svc.ConfirmExchange(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)
	_, err = h.svc.ConfirmExchange(h.ctx, ex.ID, host.user.ID)
	require.NoError(t, err)

	_, err = h.svc.CompleteExchange(h.ctx, ex.ID, "admin", ex.EndDate.Add(-time.Hour))
	assert.ErrorIs(t, err, apperr.ErrInvalidState, "stay not over")

	got, err := h.svc.CompleteExchange(h.ctx, ex.ID, "admin", ex.EndDate)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, notify.KindCompleted, h.notes.last().Kind)
}

func TestGetAndList(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityVerified)
	host := h.user("bob", 0, models.IdentityVerified)
	ex := h.accepted(req, host)

	v, err := h.svc.Get(h.ctx, ex.ID, host.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleHost, v.ViewerRole)
	assert.Equal(t, "pay the service fee to confirm", v.NextStep)

	v, err = h.svc.Get(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "confirm the swap", v.NextStep)

	stranger := h.user("carol", 0, models.IdentityVerified)
	_, err = h.svc.Get(h.ctx, ex.ID, stranger.user.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	views, err := h.svc.ListForUser(h.ctx, req.user.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, models.RoleRequester, views[0].ViewerRole)

	views, err = h.svc.ListForUser(h.ctx, stranger.user.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestTransitionsAreAudited(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityVerified)
	host := h.user("bob", 1, models.IdentityVerified)
	ex := h.accepted(req, host)
	_, err := h.svc.CancelExchange(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)

	var actions []string
	for _, l := range h.store.AuditTrail() {
		actions = append(actions, l.Action)
	}
	assert.Equal(t, []string{"request", "accept", "cancel"}, actions)
	assert.Equal(t, []string{notify.KindRequested, notify.KindAccepted, notify.KindCancelled}, h.notes.kinds())
}
