package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapbnb/exchange-coordinator/internal/apperr"
	"github.com/swapbnb/exchange-coordinator/internal/models"
)

func TestRecordPaymentIsIdempotent(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 0, models.IdentityVerified)
	host := h.user("bob", 0, models.IdentityVerified)
	ex := h.accepted(req, host)
	ev := PaymentEvent{Provider: "payments", EventID: "evt_1", ExchangeID: ex.ID, ActorID: req.user.ID, AmountCents: testFee}

	res, err := h.svc.RecordPayment(h.ctx, ev)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, models.PaymentPaid, res.Exchange.RequesterPaymentStatus)
	assert.Equal(t, models.PaymentUnpaid, res.Exchange.HostPaymentStatus)

	res, err = h.svc.RecordPayment(h.ctx, ev)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	// a failure replayed under a fresh id must not undo a completed payment
	_, err = h.svc.RecordPaymentFailure(h.ctx, PaymentEvent{Provider: "payments", EventID: "evt_2", ExchangeID: ex.ID, ActorID: req.user.ID})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, h.exchange(ex.ID).RequesterPaymentStatus)
}

func TestRecordPaymentRejects(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 0, models.IdentityVerified)
	host := h.user("bob", 0, models.IdentityVerified)
	ex := h.accepted(req, host)

	cases := []struct {
		name string
		ev   PaymentEvent
		want *apperr.Error
	}{
		{"below fee", PaymentEvent{Provider: "payments", EventID: "a", ExchangeID: ex.ID, ActorID: req.user.ID, AmountCents: testFee - 1}, apperr.ErrValidation},
		{"missing event id", PaymentEvent{Provider: "payments", ExchangeID: ex.ID, ActorID: req.user.ID, AmountCents: testFee}, apperr.ErrValidation},
		{"unknown exchange", PaymentEvent{Provider: "payments", EventID: "b", ExchangeID: "nope", ActorID: req.user.ID, AmountCents: testFee}, apperr.ErrNotFound},
		{"not a party", PaymentEvent{Provider: "payments", EventID: "c", ExchangeID: ex.ID, ActorID: "stranger", AmountCents: testFee}, apperr.ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.svc.RecordPayment(h.ctx, tc.ev)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, models.PaymentUnpaid, h.exchange(ex.ID).RequesterPaymentStatus)

	// a rejected event id is not burned in the ledger
	_, err := h.svc.RecordPayment(h.ctx, PaymentEvent{Provider: "payments", EventID: "c", ExchangeID: ex.ID, ActorID: req.user.ID, AmountCents: testFee})
	require.NoError(t, err)
}

func TestPaymentFailureResetsPending(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 0, models.IdentityVerified)
	host := h.user("bob", 0, models.IdentityVerified)
	ex := h.accepted(req, host)

	_, err := h.svc.StartPayment(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, h.exchange(ex.ID).RequesterPaymentStatus)

	res, err := h.svc.RecordPaymentFailure(h.ctx, PaymentEvent{Provider: "payments", EventID: "f1", ExchangeID: ex.ID, ActorID: req.user.ID})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, models.PaymentUnpaid, res.Exchange.RequesterPaymentStatus)
}

func TestRecordIdentityVerification(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityUnverified)
	host := h.user("bob", 1, models.IdentityVerified)
	live := h.accepted(req, host)
	closed := h.request(req, host)
	_, err := h.svc.CancelExchange(h.ctx, closed.ID, req.user.ID)
	require.NoError(t, err)

	dup, err := h.svc.RecordIdentityVerification(h.ctx, IdentityEvent{
		Provider: "identity", EventID: "iv_1", ExchangeID: live.ID, Role: models.RoleRequester, Status: models.IdentityVerified,
	})
	require.NoError(t, err)
	assert.False(t, dup)

	u, err := h.repos.Users.GetByID(h.ctx, req.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IdentityVerified, u.IdentityStatus)
	assert.Equal(t, models.IdentityVerified, h.exchange(live.ID).RequesterIdentityStatus)
	assert.Equal(t, models.IdentityUnverified, h.exchange(closed.ID).RequesterIdentityStatus, "terminal exchanges keep their snapshot")

	dup, err = h.svc.RecordIdentityVerification(h.ctx, IdentityEvent{
		Provider: "identity", EventID: "iv_1", UserID: req.user.ID, Status: models.IdentityUnverified,
	})
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, models.IdentityVerified, h.exchange(live.ID).RequesterIdentityStatus)

	_, err = h.svc.RecordIdentityVerification(h.ctx, IdentityEvent{Provider: "identity", EventID: "iv_2", UserID: req.user.ID, Status: "approved"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.svc.RecordIdentityVerification(h.ctx, IdentityEvent{Provider: "identity", EventID: "iv_3", ExchangeID: live.ID, Status: models.IdentityVerified})
	assert.ErrorIs(t, err, apperr.ErrValidation, "role is needed to resolve the user")
}

func TestLatePendingDoesNotUndoVerification(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 1, models.IdentityUnverified)
	host := h.user("bob", 1, models.IdentityVerified)
	ex := h.accepted(req, host)

	_, err := h.svc.RecordIdentityVerification(h.ctx, IdentityEvent{
		Provider: "identity", EventID: "iv_verified", UserID: req.user.ID, Status: models.IdentityVerified,
	})
	require.NoError(t, err)
	dup, err := h.svc.RecordIdentityVerification(h.ctx, IdentityEvent{
		Provider: "identity", EventID: "iv_pending_late", UserID: req.user.ID, Status: models.IdentityPending,
	})
	require.NoError(t, err)
	assert.False(t, dup, "recorded, just not applied")
	assert.Equal(t, models.IdentityVerified, h.exchange(ex.ID).RequesterIdentityStatus)

	res, err := h.svc.ConfirmExchange(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)
	assert.True(t, res.Exchange.RequesterConfirmed)

	// revocation still applies
	_, err = h.svc.RecordIdentityVerification(h.ctx, IdentityEvent{
		Provider: "identity", EventID: "iv_revoked", UserID: req.user.ID, Status: models.IdentityUnverified,
	})
	require.NoError(t, err)
	u, err := h.repos.Users.GetByID(h.ctx, req.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IdentityUnverified, u.IdentityStatus)
}

func TestRecordCreditsPurchase(t *testing.T) {
	h := newHarness(t)
	u := h.user("alice", 0, models.IdentityVerified)
	ev := CreditsEvent{Provider: "payments", EventID: "cp_1", UserID: u.user.ID, Credits: 3}

	dup, err := h.svc.RecordCreditsPurchase(h.ctx, ev)
	require.NoError(t, err)
	assert.False(t, dup)
	dup, err = h.svc.RecordCreditsPurchase(h.ctx, ev)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, 3, h.credits(u.user.ID))

	_, err = h.svc.RecordCreditsPurchase(h.ctx, CreditsEvent{Provider: "payments", EventID: "cp_2", UserID: "ghost", Credits: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestStartPayment(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 0, models.IdentityVerified)
	host := h.user("bob", 0, models.IdentityVerified)

	pending := h.request(req, host)
	_, err := h.svc.StartPayment(h.ctx, pending.ID, req.user.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	ex := h.accepted(req, host)
	_, err = h.svc.StartPayment(h.ctx, ex.ID, "stranger")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	first, err := h.svc.StartPayment(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)
	assert.False(t, first.Reused)
	assert.NotEmpty(t, first.URL)

	again, err := h.svc.StartPayment(h.ctx, ex.ID, req.user.ID)
	require.NoError(t, err)
	assert.True(t, again.Reused)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, h.pay.Calls("cs"), "a stored session is reused without calling the provider")

	_, err = h.svc.RecordPayment(h.ctx, PaymentEvent{Provider: "payments", EventID: "p", ExchangeID: ex.ID, ActorID: req.user.ID, AmountCents: testFee})
	require.NoError(t, err)
	_, err = h.svc.StartPayment(h.ctx, ex.ID, req.user.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestStartPaymentProviderDown(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 0, models.IdentityVerified)
	host := h.user("bob", 0, models.IdentityVerified)
	ex := h.accepted(req, host)
	h.pay.Err = errors.New("connection refused")

	_, err := h.svc.StartPayment(h.ctx, ex.ID, host.user.ID)
	assert.ErrorIs(t, err, apperr.ErrExternalProvider)
	got := h.exchange(ex.ID)
	assert.Nil(t, got.HostPaymentSessionID)
	assert.Equal(t, models.PaymentUnpaid, got.HostPaymentStatus)
}

func TestStartVerification(t *testing.T) {
	h := newHarness(t)
	u := h.user("alice", 0, models.IdentityUnverified)

	first, err := h.svc.StartVerification(h.ctx, u.user.ID)
	require.NoError(t, err)
	again, err := h.svc.StartVerification(h.ctx, u.user.ID)
	require.NoError(t, err)
	assert.True(t, again.Reused)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, h.idv.Calls("vs"))

	done := h.user("bob", 0, models.IdentityVerified)
	_, err = h.svc.StartVerification(h.ctx, done.user.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}
