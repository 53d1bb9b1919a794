package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapbnb/exchange-coordinator/internal/apperr"
	"github.com/swapbnb/exchange-coordinator/internal/models"
)

func TestToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"25.00", 2500, true},
		{"25", 2500, true},
		{"0.1", 10, true},
		{" 19.99 ", 1999, true},
		{"1.005", 0, false},
		{"-1.00", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := toCents(tc.in)
			if !tc.ok {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPaymentWebhookRouting(t *testing.T) {
	h := newHarness(t)
	req := h.user("alice", 0, models.IdentityVerified)
	host := h.user("bob", 0, models.IdentityVerified)
	ex := h.accepted(req, host)

	body := fmt.Sprintf(`{"id":"evt_9","type":"checkout.completed","exchange_id":%q,"user_id":%q,"amount":"25.00","currency":"USD"}`, ex.ID, host.user.ID)
	res, err := h.hooks.Payment(h.ctx, []byte(body))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, models.PaymentPaid, h.exchange(ex.ID).HostPaymentStatus)

	res, err = h.hooks.Payment(h.ctx, []byte(body))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	_, err = h.hooks.Payment(h.ctx, []byte(fmt.Sprintf(`{"id":"evt_10","type":"checkout.completed","exchange_id":%q,"user_id":%q,"amount":"25.00","currency":"eur"}`, ex.ID, req.user.ID)))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.hooks.Payment(h.ctx, []byte(fmt.Sprintf(`{"id":"cp_1","type":"credits.purchased","user_id":%q,"credits":2}`, req.user.ID)))
	require.NoError(t, err)
	assert.Equal(t, 2, h.credits(req.user.ID))

	_, err = h.hooks.Payment(h.ctx, []byte(`{"id":"x","type":"refund.created"}`))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.hooks.Payment(h.ctx, []byte(`not json`))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestIdentityWebhook(t *testing.T) {
	h := newHarness(t)
	u := h.user("alice", 0, models.IdentityPending)

	res, err := h.hooks.Identity(h.ctx, []byte(fmt.Sprintf(`{"id":"iv_1","user_id":%q,"status":"verified"}`, u.user.ID)))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	got, err := h.repos.Users.GetByID(h.ctx, u.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IdentityVerified, got.IdentityStatus)
}
