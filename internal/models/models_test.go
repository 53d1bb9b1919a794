package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityReplaces(t *testing.T) {
	assert.True(t, IdentityVerified.Replaces(IdentityPending))
	assert.True(t, IdentityUnverified.Replaces(IdentityVerified), "revocation")
	assert.True(t, IdentityPending.Replaces(IdentityUnverified))
	assert.False(t, IdentityPending.Replaces(IdentityVerified))
}

func TestNewAuditLog(t *testing.T) {
	l := NewAuditLog(AuditEntityExchange, "ex-1", "confirm", "", nil)
	assert.Nil(t, l.ActorID)
	assert.Equal(t, "ex-1", *l.EntityID)

	l = NewAuditLog(AuditEntityExchange, "ex-1", "confirm", "u1", map[string]any{"role": "host"})
	if assert.NotNil(t, l.ActorID) {
		assert.Equal(t, "u1", *l.ActorID)
	}
}
