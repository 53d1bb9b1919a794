package models

import "time"

const AuditEntityExchange = "exchange"

// AuditLog is an append-only record of one state change. ActorID is nil for
// changes driven by a provider callback.
type AuditLog struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   *string        `json:"entity_id"`
	Action     string         `json:"action"`
	ActorID    *string        `json:"actor_id,omitempty"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

func NewAuditLog(entityType, entityID, action, actorID string, details map[string]any) AuditLog {
	l := AuditLog{
		EntityType: entityType,
		EntityID:   &entityID,
		Action:     action,
		Details:    details,
	}
	if actorID != "" {
		l.ActorID = &actorID
	}
	return l
}
