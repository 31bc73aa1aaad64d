package domain

import (
	"encoding/json"
	"time"
)

// AuditLog is one immutable record of an administrative tenant mutation.
type AuditLog struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	// TenantID is empty when the subject could not be resolved (e.g. a failed create).
	TenantID   string          `json:"tenant_id,omitempty"`
	ActorID    string          `json:"actor_id"`
	ActorLabel string          `json:"actor_label,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
