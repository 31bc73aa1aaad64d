// Package producer publishes audit entries to an event stream (e.g. Kafka) so downstream
// reporting can consume tenant changes without reading the database.
package producer

import (
	"context"

	"storefront/backend/internal/audit/domain"
)

// Producer emits audit entries. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single entry. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, entry *domain.AuditLog) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
