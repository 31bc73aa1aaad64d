package repository

import (
	"context"

	"storefront/backend/internal/audit/domain"
)

// Repository defines append-only persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByTenant returns the newest entries for tenantID first, paginated by limit and offset.
	ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.AuditLog, error)
}
