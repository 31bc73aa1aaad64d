package repository

import (
	"context"
	"time"

	"storefront/backend/internal/tenant/domain"
)

// Activation describes what an activation or deactivation changed.
type Activation struct {
	// Changed is false when the tenant was already in the requested state.
	Changed bool
	// PreviousActiveIDs are the tenants that were switched off by this activation.
	PreviousActiveIDs []string
}

// Repository defines persistence for tenants. Lookups return (nil, nil) when no row matches;
// errors are reserved for persistence failures and invariant violations.
type Repository interface {
	List(ctx context.Context) ([]*domain.Tenant, error)
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	GetByDomain(ctx context.Context, host string) (*domain.Tenant, error)
	// ListActive returns at most limit tenants with is_active set. Callers pass 2 to detect a violated invariant.
	ListActive(ctx context.Context, limit int) ([]*domain.Tenant, error)
	// Create inserts t. When t.IsActive is set, every other tenant is deactivated in the same transaction.
	// Returns *domain.ConflictError when slug or domain is taken.
	Create(ctx context.Context, t *domain.Tenant) error
	// Update writes the mutable fields of t, leaving is_active untouched.
	// Returns *domain.NotFoundError or *domain.ConflictError.
	Update(ctx context.Context, t *domain.Tenant) error
	// Activate makes id the only active tenant within one serialized transaction.
	Activate(ctx context.Context, id, actorID string, at time.Time) (Activation, error)
	// Deactivate clears is_active on id only.
	Deactivate(ctx context.Context, id, actorID string, at time.Time) (Activation, error)
	Ping(ctx context.Context) error
}
