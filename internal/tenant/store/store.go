// Package store is the administrative surface over tenant records. It validates input,
// keeps the single-active-tenant invariant through the repository's transactional activate,
// writes the audit trail and invalidates resolution caches after every mutation.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/backend/internal/audit"
	"storefront/backend/internal/tenant/domain"
	"storefront/backend/internal/tenant/repository"
)

// Invalidator drops cached resolutions. Implemented by the resolver cache.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Actor identifies who performs an administrative mutation. The caller has already
// authorized the actor; the store only records it.
type Actor struct {
	ID    string
	Label string
}

// Store implements tenant CRUD and activation.
type Store struct {
	repo        repository.Repository
	audit       audit.AuditLogger
	invalidator Invalidator
	log         *zap.Logger
	nowF        func() time.Time
	newID       func() string
}

// Option configures a Store.
type Option func(*Store)

// WithInvalidator registers the cache to clear after each successful mutation.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Store) { s.invalidator = inv }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.nowF = now }
}

// New returns a Store. auditLogger and log may be nil.
func New(repo repository.Repository, auditLogger audit.AuditLogger, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		repo:  repo,
		audit: auditLogger,
		log:   log,
		nowF:  func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every tenant.
func (s *Store) List(ctx context.Context) ([]*domain.Tenant, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return out, nil
}

// GetByID returns the tenant for id, or nil if none exists.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	if id == "" {
		return nil, nil
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get tenant %s: %w", id, err)
	}
	return t, nil
}

// GetByDomain returns the tenant bound to host after normalization, or nil.
func (s *Store) GetByDomain(ctx context.Context, host string) (*domain.Tenant, error) {
	host = domain.NormalizeDomain(host)
	if host == "" {
		return nil, nil
	}
	t, err := s.repo.GetByDomain(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("get tenant by domain %s: %w", host, err)
	}
	return t, nil
}

// GetActive returns the active tenant, or nil if none is active. More than one active
// tenant is reported as *domain.AmbiguousStateError and never resolved silently.
func (s *Store) GetActive(ctx context.Context) (*domain.Tenant, error) {
	active, err := s.repo.ListActive(ctx, 2)
	if err != nil {
		return nil, fmt.Errorf("get active tenant: %w", err)
	}
	switch len(active) {
	case 0:
		return nil, nil
	case 1:
		return active[0], nil
	default:
		ids := make([]string, len(active))
		for i, t := range active {
			ids[i] = t.ID
		}
		s.log.Error("tenant: single-active invariant violated", zap.Strings("tenant_ids", ids))
		return nil, &domain.AmbiguousStateError{IDs: ids}
	}
}

// Create validates and persists a new tenant. It is inactive unless the draft asks otherwise.
func (s *Store) Create(ctx context.Context, draft domain.Draft, actor Actor) (*domain.Tenant, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		s.recordFailedCreate(ctx, draft, actor, err)
		return nil, err
	}
	now := s.nowF()
	t := &domain.Tenant{
		ID:        s.newID(),
		Slug:      draft.Slug,
		Name:      draft.Name,
		Domain:    draft.Domain,
		IsActive:  draft.IsActive,
		Config:    draft.Config,
		AssetURLs: draft.AssetURLs,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: actor.ID,
		UpdatedBy: actor.ID,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		s.recordFailedCreate(ctx, draft, actor, err)
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	s.afterMutation(ctx)
	s.record(ctx, audit.ActionCreate, t.ID, actor, audit.TenantSnapshot(t))
	if t.IsActive {
		s.record(ctx, audit.ActionActivate, t.ID, actor, audit.TenantSnapshot(t))
	}
	return t.Clone(), nil
}

// Update applies a partial update. is_active in the patch is routed through Activate or
// Deactivate so the single-active invariant is never bypassed.
//
// Field changes are saved and audited before the is_active transition runs. If that
// transition fails, the field changes stay saved: Update returns the saved record together
// with the error. The record is nil whenever nothing was written.
func (s *Store) Update(ctx context.Context, id string, patch domain.Patch, actor Actor) (*domain.Tenant, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &domain.NotFoundError{ID: id}
	}
	if patch.Empty() {
		return nil, &domain.ValidationError{Field: "patch", Reason: "must change at least one field"}
	}

	fieldsChanged := patch.Slug != nil || patch.Name != nil || patch.Domain != nil || patch.Config != nil || patch.AssetURLs != nil
	if fieldsChanged {
		if err := patch.Apply(t); err != nil {
			return nil, err
		}
		t.UpdatedAt = s.nowF()
		t.UpdatedBy = actor.ID
		if err := s.repo.Update(ctx, t); err != nil {
			return nil, fmt.Errorf("update tenant %s: %w", id, err)
		}
		s.afterMutation(ctx)
		s.record(ctx, audit.ActionUpdate, t.ID, actor, audit.TenantSnapshot(t))
	}

	if patch.IsActive != nil {
		if *patch.IsActive {
			_, err = s.Activate(ctx, id, actor)
		} else {
			_, err = s.Deactivate(ctx, id, actor)
		}
		if err != nil {
			if fieldsChanged {
				return t.Clone(), err
			}
			return nil, err
		}
	}

	out, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &domain.NotFoundError{ID: id}
	}
	return out, nil
}

// Activate makes id the only active tenant. Activating the already-active tenant succeeds
// without changing anything.
func (s *Store) Activate(ctx context.Context, id string, actor Actor) (bool, error) {
	if id == "" {
		return false, &domain.NotFoundError{ID: id}
	}
	res, err := s.repo.Activate(ctx, id, actor.ID, s.nowF())
	if err != nil {
		return false, fmt.Errorf("activate tenant %s: %w", id, err)
	}
	if res.Changed {
		s.afterMutation(ctx)
	}
	meta := map[string]any{"changed": res.Changed}
	if len(res.PreviousActiveIDs) > 0 {
		meta["previous_active_ids"] = res.PreviousActiveIDs
	}
	s.record(ctx, audit.ActionActivate, id, actor, meta)
	return true, nil
}

// Deactivate clears is_active on id, leaving the platform with no active tenant if id was it.
func (s *Store) Deactivate(ctx context.Context, id string, actor Actor) (bool, error) {
	if id == "" {
		return false, &domain.NotFoundError{ID: id}
	}
	res, err := s.repo.Deactivate(ctx, id, actor.ID, s.nowF())
	if err != nil {
		return false, fmt.Errorf("deactivate tenant %s: %w", id, err)
	}
	if res.Changed {
		s.afterMutation(ctx)
	}
	s.record(ctx, audit.ActionDeactivate, id, actor, map[string]any{"changed": res.Changed})
	return true, nil
}

// Ping reports whether the backing repository is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Store) afterMutation(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.log.Error("tenant: cache invalidation failed", zap.Error(err))
	}
}

func (s *Store) record(ctx context.Context, action audit.Action, tenantID string, actor Actor, meta map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, action, tenantID, actor.ID, actor.Label, meta)
}

func (s *Store) recordFailedCreate(ctx context.Context, draft domain.Draft, actor Actor, cause error) {
	s.record(ctx, audit.ActionCreateFailed, "", actor, map[string]any{
		"slug":  draft.Slug,
		"name":  draft.Name,
		"error": cause.Error(),
	})
}
