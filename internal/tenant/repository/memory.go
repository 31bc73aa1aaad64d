package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/backend/internal/tenant/domain"
)

// MemoryRepository is an in-process Repository. A single mutex stands in for the database
// transaction, so Activate is atomic with respect to every other call.
type MemoryRepository struct {
	mu      sync.RWMutex
	tenants map[string]*domain.Tenant
}

// NewMemoryRepository returns an empty in-memory tenant repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tenants: make(map[string]*domain.Tenant)}
}

// Ping always succeeds.
func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

// List returns all tenants ordered by creation time then id.
func (r *MemoryRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked(func(*domain.Tenant) bool { return true }), nil
}

// GetByID returns the tenant for id, or nil if not found.
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tenants[id].Clone(), nil
}

// GetBySlug returns the tenant for slug, or nil if not found.
func (r *MemoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tenants {
		if t.Slug == slug {
			return t.Clone(), nil
		}
	}
	return nil, nil
}

// GetByDomain returns the tenant bound to host, or nil if none claims it.
func (r *MemoryRepository) GetByDomain(ctx context.Context, host string) (*domain.Tenant, error) {
	if host == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tenants {
		if t.Domain == host {
			return t.Clone(), nil
		}
	}
	return nil, nil
}

// ListActive returns at most limit active tenants.
func (r *MemoryRepository) ListActive(ctx context.Context, limit int) ([]*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.sortedLocked(func(t *domain.Tenant) bool { return t.IsActive })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Create stores a copy of t.
func (r *MemoryRepository) Create(ctx context.Context, t *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkUniqueLocked(t); err != nil {
		return err
	}
	if t.IsActive {
		for _, other := range r.tenants {
			if other.IsActive {
				other.IsActive = false
				other.UpdatedAt = t.CreatedAt
				other.UpdatedBy = t.CreatedBy
			}
		}
	}
	r.tenants[t.ID] = t.Clone()
	return nil
}

// Update replaces the mutable fields of an existing tenant.
func (r *MemoryRepository) Update(ctx context.Context, t *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tenants[t.ID]
	if !ok {
		return &domain.NotFoundError{ID: t.ID}
	}
	if err := r.checkUniqueLocked(t); err != nil {
		return err
	}
	next := t.Clone()
	next.IsActive = cur.IsActive
	next.CreatedAt = cur.CreatedAt
	next.CreatedBy = cur.CreatedBy
	r.tenants[t.ID] = next
	return nil
}

// Activate makes id the only active tenant.
func (r *MemoryRepository) Activate(ctx context.Context, id, actorID string, at time.Time) (Activation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.tenants[id]
	if !ok {
		return Activation{}, &domain.NotFoundError{ID: id}
	}
	var out Activation
	for _, t := range r.sortedRefsLocked() {
		if t.ID != id && t.IsActive {
			t.IsActive = false
			t.UpdatedAt = at
			t.UpdatedBy = actorID
			out.PreviousActiveIDs = append(out.PreviousActiveIDs, t.ID)
		}
	}
	if !target.IsActive {
		target.IsActive = true
		target.UpdatedAt = at
		target.UpdatedBy = actorID
		out.Changed = true
	}
	if len(out.PreviousActiveIDs) > 0 {
		out.Changed = true
	}
	return out, nil
}

// Deactivate clears is_active on id.
func (r *MemoryRepository) Deactivate(ctx context.Context, id, actorID string, at time.Time) (Activation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return Activation{}, &domain.NotFoundError{ID: id}
	}
	if !t.IsActive {
		return Activation{}, nil
	}
	t.IsActive = false
	t.UpdatedAt = at
	t.UpdatedBy = actorID
	return Activation{Changed: true}, nil
}

func (r *MemoryRepository) checkUniqueLocked(t *domain.Tenant) error {
	for _, other := range r.tenants {
		if other.ID == t.ID {
			continue
		}
		if other.Slug == t.Slug {
			return &domain.ConflictError{Field: "slug", Value: t.Slug}
		}
		if t.Domain != "" && other.Domain == t.Domain {
			return &domain.ConflictError{Field: "domain", Value: t.Domain}
		}
	}
	return nil
}

func (r *MemoryRepository) sortedRefsLocked() []*domain.Tenant {
	out := make([]*domain.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *MemoryRepository) sortedLocked(keep func(*domain.Tenant) bool) []*domain.Tenant {
	refs := r.sortedRefsLocked()
	out := make([]*domain.Tenant, 0, len(refs))
	for _, t := range refs {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}
