package resolver

import (
	"context"
	"sync"
	"time"

	"storefront/backend/internal/tenant/domain"
)

// Cache memoizes resolutions across requests. A nil tenant with found=true is a cached
// negative result. Implementations must be safe for concurrent use.
//
// Get also returns the cache generation it read. Set stores under that generation only, so a
// store read that raced an Invalidate is never visible afterwards.
type Cache interface {
	Get(ctx context.Context, key string) (t *domain.Tenant, found bool, gen int64, err error)
	Set(ctx context.Context, key string, gen int64, t *domain.Tenant) error
	// Invalidate drops every cached resolution and advances the generation.
	Invalidate(ctx context.Context) error
}

type memoryEntry struct {
	tenant  *domain.Tenant
	expires time.Time
}

// MemoryCache is a process-local Cache with a fixed TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	gen     int64
	entries map[string]memoryEntry
	nowF    func() time.Time
}

// NewMemoryCache returns a MemoryCache. A non-positive ttl keeps entries until invalidated.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		nowF:    time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*domain.Tenant, bool, int64, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	gen := c.gen
	c.mu.RUnlock()
	if !ok {
		return nil, false, gen, nil
	}
	if !e.expires.IsZero() && c.nowF().After(e.expires) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.expires.Equal(e.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, gen, nil
	}
	return e.tenant.Clone(), true, gen, nil
}

// Set drops the write when gen is older than the current generation.
func (c *MemoryCache) Set(ctx context.Context, key string, gen int64, t *domain.Tenant) error {
	e := memoryEntry{tenant: t.Clone()}
	if c.ttl > 0 {
		e.expires = c.nowF().Add(c.ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.entries[key] = e
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
	return nil
}

// Len reports the number of cached entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
