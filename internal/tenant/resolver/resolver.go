// Package resolver maps an inbound hostname to the tenant that serves it: the tenant bound to
// that domain, else the single active tenant, else none.
package resolver

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"storefront/backend/internal/tenant/domain"
)

const instrumentationName = "storefront/backend/internal/tenant/resolver"

// Source is the read side of the tenant store used for resolution.
type Source interface {
	GetByDomain(ctx context.Context, host string) (*domain.Tenant, error)
	GetActive(ctx context.Context) (*domain.Tenant, error)
}

// Match says which step of the fallback chain produced a resolution.
type Match string

const (
	MatchDomain Match = "domain"
	MatchActive Match = "active"
	MatchNone   Match = "none"
)

// Resolution is the outcome of Resolve. Tenant is nil when Match is MatchNone; callers then
// apply their own default display configuration.
type Resolution struct {
	Tenant *domain.Tenant
	Match  Match
	Domain string
}

// Resolver resolves tenants with an optional cross-request cache.
type Resolver struct {
	source Source
	cache  Cache
	log    *zap.Logger

	resolutions  metric.Int64Counter
	cacheLookups metric.Int64Counter
}

// New returns a Resolver. cache and log may be nil.
func New(source Source, cache Cache, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	meter := otel.Meter(instrumentationName)
	resolutions, err := meter.Int64Counter("tenant.resolutions",
		metric.WithDescription("Tenant resolutions by matching step."))
	if err != nil {
		log.Warn("resolver: create resolutions counter", zap.Error(err))
	}
	lookups, err := meter.Int64Counter("tenant.resolve_cache.lookups",
		metric.WithDescription("Resolution cache lookups by result."))
	if err != nil {
		log.Warn("resolver: create cache counter", zap.Error(err))
	}
	return &Resolver{
		source:       source,
		cache:        cache,
		log:          log,
		resolutions:  resolutions,
		cacheLookups: lookups,
	}
}

// Resolve returns the tenant for host. host may be empty or carry a port; it is normalized
// before lookup. Errors are store failures, including *domain.AmbiguousStateError.
func (r *Resolver) Resolve(ctx context.Context, host string) (Resolution, error) {
	host = domain.NormalizeDomain(host)
	key := cacheKey(host)

	// gen is read before the store so a concurrent Invalidate makes the Set below a no-op.
	var gen int64
	cacheable := false
	if r.cache != nil {
		t, found, g, err := r.cache.Get(ctx, key)
		switch {
		case err != nil:
			r.log.Warn("resolver: cache get failed, resolving from store", zap.String("key", key), zap.Error(err))
			r.countLookup(ctx, "error")
		case found:
			r.countLookup(ctx, "hit")
			res := newResolution(host, t)
			r.countResolution(ctx, res.Match)
			return res, nil
		default:
			r.countLookup(ctx, "miss")
			gen, cacheable = g, true
		}
	}

	t, err := r.resolve(ctx, host)
	if err != nil {
		r.countResolution(ctx, "error")
		return Resolution{Domain: host, Match: MatchNone}, err
	}
	if cacheable {
		if err := r.cache.Set(ctx, key, gen, t); err != nil {
			r.log.Warn("resolver: cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	res := newResolution(host, t)
	r.countResolution(ctx, res.Match)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, host string) (*domain.Tenant, error) {
	if host != "" {
		t, err := r.source.GetByDomain(ctx, host)
		if err != nil {
			return nil, err
		}
		if t != nil {
			return t, nil
		}
	}
	return r.source.GetActive(ctx)
}

// Invalidate clears the resolution cache. It satisfies store.Invalidator.
func (r *Resolver) Invalidate(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Invalidate(ctx)
}

func newResolution(host string, t *domain.Tenant) Resolution {
	res := Resolution{Tenant: t, Domain: host, Match: MatchNone}
	switch {
	case t == nil:
	case host != "" && t.Domain == host:
		res.Match = MatchDomain
	default:
		res.Match = MatchActive
	}
	return res
}

func cacheKey(host string) string {
	if host == "" {
		return "active"
	}
	return "host:" + host
}

func (r *Resolver) countResolution(ctx context.Context, match Match) {
	if r.resolutions == nil {
		return
	}
	r.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("match", string(match))))
}

func (r *Resolver) countLookup(ctx context.Context, result string) {
	if r.cacheLookups == nil {
		return
	}
	r.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
