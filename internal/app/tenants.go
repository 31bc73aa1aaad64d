// Package app assembles the tenant stack (persistence, audit, cache, store and resolver) from
// config. The server and the seed command share it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"

	"storefront/backend/internal/audit"
	auditrepo "storefront/backend/internal/audit/repository"
	"storefront/backend/internal/audit/producer"
	"storefront/backend/internal/config"
	"storefront/backend/internal/db"
	telemetryotel "storefront/backend/internal/telemetry/otel"
	"storefront/backend/internal/tenant/repository"
	"storefront/backend/internal/tenant/resolver"
	"storefront/backend/internal/tenant/store"
)

// TenantStack is everything a process needs to read and mutate tenants.
type TenantStack struct {
	// DB is nil when running on the in-memory repository.
	DB        *sql.DB
	Store     *store.Store
	Resolver  *resolver.Resolver
	AuditRepo auditrepo.Repository
	// RedisCache is nil unless REDIS_URL is set.
	RedisCache *resolver.RedisCache

	closers []func() error
}

// Options tunes BuildTenantStack.
type Options struct {
	// AuditLogs, when set, mirrors every audit entry as an OTel log record.
	AuditLogs *sdklog.LoggerProvider
}

// BuildTenantStack opens the database (or the in-memory repository when DATABASE_URL is empty),
// the resolution cache and the audit sinks, and wires the store to invalidate the cache on
// every mutation.
func BuildTenantStack(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*TenantStack, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &TenantStack{}

	var tenantRepo repository.Repository
	if cfg.DatabaseURL != "" {
		conn, err := db.OpenContext(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s.DB = conn
		s.closers = append(s.closers, conn.Close)
		tenantRepo = repository.NewPostgresRepository(conn)
		s.AuditRepo = auditrepo.NewPostgresRepository(conn)
	} else {
		log.Warn("DATABASE_URL not set; using in-memory tenant store (data is lost on restart)")
		tenantRepo = repository.NewMemoryRepository()
		s.AuditRepo = auditrepo.NewMemoryRepository()
	}

	cache, err := s.openCache(ctx, cfg, s.DB != nil, log)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	var sinks []audit.Sink
	if kp := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.TenantEventsTopic); kp != nil {
		var p producer.Producer = kp
		sinks = append(sinks, p)
		s.closers = append(s.closers, p.Close)
		log.Info("audit entries mirrored to kafka", zap.String("topic", cfg.TenantEventsTopic))
	}
	if sink := telemetryotel.NewAuditSink(opts.AuditLogs); sink != nil {
		sinks = append(sinks, sink)
	}
	auditLogger := audit.NewLogger(s.AuditRepo, log.Named("audit"), sinks...)

	var storeOpts []store.Option
	if cache != nil {
		storeOpts = append(storeOpts, store.WithInvalidator(cache))
	}
	s.Store = store.New(tenantRepo, auditLogger, log.Named("tenant"), storeOpts...)
	s.Resolver = resolver.New(s.Store, cache, log.Named("resolver"))
	return s, nil
}

// openCache picks the resolution cache. Redis is shared by every instance. Without it, a
// process-local cache is only used when the repository is process-local too: a database
// shared by several processes would let one instance's activation go unseen by the others'
// caches. A nil Cache means every request resolves from the store.
func (s *TenantStack) openCache(ctx context.Context, cfg *config.Config, sharedStore bool, log *zap.Logger) (resolver.Cache, error) {
	if cfg.RedisURL != "" {
		client, err := resolver.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		s.RedisCache = resolver.NewRedisCache(client, cfg.CacheTTL())
		if err := s.RedisCache.Ping(ctx); err != nil {
			log.Warn("redis unreachable at startup; resolutions fall back to the store", zap.Error(err))
		}
		return s.RedisCache, nil
	}
	if sharedStore {
		log.Info("REDIS_URL not set; resolution cache disabled, every request reads the database")
		return nil, nil
	}
	return resolver.NewMemoryCache(cfg.CacheTTL()), nil
}

// Close releases connections in reverse order of acquisition.
func (s *TenantStack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
