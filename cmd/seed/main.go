// seed creates the default storefront tenant for local testing and makes it active.
// Idempotent: an existing tenant with the same slug is left untouched unless it is inactive and
// no other tenant is active, in which case it is activated.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"storefront/backend/internal/app"
	"storefront/backend/internal/config"
	"storefront/backend/internal/logger"
	"storefront/backend/internal/tenant/domain"
	"storefront/backend/internal/tenant/store"
)

const defaultConfig = `{"theme":{"primary":"#111827","accent":"#2563eb"},"copy":{"tagline":"Welcome"}}`

var seedActor = store.Actor{ID: "seed", Label: "cmd/seed"}

func main() {
	slug := flag.String("slug", "default", "Tenant slug")
	name := flag.String("name", "Default Storefront", "Tenant display name")
	host := flag.String("domain", "", "Optional domain bound to the tenant")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, ServiceName: "storefront-seed", Development: true})
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	stack, err := app.BuildTenantStack(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Fatal("tenant stack", zap.Error(err))
	}
	defer func() { _ = stack.Close() }()

	t, err := seed(ctx, stack.Store, domain.Draft{
		Slug:   *slug,
		Name:   *name,
		Domain: *host,
		Config: json.RawMessage(defaultConfig),
	})
	if err != nil {
		log.Fatal("seed", zap.Error(err))
	}
	log.Info("seed applied", zap.String("tenant_id", t.ID), zap.String("slug", t.Slug), zap.Bool("active", t.IsActive))
}

// tenantStore is the subset of *store.Store used by seed.
type tenantStore interface {
	List(ctx context.Context) ([]*domain.Tenant, error)
	GetActive(ctx context.Context) (*domain.Tenant, error)
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	Create(ctx context.Context, draft domain.Draft, actor store.Actor) (*domain.Tenant, error)
	Activate(ctx context.Context, id string, actor store.Actor) (bool, error)
}

func seed(ctx context.Context, s tenantStore, draft domain.Draft) (*domain.Tenant, error) {
	draft.Normalize()
	tenants, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var existing *domain.Tenant
	for _, t := range tenants {
		if t.Slug == draft.Slug {
			existing = t
			break
		}
	}
	if existing == nil {
		existing, err = s.Create(ctx, draft, seedActor)
		if err != nil {
			return nil, err
		}
	}

	active, err := s.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		// never steal activation from a tenant an operator chose
		return existing, nil
	}
	if _, err := s.Activate(ctx, existing.ID, seedActor); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, existing.ID)
}
