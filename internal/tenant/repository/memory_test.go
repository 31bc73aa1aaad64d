package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront/backend/internal/tenant/domain"
)

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func newTenant(id, slug, host string, offset int) *domain.Tenant {
	at := t0.Add(time.Duration(offset) * time.Minute)
	return &domain.Tenant{
		ID: id, Slug: slug, Name: slug, Domain: host,
		Config:    json.RawMessage(`{}`),
		CreatedAt: at, UpdatedAt: at,
	}
}

func TestMemoryRepository_CreateAndLookups(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	if err := r.Create(ctx, newTenant("b", "beta", "", 2)); err != nil {
		t.Fatal(err)
	}
	if err := r.Create(ctx, newTenant("a", "alpha", "alpha.example.com", 1)); err != nil {
		t.Fatal(err)
	}

	all, _ := r.List(ctx)
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Fatalf("List order = %v", all)
	}
	if got, _ := r.GetBySlug(ctx, "beta"); got == nil || got.ID != "b" {
		t.Errorf("GetBySlug = %+v", got)
	}
	if got, _ := r.GetByDomain(ctx, "alpha.example.com"); got == nil || got.ID != "a" {
		t.Errorf("GetByDomain = %+v", got)
	}
	if got, _ := r.GetByDomain(ctx, ""); got != nil {
		t.Errorf("GetByDomain(\"\") = %+v, want nil", got)
	}
	if got, err := r.GetByID(ctx, "zzz"); got != nil || err != nil {
		t.Errorf("GetByID(missing) = %+v, %v", got, err)
	}

	got, _ := r.GetByID(ctx, "a")
	got.Name = "mutated"
	again, _ := r.GetByID(ctx, "a")
	if again.Name != "alpha" {
		t.Error("repository must hand out copies")
	}
}

func TestMemoryRepository_Uniqueness(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	_ = r.Create(ctx, newTenant("a", "alpha", "alpha.example.com", 0))

	var ce *domain.ConflictError
	if err := r.Create(ctx, newTenant("b", "alpha", "", 1)); !errors.As(err, &ce) || ce.Field != "slug" {
		t.Errorf("slug clash err = %v", err)
	}
	if err := r.Create(ctx, newTenant("c", "gamma", "alpha.example.com", 1)); !errors.As(err, &ce) || ce.Field != "domain" {
		t.Errorf("domain clash err = %v", err)
	}
	if err := r.Create(ctx, newTenant("d", "delta", "", 1)); err != nil {
		t.Errorf("blank domains must not clash: %v", err)
	}
	if err := r.Create(ctx, newTenant("e", "epsilon", "", 1)); err != nil {
		t.Errorf("blank domains must not clash: %v", err)
	}
}

func TestMemoryRepository_UpdateKeepsActivationAndProvenance(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	orig := newTenant("a", "alpha", "", 0)
	orig.CreatedBy = "creator"
	_ = r.Create(ctx, orig)
	_, _ = r.Activate(ctx, "a", "admin", t0)

	next := orig.Clone()
	next.Name = "Alpha"
	next.IsActive = false
	next.CreatedBy = "someone-else"
	if err := r.Update(ctx, next); err != nil {
		t.Fatal(err)
	}
	got, _ := r.GetByID(ctx, "a")
	if !got.IsActive || got.CreatedBy != "creator" || got.Name != "Alpha" {
		t.Errorf("after update = %+v", got)
	}

	if err := r.Update(ctx, newTenant("missing", "m", "", 0)); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("update missing err = %v", err)
	}
}

func TestMemoryRepository_Activate(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		_ = r.Create(ctx, newTenant(id, "slug-"+id, "", i))
	}

	res, err := r.Activate(ctx, "a", "admin", t0)
	if err != nil || !res.Changed || len(res.PreviousActiveIDs) != 0 {
		t.Fatalf("Activate(a) = %+v, %v", res, err)
	}
	res, err = r.Activate(ctx, "b", "admin", t0)
	if err != nil || !res.Changed || len(res.PreviousActiveIDs) != 1 || res.PreviousActiveIDs[0] != "a" {
		t.Fatalf("Activate(b) = %+v, %v", res, err)
	}
	res, err = r.Activate(ctx, "b", "admin", t0)
	if err != nil || res.Changed {
		t.Fatalf("repeat Activate(b) = %+v, %v", res, err)
	}
	active, _ := r.ListActive(ctx, 2)
	if len(active) != 1 || active[0].ID != "b" {
		t.Errorf("active = %v", active)
	}
	if _, err := r.Activate(ctx, "nope", "admin", t0); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Activate(missing) err = %v", err)
	}

	res, err = r.Deactivate(ctx, "b", "admin", t0)
	if err != nil || !res.Changed {
		t.Fatalf("Deactivate(b) = %+v, %v", res, err)
	}
	res, _ = r.Deactivate(ctx, "b", "admin", t0)
	if res.Changed {
		t.Error("second Deactivate should report no change")
	}
	if active, _ := r.ListActive(ctx, 2); len(active) != 0 {
		t.Errorf("active after deactivate = %v", active)
	}
}

func TestMemoryRepository_ConcurrentActivate(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_ = r.Create(ctx, newTenant(fmt.Sprintf("t%d", i), fmt.Sprintf("s%d", i), "", i))
	}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = r.Activate(ctx, id, "admin", t0)
		}(fmt.Sprintf("t%d", i))
	}
	wg.Wait()
	active, _ := r.ListActive(ctx, 0)
	if len(active) != 1 {
		t.Fatalf("active tenants = %d, want 1", len(active))
	}
}
