package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront/backend/internal/audit"
	"storefront/backend/internal/tenant/domain"
	"storefront/backend/internal/tenant/repository"
)

type recordedEntry struct {
	action   audit.Action
	tenantID string
	actorID  string
	meta     map[string]any
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []recordedEntry
}

func (r *recordingAudit) Record(ctx context.Context, action audit.Action, tenantID, actorID, actorLabel string, metadata map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedEntry{action: action, tenantID: tenantID, actorID: actorID, meta: metadata})
}

func (r *recordingAudit) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Action, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.action
	}
	return out
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

// ambiguousRepo simulates a table where the invariant was broken out of band.
type ambiguousRepo struct {
	repository.Repository
}

func (ambiguousRepo) ListActive(ctx context.Context, limit int) ([]*domain.Tenant, error) {
	return []*domain.Tenant{{ID: "a", IsActive: true}, {ID: "b", IsActive: true}}, nil
}

var admin = Actor{ID: "user-1", Label: "admin@example.com"}

func draft(slug string) domain.Draft {
	return domain.Draft{Slug: slug, Name: slug + " store", Config: json.RawMessage(`{"theme":"light"}`)}
}

func newTestStore(t *testing.T) (*Store, *recordingAudit, *countingInvalidator) {
	t.Helper()
	rec := &recordingAudit{}
	inv := &countingInvalidator{}
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	s := New(repository.NewMemoryRepository(), rec, nil,
		WithInvalidator(inv),
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		}))
	return s, rec, inv
}

func countActive(t *testing.T, s *Store) int {
	t.Helper()
	all, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	n := 0
	for _, tn := range all {
		if tn.IsActive {
			n++
		}
	}
	return n
}

func TestStore_Create(t *testing.T) {
	s, rec, inv := newTestStore(t)
	ctx := context.Background()

	d := draft("Acme Store")
	d.Domain = "Shop.Acme.com:8443"
	got, err := s.Create(ctx, d, admin)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID == "" {
		t.Error("id should be assigned")
	}
	if got.Slug != "acme-store" {
		t.Errorf("slug = %q, want acme-store", got.Slug)
	}
	if got.Domain != "shop.acme.com" {
		t.Errorf("domain = %q, want shop.acme.com", got.Domain)
	}
	if got.IsActive {
		t.Error("new tenant must not be active by default")
	}
	if got.CreatedBy != "user-1" || got.CreatedAt.IsZero() {
		t.Errorf("provenance = %q at %v", got.CreatedBy, got.CreatedAt)
	}
	if acts := rec.actions(); len(acts) != 1 || acts[0] != audit.ActionCreate {
		t.Errorf("audit actions = %v, want [create]", acts)
	}
	if rec.entries[0].tenantID != got.ID || rec.entries[0].meta["slug"] != "acme-store" {
		t.Errorf("audit entry = %+v", rec.entries[0])
	}
	if inv.calls != 1 {
		t.Errorf("invalidations = %d, want 1", inv.calls)
	}

	byDomain, err := s.GetByDomain(ctx, "SHOP.acme.com")
	if err != nil || byDomain == nil || byDomain.ID != got.ID {
		t.Errorf("GetByDomain = %+v, %v", byDomain, err)
	}
}

func TestStore_Create_Validation(t *testing.T) {
	s, rec, inv := newTestStore(t)
	testCases := []struct {
		name  string
		draft domain.Draft
		field string
	}{
		{"missing slug", domain.Draft{Name: "x", Config: json.RawMessage(`{}`)}, "slug"},
		{"missing name", domain.Draft{Slug: "x", Config: json.RawMessage(`{}`)}, "name"},
		{"missing config", domain.Draft{Slug: "x", Name: "x"}, "config"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tc.draft, admin)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field = %q, want %q", ve.Field, tc.field)
			}
		})
	}
	for _, e := range rec.entries {
		if e.action != audit.ActionCreateFailed || e.tenantID != "" {
			t.Errorf("failed create audited as %+v", e)
		}
	}
	if inv.calls != 0 {
		t.Errorf("invalidations = %d, want 0", inv.calls)
	}
}

func TestStore_Create_Conflict(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Create(ctx, draft("acme"), admin); err != nil {
		t.Fatal(err)
	}
	_, err := s.Create(ctx, draft("ACME"), admin)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestStore_Create_ActiveDeactivatesOthers(t *testing.T) {
	s, rec, _ := newTestStore(t)
	ctx := context.Background()
	first := draft("first")
	first.IsActive = true
	if _, err := s.Create(ctx, first, admin); err != nil {
		t.Fatal(err)
	}
	second := draft("second")
	second.IsActive = true
	got, err := s.Create(ctx, second, admin)
	if err != nil {
		t.Fatal(err)
	}
	if n := countActive(t, s); n != 1 {
		t.Fatalf("active tenants = %d, want 1", n)
	}
	active, err := s.GetActive(ctx)
	if err != nil || active == nil || active.ID != got.ID {
		t.Errorf("GetActive = %+v, %v", active, err)
	}
	acts := rec.actions()
	if acts[len(acts)-1] != audit.ActionActivate {
		t.Errorf("audit actions = %v, want trailing activate", acts)
	}
}

// A tenant created inactive, then activated, replaces the previous active tenant.
func TestStore_Activate_SwitchesActiveTenant(t *testing.T) {
	s, rec, inv := newTestStore(t)
	ctx := context.Background()

	a, err := s.Create(ctx, draft("a"), admin)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Create(ctx, draft("b"), admin)
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Activate(ctx, a.ID, admin); !ok || err != nil {
		t.Fatalf("Activate(a) = %v, %v", ok, err)
	}
	if ok, err := s.Activate(ctx, b.ID, admin); !ok || err != nil {
		t.Fatalf("Activate(b) = %v, %v", ok, err)
	}

	gotA, _ := s.GetByID(ctx, a.ID)
	gotB, _ := s.GetByID(ctx, b.ID)
	if gotA.IsActive || !gotB.IsActive {
		t.Errorf("a.active=%v b.active=%v, want false/true", gotA.IsActive, gotB.IsActive)
	}
	if gotB.UpdatedBy != admin.ID {
		t.Errorf("updated_by = %q, want %q", gotB.UpdatedBy, admin.ID)
	}

	last := rec.entries[len(rec.entries)-1]
	if last.action != audit.ActionActivate || last.tenantID != b.ID {
		t.Errorf("last audit = %+v", last)
	}
	prev, _ := last.meta["previous_active_ids"].([]string)
	if len(prev) != 1 || prev[0] != a.ID {
		t.Errorf("previous_active_ids = %v, want [%s]", last.meta["previous_active_ids"], a.ID)
	}
	if inv.calls != 4 {
		t.Errorf("invalidations = %d, want 4", inv.calls)
	}
}

func TestStore_Activate_Idempotent(t *testing.T) {
	s, rec, inv := newTestStore(t)
	ctx := context.Background()
	a, _ := s.Create(ctx, draft("a"), admin)
	if _, err := s.Activate(ctx, a.ID, admin); err != nil {
		t.Fatal(err)
	}
	before, _ := s.GetByID(ctx, a.ID)
	calls := inv.calls

	ok, err := s.Activate(ctx, a.ID, admin)
	if !ok || err != nil {
		t.Fatalf("second Activate = %v, %v", ok, err)
	}
	after, _ := s.GetByID(ctx, a.ID)
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("no-op activation must not touch updated_at")
	}
	if inv.calls != calls {
		t.Error("no-op activation must not invalidate the cache")
	}
	last := rec.entries[len(rec.entries)-1]
	if last.meta["changed"] != false {
		t.Errorf("changed = %v, want false", last.meta["changed"])
	}
}

func TestStore_Activate_NotFound(t *testing.T) {
	s, rec, _ := newTestStore(t)
	for _, id := range []string{"missing", ""} {
		ok, err := s.Activate(context.Background(), id, admin)
		if ok || !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Activate(%q) = %v, %v; want false, ErrNotFound", id, ok, err)
		}
	}
	if len(rec.entries) != 0 {
		t.Errorf("failed activation audited: %+v", rec.entries)
	}
}

func TestStore_Activate_Concurrent(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	ids := make([]string, 8)
	for i := range ids {
		tn, err := s.Create(ctx, draft(fmt.Sprintf("tenant-%d", i)), admin)
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = tn.ID
	}

	var wg sync.WaitGroup
	for round := 0; round < 5; round++ {
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := s.Activate(ctx, id, admin); err != nil {
					t.Errorf("Activate(%s): %v", id, err)
				}
			}(id)
		}
	}
	wg.Wait()

	if n := countActive(t, s); n != 1 {
		t.Fatalf("active tenants = %d, want exactly 1", n)
	}
	if _, err := s.GetActive(ctx); err != nil {
		t.Errorf("GetActive: %v", err)
	}
}

func TestStore_GetActive(t *testing.T) {
	s, _, _ := newTestStore(t)
	got, err := s.GetActive(context.Background())
	if got != nil || err != nil {
		t.Errorf("GetActive on empty store = %+v, %v; want nil, nil", got, err)
	}

	broken := New(ambiguousRepo{}, nil, nil)
	_, err = broken.GetActive(context.Background())
	var ae *domain.AmbiguousStateError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want *AmbiguousStateError", err)
	}
	if len(ae.IDs) != 2 {
		t.Errorf("ids = %v", ae.IDs)
	}
}

func TestStore_Update(t *testing.T) {
	s, rec, _ := newTestStore(t)
	ctx := context.Background()
	a, _ := s.Create(ctx, draft("a"), admin)

	name := "Renamed"
	cfg := json.RawMessage(`{"theme":"dark"}`)
	editor := Actor{ID: "user-2"}
	got, err := s.Update(ctx, a.ID, domain.Patch{Name: &name, Config: &cfg}, editor)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != "Renamed" || string(got.Config) != `{"theme":"dark"}` {
		t.Errorf("updated = %+v", got)
	}
	if got.Slug != "a" {
		t.Errorf("slug changed to %q", got.Slug)
	}
	if got.UpdatedBy != "user-2" || got.CreatedBy != admin.ID {
		t.Errorf("provenance created_by=%q updated_by=%q", got.CreatedBy, got.UpdatedBy)
	}
	if !got.UpdatedAt.After(a.UpdatedAt) {
		t.Error("updated_at should advance")
	}
	if acts := rec.actions(); acts[len(acts)-1] != audit.ActionUpdate {
		t.Errorf("audit actions = %v", acts)
	}
}

func TestStore_Update_Errors(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	name := "x"
	if _, err := s.Update(ctx, "missing", domain.Patch{Name: &name}, admin); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}

	a, _ := s.Create(ctx, draft("a"), admin)
	if _, err := s.Update(ctx, a.ID, domain.Patch{}, admin); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty patch err = %v, want ErrValidation", err)
	}
	empty := ""
	if _, err := s.Update(ctx, a.ID, domain.Patch{Name: &empty}, admin); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("blank name err = %v, want ErrValidation", err)
	}

	b, _ := s.Create(ctx, draft("b"), admin)
	slug := "a"
	if _, err := s.Update(ctx, b.ID, domain.Patch{Slug: &slug}, admin); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("slug clash err = %v, want ErrConflict", err)
	}
}

func TestStore_Update_IsActiveGoesThroughActivation(t *testing.T) {
	s, rec, _ := newTestStore(t)
	ctx := context.Background()
	a, _ := s.Create(ctx, draft("a"), admin)
	b, _ := s.Create(ctx, draft("b"), admin)
	if _, err := s.Activate(ctx, a.ID, admin); err != nil {
		t.Fatal(err)
	}

	on := true
	got, err := s.Update(ctx, b.ID, domain.Patch{IsActive: &on}, admin)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.IsActive {
		t.Error("b should be active")
	}
	if n := countActive(t, s); n != 1 {
		t.Fatalf("active tenants = %d, want 1", n)
	}
	if acts := rec.actions(); acts[len(acts)-1] != audit.ActionActivate {
		t.Errorf("audit actions = %v, want trailing activate", acts)
	}

	off := false
	got, err = s.Update(ctx, b.ID, domain.Patch{IsActive: &off}, admin)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.IsActive || countActive(t, s) != 0 {
		t.Error("deactivating the only active tenant should leave none active")
	}
	if acts := rec.actions(); acts[len(acts)-1] != audit.ActionDeactivate {
		t.Errorf("audit actions = %v, want trailing deactivate", acts)
	}
}

// failingActivationRepo saves field updates but cannot change activation.
type failingActivationRepo struct {
	repository.Repository
}

func (failingActivationRepo) Activate(ctx context.Context, id, actorID string, at time.Time) (repository.Activation, error) {
	return repository.Activation{}, errors.New("connection reset")
}

func TestStore_Update_ActivationFailureReturnsSavedFields(t *testing.T) {
	rec := &recordingAudit{}
	repo := failingActivationRepo{Repository: repository.NewMemoryRepository()}
	s := New(repo, rec, nil)
	ctx := context.Background()
	a, err := s.Create(ctx, draft("a"), admin)
	if err != nil {
		t.Fatal(err)
	}

	name, on := "Renamed", true
	got, err := s.Update(ctx, a.ID, domain.Patch{Name: &name, IsActive: &on}, admin)
	if err == nil {
		t.Fatal("expected the activation error")
	}
	if got == nil || got.Name != "Renamed" || got.IsActive {
		t.Fatalf("returned record = %+v, want saved rename and still inactive", got)
	}
	stored, _ := s.GetByID(ctx, a.ID)
	if stored.Name != "Renamed" {
		t.Errorf("stored name = %q, want the saved rename", stored.Name)
	}
	if acts := rec.actions(); acts[len(acts)-1] != audit.ActionUpdate {
		t.Errorf("audit actions = %v, want trailing update", acts)
	}

	// nothing written: no record
	got, err = s.Update(ctx, a.ID, domain.Patch{IsActive: &on}, admin)
	if err == nil || got != nil {
		t.Errorf("Update = %+v, %v, want nil record and error", got, err)
	}
}

func TestStore_InvalidationFailureDoesNotFailMutation(t *testing.T) {
	rec := &recordingAudit{}
	inv := &countingInvalidator{err: errors.New("redis down")}
	s := New(repository.NewMemoryRepository(), rec, nil, WithInvalidator(inv))
	if _, err := s.Create(context.Background(), draft("a"), admin); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(rec.entries) != 1 {
		t.Errorf("audit entries = %d, want 1", len(rec.entries))
	}
}

func TestStore_NilAuditLogger(t *testing.T) {
	s := New(repository.NewMemoryRepository(), nil, nil)
	a, err := s.Create(context.Background(), draft("a"), admin)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Activate(context.Background(), a.ID, admin); err != nil {
		t.Fatal(err)
	}
}
