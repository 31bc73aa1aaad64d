package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOPAAuthorizer_DefaultPolicy(t *testing.T) {
	ctx := context.Background()
	a, err := NewOPAAuthorizer(ctx, "", nil)
	if err != nil {
		t.Fatalf("NewOPAAuthorizer: %v", err)
	}
	if err := a.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	admin := Subject{ID: "u1", Roles: []string{"tenant_admin"}}
	viewer := Subject{ID: "u2", Roles: []string{"tenant_viewer"}}
	nobody := Subject{ID: "u3"}

	testCases := []struct {
		name    string
		subject Subject
		action  string
		want    bool
	}{
		{"admin activates", admin, ActionActivate, true},
		{"admin creates", admin, ActionCreate, true},
		{"viewer lists", viewer, ActionList, true},
		{"viewer reads audit", viewer, ActionAudit, true},
		{"viewer cannot activate", viewer, ActionActivate, false},
		{"viewer cannot update", viewer, ActionUpdate, false},
		{"no roles lists", nobody, ActionList, false},
		{"no roles creates", nobody, ActionCreate, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := a.Authorize(ctx, Request{Subject: tc.subject, Action: tc.action})
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if got != tc.want {
				t.Errorf("Authorize = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOPAAuthorizer_CustomPolicyFile(t *testing.T) {
	policy := `package storefront.admin

default allow := false

allow if {
	input.subject.email == "ops@example.com"
	input.action == "activate"
}
`
	path := filepath.Join(t.TempDir(), "admin.rego")
	if err := os.WriteFile(path, []byte(policy), 0o600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	a, err := NewOPAAuthorizerFromFile(ctx, path, nil)
	if err != nil {
		t.Fatalf("NewOPAAuthorizerFromFile: %v", err)
	}
	ok, err := a.Authorize(ctx, Request{Subject: Subject{ID: "u", Email: "ops@example.com"}, Action: ActionActivate})
	if err != nil || !ok {
		t.Errorf("ops activate = %v, %v; want true", ok, err)
	}
	ok, err = a.Authorize(ctx, Request{Subject: Subject{ID: "u", Roles: []string{"tenant_admin"}}, Action: ActionActivate})
	if err != nil || ok {
		t.Errorf("custom policy ignores roles; got %v, %v", ok, err)
	}
}

func TestOPAAuthorizer_InvalidPolicy(t *testing.T) {
	ctx := context.Background()
	if _, err := NewOPAAuthorizer(ctx, "package storefront.admin\n\nallow if {", nil); err == nil {
		t.Error("syntax error should fail compilation")
	}
	if _, err := NewOPAAuthorizerFromFile(ctx, filepath.Join(t.TempDir(), "missing.rego"), nil); err == nil {
		t.Error("missing policy file should fail")
	}
}

func TestOPAAuthorizer_UndefinedAllowDenies(t *testing.T) {
	// No default: allow is undefined for non-matching input.
	policy := "package storefront.admin\n\nallow if {\n\tinput.action == \"list\"\n}\n"
	a, err := NewOPAAuthorizer(context.Background(), policy, nil)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := a.Authorize(context.Background(), Request{Action: ActionCreate})
	if err != nil || ok {
		t.Errorf("undefined allow = %v, %v; want false, nil", ok, err)
	}
}
