package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"
)

const policyQuery = "data.storefront.admin.allow"

// DefaultAdminPolicy grants every action to tenant_admin and read-only access to tenant_viewer.
const DefaultAdminPolicy = `package storefront.admin

default allow := false

read_actions := {"list", "get", "audit"}

allow if {
	"tenant_admin" in input.subject.roles
}

allow if {
	input.action in read_actions
	"tenant_viewer" in input.subject.roles
}
`

// OPAAuthorizer evaluates admin requests against a Rego policy compiled once at construction.
type OPAAuthorizer struct {
	query rego.PreparedEvalQuery
	log   *zap.Logger
}

// NewOPAAuthorizer compiles policy (DefaultAdminPolicy when empty).
func NewOPAAuthorizer(ctx context.Context, policy string, log *zap.Logger) (*OPAAuthorizer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if policy == "" {
		policy = DefaultAdminPolicy
	}
	q, err := rego.New(
		rego.Query(policyQuery),
		rego.Module("admin.rego", policy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile admin policy: %w", err)
	}
	return &OPAAuthorizer{query: q, log: log}, nil
}

// NewOPAAuthorizerFromFile compiles the Rego policy at path, or the default policy when path is empty.
func NewOPAAuthorizerFromFile(ctx context.Context, path string, log *zap.Logger) (*OPAAuthorizer, error) {
	if path == "" {
		return NewOPAAuthorizer(ctx, "", log)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read admin policy: %w", err)
	}
	return NewOPAAuthorizer(ctx, string(raw), log)
}

// Authorize evaluates req. A policy that yields no boolean result denies.
func (a *OPAAuthorizer) Authorize(ctx context.Context, req Request) (bool, error) {
	input := map[string]any{
		"subject": map[string]any{
			"id":    req.Subject.ID,
			"email": req.Subject.Email,
			"roles": stringsToAny(req.Subject.Roles),
		},
		"action":    req.Action,
		"tenant_id": req.TenantID,
	}
	rs, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval admin policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		a.log.Warn("policy: admin policy produced no result", zap.String("action", req.Action))
		return false, nil
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("admin policy returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return allowed, nil
}

// HealthCheck evaluates a fixed request to prove the compiled policy still runs.
func (a *OPAAuthorizer) HealthCheck(ctx context.Context) error {
	_, err := a.Authorize(ctx, Request{Action: ActionList})
	return err
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
