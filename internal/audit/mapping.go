package audit

import (
	"strings"

	tenantdomain "storefront/backend/internal/tenant/domain"
)

// Action is the fixed vocabulary of audited tenant mutations.
type Action string

const (
	ActionCreate       Action = "create"
	ActionCreateFailed Action = "create_failed"
	ActionUpdate       Action = "update"
	ActionActivate     Action = "activate"
	ActionDeactivate   Action = "deactivate"
)

var actions = map[Action]struct{}{
	ActionCreate:       {},
	ActionCreateFailed: {},
	ActionUpdate:       {},
	ActionActivate:     {},
	ActionDeactivate:   {},
}

// ParseAction returns the Action for s (case-insensitive) and whether it is part of the vocabulary.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	_, ok := actions[a]
	return a, ok
}

// TenantSnapshot returns the metadata recorded alongside an entry: slug and name at the time
// of the action.
func TenantSnapshot(t *tenantdomain.Tenant) map[string]any {
	if t == nil {
		return nil
	}
	m := map[string]any{
		"slug": t.Slug,
		"name": t.Name,
	}
	if t.Domain != "" {
		m["domain"] = t.Domain
	}
	return m
}
