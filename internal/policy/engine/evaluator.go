package engine

import "context"

// Admin actions checked by the Authorizer.
const (
	ActionList       = "list"
	ActionGet        = "get"
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionActivate   = "activate"
	ActionDeactivate = "deactivate"
	ActionAudit      = "audit"
)

// Subject is the authenticated admin making a request.
type Subject struct {
	ID    string   `json:"id"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
}

// Request is the input to an authorization decision.
type Request struct {
	Subject  Subject `json:"subject"`
	Action   string  `json:"action"`
	TenantID string  `json:"tenant_id,omitempty"`
}

// Authorizer decides whether an admin may perform an action on tenants.
type Authorizer interface {
	// Authorize returns true when allowed. An error means no decision could be made and the
	// caller must deny.
	Authorize(ctx context.Context, req Request) (bool, error)
}
