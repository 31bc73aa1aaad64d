package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/backend/internal/credentials"
	"storefront/backend/internal/server/response"
	"storefront/backend/internal/tenant/resolver"
)

// StorefrontTenant is the presentation payload for the resolved tenant. Config and asset URLs
// pass through unopened.
type StorefrontTenant struct {
	ID        string            `json:"id"`
	Slug      string            `json:"slug"`
	Name      string            `json:"name"`
	Domain    string            `json:"domain,omitempty"`
	Config    json.RawMessage   `json:"config"`
	AssetURLs map[string]string `json:"asset_urls,omitempty"`
}

type storefrontResponse struct {
	Tenant *StorefrontTenant `json:"tenant"`
	Match  resolver.Match    `json:"match"`
}

type credentialsResponse struct {
	credentials.Diagnostic
	TenantSlug string         `json:"tenant_slug,omitempty"`
	Match      resolver.Match `json:"match"`
}

// StorefrontHandler serves the tenant-scoped public endpoints. It reads what TenantContext stored.
type StorefrontHandler struct{}

// Tenant handles GET /api/v1/storefront/tenant. No tenant yields {"tenant": null}; the caller
// applies its own default display configuration.
func (StorefrontHandler) Tenant(c *gin.Context) {
	res, ok := ResolutionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, response.Error(response.ErrCodeInternalError, "Tenant context missing"))
		return
	}
	out := storefrontResponse{Match: res.Match}
	if t := res.Tenant; t != nil {
		out.Tenant = &StorefrontTenant{
			ID:        t.ID,
			Slug:      t.Slug,
			Name:      t.Name,
			Domain:    t.Domain,
			Config:    t.Config,
			AssetURLs: t.AssetURLs,
		}
	}
	c.JSON(http.StatusOK, response.Success(out))
}

// Credentials handles GET /api/v1/diagnostics/credentials. The key is redacted; fallback routing
// is reported so operators can spot a missing dedicated project.
func (StorefrontHandler) Credentials(c *gin.Context) {
	creds, ok := CredentialsFrom(c)
	res, _ := ResolutionFrom(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, response.Error(response.ErrCodeInternalError, "Tenant context missing"))
		return
	}
	out := credentialsResponse{Diagnostic: creds.Diagnostic(), Match: res.Match}
	if res.Tenant != nil {
		out.TenantSlug = res.Tenant.Slug
	}
	c.JSON(http.StatusOK, response.Success(out))
}
