// Package httpapi is the storefront and admin HTTP surface: tenant context resolution for public
// routes, bearer-token and policy checks for admin routes, and health probes.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	auditrepo "storefront/backend/internal/audit/repository"
	healthhandler "storefront/backend/internal/health/handler"
	"storefront/backend/internal/policy/engine"
	"storefront/backend/internal/security"
	"storefront/backend/internal/server/response"
)

// Deps holds the collaborators behind the HTTP routes.
type Deps struct {
	Store       TenantStore
	Resolver    TenantResolver
	Credentials CredentialRouter
	// Verifier and Authorizer guard the admin routes. If either is nil the admin API answers 503.
	Verifier   *security.TokenVerifier
	Authorizer engine.Authorizer
	// AuditRepo backs the per-tenant audit listing. Optional.
	AuditRepo auditrepo.Repository
	// Health serves /healthz and /readyz. Optional.
	Health      *healthhandler.Server
	Log         *zap.Logger
	ServiceName string
}

// NewRouter builds the gin engine.
//
// Routes:
//   - GET   /healthz, /readyz
//   - GET   /api/v1/storefront/tenant
//   - GET   /api/v1/diagnostics/credentials
//   - GET   /api/v1/admin/tenants, POST /api/v1/admin/tenants
//   - GET   /api/v1/admin/tenants/:id, PATCH /api/v1/admin/tenants/:id
//   - POST  /api/v1/admin/tenants/:id/activate, /deactivate
//   - GET   /api/v1/admin/tenants/:id/audit
func NewRouter(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	service := d.ServiceName
	if service == "" {
		service = "storefront"
	}

	r := gin.New()
	r.Use(otelgin.Middleware(service), Recovery(log), RequestLogger(log))

	if d.Health != nil {
		r.GET("/healthz", d.Health.Live)
		r.GET("/readyz", d.Health.Readiness)
	}

	v1 := r.Group("/api/v1")

	var sf StorefrontHandler
	tenantScoped := v1.Group("", TenantContext(d.Resolver, d.Credentials, log))
	tenantScoped.GET("/storefront/tenant", sf.Tenant)
	tenantScoped.GET("/diagnostics/credentials", sf.Credentials)

	admin := v1.Group("/admin/tenants")
	enabled := d.Verifier != nil && d.Authorizer != nil && d.Store != nil
	if enabled {
		admin.Use(AdminAuth(d.Verifier))
	} else {
		log.Warn("admin API disabled: token verifier, authorizer or store not configured")
	}
	h := NewAdminHandler(d.Store, d.AuditRepo, log)
	route := func(action string, handler gin.HandlerFunc) []gin.HandlerFunc {
		if !enabled {
			return []gin.HandlerFunc{adminDisabled}
		}
		return []gin.HandlerFunc{Authorize(d.Authorizer, action, log), handler}
	}
	admin.GET("", route(engine.ActionList, h.List)...)
	admin.POST("", route(engine.ActionCreate, h.Create)...)
	admin.GET("/:id", route(engine.ActionGet, h.Get)...)
	admin.PATCH("/:id", route(engine.ActionUpdate, h.Update)...)
	admin.POST("/:id/activate", route(engine.ActionActivate, h.Activate)...)
	admin.POST("/:id/deactivate", route(engine.ActionDeactivate, h.Deactivate)...)
	admin.GET("/:id/audit", route(engine.ActionAudit, h.AuditLog)...)
	return r
}

func adminDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, response.Error(response.ErrCodeServiceUnavailable, "Admin API is not configured"))
}
