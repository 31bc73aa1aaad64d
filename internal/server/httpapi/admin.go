package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	auditdomain "storefront/backend/internal/audit/domain"
	auditrepo "storefront/backend/internal/audit/repository"
	"storefront/backend/internal/logger"
	"storefront/backend/internal/server/response"
	"storefront/backend/internal/tenant/domain"
	"storefront/backend/internal/tenant/store"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// TenantStore is the administrative tenant surface used by AdminHandler.
type TenantStore interface {
	List(ctx context.Context) ([]*domain.Tenant, error)
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	Create(ctx context.Context, draft domain.Draft, actor store.Actor) (*domain.Tenant, error)
	Update(ctx context.Context, id string, patch domain.Patch, actor store.Actor) (*domain.Tenant, error)
	Activate(ctx context.Context, id string, actor store.Actor) (bool, error)
	Deactivate(ctx context.Context, id string, actor store.Actor) (bool, error)
}

// AdminHandler serves /api/v1/admin/tenants. Authentication and the policy decision happen in
// middleware before any handler runs.
type AdminHandler struct {
	store TenantStore
	audit auditrepo.Repository
	log   *zap.Logger
}

// NewAdminHandler returns an AdminHandler. auditRepo may be nil; the audit route then reports 503.
func NewAdminHandler(s TenantStore, auditRepo auditrepo.Repository, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{store: s, audit: auditRepo, log: log}
}

// List handles GET /api/v1/admin/tenants
func (h *AdminHandler) List(c *gin.Context) {
	tenants, err := h.store.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if tenants == nil {
		tenants = []*domain.Tenant{}
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"tenants": tenants}))
}

// Create handles POST /api/v1/admin/tenants
func (h *AdminHandler) Create(c *gin.Context) {
	var draft domain.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	t, err := h.store.Create(c.Request.Context(), draft, actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(gin.H{"tenant": t}))
}

// Get handles GET /api/v1/admin/tenants/:id
func (h *AdminHandler) Get(c *gin.Context) {
	id := c.Param("id")
	t, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if t == nil {
		h.fail(c, &domain.NotFoundError{ID: id})
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"tenant": t}))
}

// Update handles PATCH /api/v1/admin/tenants/:id
func (h *AdminHandler) Update(c *gin.Context) {
	var patch domain.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	t, err := h.store.Update(c.Request.Context(), c.Param("id"), patch, actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"tenant": t}))
}

// Activate handles POST /api/v1/admin/tenants/:id/activate
func (h *AdminHandler) Activate(c *gin.Context) {
	h.toggle(c, h.store.Activate)
}

// Deactivate handles POST /api/v1/admin/tenants/:id/deactivate
func (h *AdminHandler) Deactivate(c *gin.Context) {
	h.toggle(c, h.store.Deactivate)
}

func (h *AdminHandler) toggle(c *gin.Context, op func(context.Context, string, store.Actor) (bool, error)) {
	ctx := c.Request.Context()
	id := c.Param("id")
	ok, err := op(ctx, id, actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	t, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"success": ok, "tenant": t}))
}

// AuditLog handles GET /api/v1/admin/tenants/:id/audit?limit=&offset=
func (h *AdminHandler) AuditLog(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusServiceUnavailable, response.Error(response.ErrCodeServiceUnavailable, "Audit log is not available"))
		return
	}
	limit, offset, ok := pagination(c)
	if !ok {
		c.JSON(http.StatusBadRequest, response.BadRequest("limit and offset must be non-negative integers"))
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	t, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	if t == nil {
		h.fail(c, &domain.NotFoundError{ID: id})
		return
	}
	entries, err := h.audit.ListByTenant(ctx, id, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []*auditdomain.AuditLog{}
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"entries": entries, "limit": limit, "offset": offset}))
}

func (h *AdminHandler) fail(c *gin.Context, err error) {
	status, body := response.FromError(err, logger.WithContext(c.Request.Context(), h.log))
	c.JSON(status, body)
}

func pagination(c *gin.Context) (limit, offset int32, ok bool) {
	limit, offset = defaultAuditLimit, 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		if n > 0 {
			limit = int32(n)
		}
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = int32(n)
	}
	return limit, offset, true
}
