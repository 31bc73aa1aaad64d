package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/backend/internal/credentials"
	"storefront/backend/internal/hostname"
	"storefront/backend/internal/logger"
	"storefront/backend/internal/server/response"
	"storefront/backend/internal/tenant/domain"
	"storefront/backend/internal/tenant/resolver"
)

// TenantResolver resolves the tenant for a request host.
type TenantResolver interface {
	Resolve(ctx context.Context, host string) (resolver.Resolution, error)
}

// CredentialRouter picks backend credentials for a resolved tenant.
type CredentialRouter interface {
	Route(t *domain.Tenant) (credentials.Credentials, error)
}

// TenantContext resolves the request's tenant once and routes its backend credentials. Both are
// stored in the gin context for downstream handlers. A request without a usable host resolves
// without a domain hint. Missing credentials abort the request with a configuration error.
func TenantContext(res TenantResolver, creds CredentialRouter, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		host, _ := hostname.FromRequest(c.Request)

		resolution, err := res.Resolve(ctx, host)
		if err != nil {
			status, body := response.FromError(err, logger.WithContext(ctx, log))
			c.AbortWithStatusJSON(status, body)
			return
		}
		c.Set(ctxKeyResolution, resolution)

		routed, err := creds.Route(resolution.Tenant)
		if err != nil {
			status, body := response.FromError(err, logger.WithContext(ctx, log))
			c.AbortWithStatusJSON(status, body)
			return
		}
		c.Set(ctxKeyCredentials, routed)
		c.Next()
	}
}

// RequestLogger logs one line per request with trace correlation.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if res, ok := ResolutionFrom(c); ok && res.Tenant != nil {
			fields = append(fields, zap.String("tenant_slug", res.Tenant.Slug), zap.String("tenant_match", string(res.Match)))
		}
		l := logger.WithContext(c.Request.Context(), log)
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("http request", fields...)
		case status >= http.StatusBadRequest:
			l.Warn("http request", fields...)
		default:
			l.Info("http request", fields...)
		}
	}
}

// Recovery converts a handler panic into a 500 envelope.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithContext(c.Request.Context(), log).Error("http handler panic",
			zap.String("path", c.FullPath()), zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(response.ErrCodeInternalError, "An internal error occurred"))
	})
}
