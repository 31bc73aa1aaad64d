package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/backend/internal/logger"
	"storefront/backend/internal/policy/engine"
	"storefront/backend/internal/security"
	"storefront/backend/internal/server/response"
)

const bearerPrefix = "bearer "

// AdminAuth validates the admin bearer token and stores its claims for Authorize and handlers.
func AdminAuth(verifier *security.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Authorization header is required"))
			return
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized("Invalid access token"))
			return
		}
		c.Set(ctxKeyAdmin, claims)
		c.Next()
	}
}

// Authorize asks the policy engine whether the authenticated admin may perform action. The tenant
// id, when the route has one, is part of the decision input. An engine error denies.
func Authorize(authz engine.Authorizer, action string, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		claims, ok := AdminFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized(""))
			return
		}
		req := engine.Request{
			Subject:  engine.Subject{ID: claims.Subject, Email: claims.Email, Roles: claims.Roles},
			Action:   action,
			TenantID: c.Param("id"),
		}
		allowed, err := authz.Authorize(c.Request.Context(), req)
		if err != nil {
			logger.WithContext(c.Request.Context(), log).Error("admin authorization failed",
				zap.String("action", action), zap.String("actor_id", claims.Subject), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusForbidden, response.Forbidden(""))
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Forbidden(""))
			return
		}
		c.Next()
	}
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
