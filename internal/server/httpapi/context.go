package httpapi

import (
	"github.com/gin-gonic/gin"

	"storefront/backend/internal/credentials"
	"storefront/backend/internal/security"
	"storefront/backend/internal/tenant/resolver"
	"storefront/backend/internal/tenant/store"
)

const (
	ctxKeyResolution  = "tenant.resolution"
	ctxKeyCredentials = "tenant.credentials"
	ctxKeyAdmin       = "admin.claims"
)

// ResolutionFrom returns the tenant resolution stored by TenantContext.
func ResolutionFrom(c *gin.Context) (resolver.Resolution, bool) {
	v, ok := c.Get(ctxKeyResolution)
	if !ok {
		return resolver.Resolution{}, false
	}
	res, ok := v.(resolver.Resolution)
	return res, ok
}

// CredentialsFrom returns the backend credentials routed by TenantContext.
func CredentialsFrom(c *gin.Context) (credentials.Credentials, bool) {
	v, ok := c.Get(ctxKeyCredentials)
	if !ok {
		return credentials.Credentials{}, false
	}
	creds, ok := v.(credentials.Credentials)
	return creds, ok
}

// AdminFrom returns the verified admin claims stored by AdminAuth.
func AdminFrom(c *gin.Context) (*security.AdminClaims, bool) {
	v, ok := c.Get(ctxKeyAdmin)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*security.AdminClaims)
	return claims, ok && claims != nil
}

// actorFrom builds the audit actor for the authenticated admin.
func actorFrom(c *gin.Context) store.Actor {
	claims, ok := AdminFrom(c)
	if !ok {
		return store.Actor{}
	}
	return store.Actor{ID: claims.ActorID(), Label: claims.ActorLabel()}
}
