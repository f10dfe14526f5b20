package middleware

import (
	"net/http"
	"strings"

	"pixelcanvas/internal/service"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWT and OptionalJWT.
const (
	CtxUID      = "uid"
	CtxIdentity = "identity"
)

// JWT requires a valid Bearer token and stores the caller identity in the context.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
			return
		}
		id, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(CtxUID, id.UID)
		c.Set(CtxIdentity, *id)
		c.Next()
	}
}

// OptionalJWT sets the identity when a valid token is present and ignores the request otherwise.
func OptionalJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if id, err := service.ParseJWT(token); err == nil {
				c.Set(CtxUID, id.UID)
				c.Set(CtxIdentity, *id)
			}
		}
		c.Next()
	}
}

// UID returns the authenticated uid, or "" for anonymous requests.
func UID(c *gin.Context) string {
	return c.GetString(CtxUID)
}

// CurrentIdentity returns the identity stored by JWT.
func CurrentIdentity(c *gin.Context) (service.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return service.Identity{}, false
	}
	id, ok := v.(service.Identity)
	return id, ok
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
