package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/farellandr/lanzalife/internal/auth"
	"github.com/farellandr/lanzalife/internal/helpers"
)

const (
	userIDKey = "user_id"
	roleKey   = "role"
)

// JWTAuthMiddleware requires a bearer token. A missing token is a 401; a
// token that does not verify is a 403.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, raw, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Missing bearer token.")
			return
		}

		identity, err := auth.ParseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			helpers.RespondWithError(c, http.StatusForbidden, "Invalid or expired token.")
			return
		}

		c.Set(userIDKey, identity.UserID)
		c.Set(roleKey, identity.Role)
		c.Next()
	}
}

// RequireRoles lets the request through only when the authenticated role is
// one of roles. It must run after JWTAuthMiddleware.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[c.GetString(roleKey)] {
			helpers.RespondWithError(c, http.StatusForbidden, "You do not have the necessary permissions.")
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity set by JWTAuthMiddleware.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	userID, ok := c.Get(userIDKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := userID.(uint)
	if !ok {
		return auth.Identity{}, false
	}
	return auth.Identity{UserID: id, Role: c.GetString(roleKey)}, true
}
