package middlewares

import (
	"net/http"

	"github.com/geocoder89/pricetracker/internal/auth"
	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// One body for every 401 so callers cannot tell a missing token from a bad
// or expired one.
func abortUnauthorized(c *gin.Context) {
	abortWithError(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
}

func abortForbidden(c *gin.Context, message string) {
	abortWithError(c, http.StatusForbidden, "forbidden", message)
}

func (m *AuthMiddleware) RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)

		if !ok {
			abortUnauthorized(c)
			return
		}
		if !p.HasRole(required) {
			abortForbidden(c, string(required)+" role required")
			return
		}
		c.Next()
	}
}

// RequireSelf lets the request through only when the principal's id equals
// the :param path value.
func (m *AuthMiddleware) RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)

		if !ok {
			abortUnauthorized(c)
			return
		}
		if !auth.IsSelf(p, c.Param(param)) {
			abortForbidden(c, "You may only access your own account")
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)

		if !ok {
			abortUnauthorized(c)
			return
		}
		if !auth.IsSelfOrAdmin(p, c.Param(param)) {
			abortForbidden(c, "You may only access your own account")
			return
		}
		c.Next()
	}
}
