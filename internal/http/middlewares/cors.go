package middlewares

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const corsMaxAge = 10 * 60

// CORSMiddleware allows browser calls from the listed origins; "*" allows any
// origin. Bearer tokens travel in the Authorization header, so credentials
// (cookies) are never enabled. Preflights from other origins get 403.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAny := false
	allowed := make(map[string]struct{}, len(allowedOrigins))

	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			allowAny = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	permitted := func(origin string) bool {
		if allowAny {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}

	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		preflight := ctx.Request.Method == http.MethodOptions &&
			ctx.GetHeader("Access-Control-Request-Method") != ""

		if origin != "" {
			ctx.Header("Vary", "Origin")

			if permitted(origin) {
				ctx.Header("Access-Control-Allow-Origin", origin)
				ctx.Header("Access-Control-Expose-Headers", "ETag,Last-Modified,Retry-After,X-Request-Id")
			} else if preflight {
				abortWithError(ctx, http.StatusForbidden, "cors_origin_denied", "Origin not allowed")
				return
			}
		}

		if ctx.Request.Method == http.MethodOptions {
			if preflight {
				ctx.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
				ctx.Header("Access-Control-Allow-Headers", "Authorization,Content-Type,If-None-Match,X-Request-Id")
				ctx.Header("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			}
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		ctx.Next()
	}
}
