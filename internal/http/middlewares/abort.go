package middlewares

import (
	"github.com/gin-gonic/gin"
)

// RequestIDFrom returns the id RequestID stored, or the inbound header when
// that middleware did not run.
func RequestIDFrom(c *gin.Context) string {
	if v, ok := c.Get(CtxRequestID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}

	return c.GetHeader("X-Request-Id")
}

// abortWithError writes the same {"error": {...}} envelope the handlers use.
func abortWithError(c *gin.Context, status int, code, message string) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if id := RequestIDFrom(c); id != "" {
		body["requestId"] = id
	}

	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
