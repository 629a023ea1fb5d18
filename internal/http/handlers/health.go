package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]PingFunc
}

// create a new instance of the health handler
func NewHealthHandler(checks map[string]PingFunc) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz pings every registered dependency; any failure is a 503.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	status := http.StatusOK
	results := make(map[string]string, len(h.checks))

	for name, ping := range h.checks {
		if ping == nil {
			continue
		}

		cctx, cancel := requestContext(ctx, time.Second)
		err := ping(cctx)
		cancel()

		if err != nil {
			status = http.StatusServiceUnavailable
			results[name] = "down"
			continue
		}
		results[name] = "up"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}

	ctx.JSON(status, gin.H{"status": state, "checks": results})
}
