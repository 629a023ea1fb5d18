package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/pricetracker/internal/auth"
	"github.com/geocoder89/pricetracker/internal/domain/preferences"
	"github.com/gin-gonic/gin"
)

type PreferencesManager interface {
	Get(ctx context.Context, actor *auth.Principal, userID string) (preferences.Preferences, error)
	Update(ctx context.Context, actor *auth.Principal, userID string, req preferences.UpdateRequest) (preferences.Preferences, error)
}

type PreferencesHandler struct {
	prefs PreferencesManager
}

func NewPreferencesHandler(prefs PreferencesManager) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs}
}

func (h *PreferencesHandler) GetPreferences(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	p, err := h.prefs.Get(cctx, actor(ctx), ctx.Param("id"))
	if err != nil {
		respondServiceError(ctx, err, "Could not load preferences")
		return
	}

	respondPreferences(ctx, http.StatusOK, p)
}

func (h *PreferencesHandler) UpdatePreferences(ctx *gin.Context) {
	var req preferences.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	p, err := h.prefs.Update(cctx, actor(ctx), ctx.Param("id"), req)
	if err != nil {
		respondServiceError(ctx, err, "Could not update preferences")
		return
	}

	if etag, err := preferencesETag(p); err == nil {
		ctx.Header("ETag", etag)
	}

	ctx.JSON(http.StatusOK, p)
}
