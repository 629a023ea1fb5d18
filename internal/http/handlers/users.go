package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/pricetracker/internal/auth"
	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/geocoder89/pricetracker/internal/http/middlewares"
	"github.com/geocoder89/pricetracker/internal/service"
	"github.com/gin-gonic/gin"
)

type UserManager interface {
	Get(ctx context.Context, actor *auth.Principal, externalID string) (user.User, error)
	List(ctx context.Context, actor *auth.Principal, cursor string, limit int) (service.UserPage, error)
	UpdateProfile(ctx context.Context, actor *auth.Principal, externalID string, req user.UpdateProfileRequest) (user.User, error)
	ChangePassword(ctx context.Context, actor *auth.Principal, externalID string, req user.ChangePasswordRequest) error
	Deactivate(ctx context.Context, actor *auth.Principal, externalID string) error
}

type UsersHandler struct {
	users UserManager
}

func NewUsersHandler(users UserManager) *UsersHandler {
	return &UsersHandler{users: users}
}

// actor returns the request principal, or nil for anonymous requests. The
// service layer turns nil into ErrUnauthenticated.
func actor(ctx *gin.Context) *auth.Principal {
	p, _ := middlewares.PrincipalFromContext(ctx)
	return p
}

func (h *UsersHandler) Me(ctx *gin.Context) {
	p := actor(ctx)
	if p == nil {
		RespondUnAuthorized(ctx, "unauthorized", "Authentication required")
		return
	}

	h.get(ctx, p, p.Identifier())
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	h.get(ctx, actor(ctx), ctx.Param("id"))
}

func (h *UsersHandler) get(ctx *gin.Context, p *auth.Principal, id string) {
	cctx, cancel := requestContext(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.Get(cctx, p, id)
	if err != nil {
		respondServiceError(ctx, err, "Could not load user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondBadRequest(ctx, "Invalid limit", gin.H{"limit": "must be a positive integer"})
			return
		}
		limit = n
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	page, err := h.users.List(cctx, actor(ctx), ctx.Query("cursor"), limit)
	if err != nil {
		respondServiceError(ctx, err, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, page)
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	var req user.UpdateProfileRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	u, err := h.users.UpdateProfile(cctx, actor(ctx), ctx.Param("id"), req)
	if err != nil {
		respondServiceError(ctx, err, "Could not update user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) ChangePassword(ctx *gin.Context) {
	var req user.ChangePasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	err := h.users.ChangePassword(cctx, actor(ctx), ctx.Param("id"), req)
	if err != nil {
		respondServiceError(ctx, err, "Could not change password")
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	err := h.users.Deactivate(cctx, actor(ctx), ctx.Param("id"))
	if err != nil {
		respondServiceError(ctx, err, "Could not deactivate user")
		return
	}

	ctx.Status(http.StatusNoContent)
}
