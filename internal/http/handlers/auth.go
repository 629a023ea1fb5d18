package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/geocoder89/pricetracker/internal/service"
	"github.com/gin-gonic/gin"
)

type Authenticator interface {
	Register(ctx context.Context, req user.RegisterRequest) (user.User, error)
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
}

type LoginRecorder interface {
	RecordLogin(result string)
}

type AuthHandler struct {
	auth    Authenticator
	metrics LoginRecorder
}

func NewAuthHandler(auth Authenticator, metrics LoginRecorder) *AuthHandler {
	return &AuthHandler{auth: auth, metrics: metrics}
}

// requestContext bounds a handler's downstream calls while keeping the
// request's trace and cancellation.
func requestContext(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	u, err := h.auth.Register(cctx, req)
	if err != nil {
		respondServiceError(ctx, err, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// bcrypt plus one lookup
	cctx, cancel := requestContext(ctx, 3*time.Second)
	defer cancel()

	res, err := h.auth.Login(cctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.record("invalid_credentials")
		} else {
			h.record("error")
		}
		respondServiceError(ctx, err, "Could not log in")
		return
	}

	h.record("success")
	ctx.JSON(http.StatusOK, res)
}

func (h *AuthHandler) record(result string) {
	if h.metrics != nil {
		h.metrics.RecordLogin(result)
	}
}
