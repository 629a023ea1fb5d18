package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/geocoder89/pricetracker/internal/http/middlewares"
	"github.com/geocoder89/pricetracker/internal/service"
	"github.com/geocoder89/pricetracker/internal/utils"
	"github.com/geocoder89/pricetracker/internal/validation"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: middlewares.RequestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondUnAuthorized(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusUnauthorized, code, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusForbidden, "forbidden", message, nil)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "not_found", message, nil)
}

func RespondConflict(ctx *gin.Context, code, message string) {
	RespondError(ctx, http.StatusConflict, code, message, nil)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// respondServiceError maps service and domain errors onto the error
// envelope. fallback is the message used for unexpected failures.
func respondServiceError(ctx *gin.Context, err error, fallback string) {
	var fieldErrs validation.Errors

	switch {
	case errors.As(err, &fieldErrs):
		RespondBadRequest(ctx, "Invalid request body", gin.H{"fields": fieldErrs})
	case errors.Is(err, utils.ErrInvalidCursor):
		RespondBadRequest(ctx, "Invalid cursor", nil)
	case errors.Is(err, service.ErrUnauthenticated):
		RespondUnAuthorized(ctx, "unauthorized", "Authentication required")
	case errors.Is(err, service.ErrInvalidCredentials):
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
	case errors.Is(err, service.ErrForbidden):
		RespondForbidden(ctx, "You are not allowed to access this resource")
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "User not found")
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email is already in use.")
	case errors.Is(err, user.ErrUsernameTaken):
		RespondConflict(ctx, "username_taken", "Username is already in use.")
	default:
		RespondInternal(ctx, fallback)
	}
}
