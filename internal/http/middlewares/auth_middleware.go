package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/geocoder89/pricetracker/internal/auth"
	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/geocoder89/pricetracker/internal/observability"
	"github.com/gin-gonic/gin"
)

// Keep these small interfaces so tests can fake them easily.
type TokenVerifier interface {
	ExtractSubject(token string) (string, error)
	Verify(token string) (*auth.Claims, error)
	IsExpired(token string) bool
}

type PrincipalLoader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

// OutcomeRecorder receives one label per request describing what the
// authentication filter decided.
type OutcomeRecorder interface {
	RecordAuthOutcome(outcome string)
}

const (
	OutcomeAnonymous     = "anonymous"
	OutcomeInvalidToken  = "invalid_token"
	OutcomeUnknownUser   = "unknown_user"
	OutcomeLookupFailed  = "lookup_failed"
	OutcomeExpired       = "expired"
	OutcomeInactive      = "inactive"
	OutcomeClaimMismatch = "claim_mismatch"
	OutcomeAuthenticated = "authenticated"
)

type AuthMiddleware struct {
	jwt     TokenVerifier
	users   PrincipalLoader
	log     *slog.Logger
	metrics OutcomeRecorder
}

func NewAuthMiddleware(jwt TokenVerifier, users PrincipalLoader, log *slog.Logger, metrics OutcomeRecorder) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users, log: log, metrics: metrics}
}

func (m *AuthMiddleware) record(outcome string) {
	if m.metrics != nil {
		m.metrics.RecordAuthOutcome(outcome)
	}
}

// Authenticate attaches a Principal when the request carries a valid bearer
// token for an active user. It never rejects: token problems leave the
// request anonymous and route guards decide what that means.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.authenticate(c)
		c.Next()
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) {
	raw, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		m.record(OutcomeAnonymous)
		return
	}

	ctx := c.Request.Context()

	email, err := m.jwt.ExtractSubject(raw)
	if err != nil {
		m.log.WarnContext(ctx, "auth_token_rejected", "reason", "invalid", "err", err)
		m.record(OutcomeInvalidToken)
		return
	}

	if _, already := PrincipalFromContext(c); already {
		return
	}

	u, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			m.log.WarnContext(ctx, "auth_token_rejected", "reason", "unknown_user")
			m.record(OutcomeUnknownUser)
			return
		}
		m.log.ErrorContext(ctx, "auth_principal_lookup_failed", "err", err)
		m.record(OutcomeLookupFailed)
		return
	}

	claims, err := m.jwt.Verify(raw)

	switch {
	case err != nil:
		m.record(OutcomeInvalidToken)
	case m.jwt.IsExpired(raw):
		m.log.DebugContext(ctx, "auth_token_rejected", "reason", "expired", "user_id", u.ExternalID)
		m.record(OutcomeExpired)
	case !u.IsActive():
		m.log.InfoContext(ctx, "auth_token_rejected", "reason", "inactive", "user_id", u.ExternalID)
		m.record(OutcomeInactive)
	case claims.UserID != u.ExternalID:
		m.log.WarnContext(ctx, "auth_token_rejected", "reason", "claim_mismatch", "user_id", u.ExternalID)
		m.record(OutcomeClaimMismatch)
	default:
		c.Set(ctxPrincipal, auth.NewPrincipal(u, c.ClientIP()))
		c.Request = c.Request.WithContext(observability.WithUserID(ctx, u.ExternalID))
		m.record(OutcomeAuthenticated)
	}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}

	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	return raw, raw != ""
}

// RequireAuth rejects anonymous requests with 401.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFromContext(c); !ok {
			abortUnauthorized(c)
			return
		}
		c.Next()
	}
}

func PrincipalFromContext(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return nil, false
	}

	p, ok := v.(*auth.Principal)

	return p, ok && p.IsAuthenticated()
}
