package middlewares_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/pricetracker/internal/auth"
	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/geocoder89/pricetracker/internal/http/middlewares"
	"github.com/geocoder89/pricetracker/internal/observability"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type fakeLoader struct {
	users map[string]user.User
	err   error
}

func (f *fakeLoader) GetByEmail(_ context.Context, email string) (user.User, error) {
	if f.err != nil {
		return user.User{}, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

type outcomes []string

func (o *outcomes) RecordAuthOutcome(outcome string) { *o = append(*o, outcome) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	u1 = user.User{ExternalID: "U1", Email: "u1@example.com", Username: "one", Role: user.RoleUser, Status: user.StatusActive}
	u2 = user.User{ExternalID: "U2", Email: "u2@example.com", Username: "two", Role: user.RoleUser, Status: user.StatusActive}
)

// router exposes a single route that reports whether a principal was set.
func newRouter(m *middlewares.AuthMiddleware) *gin.Engine {
	r := gin.New()
	r.Use(m.Authenticate())
	r.GET("/whoami", func(c *gin.Context) {
		p, ok := middlewares.PrincipalFromContext(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, p.Identifier())
	})
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	clk := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	tokens := auth.NewManager("test-secret-key", time.Hour, auth.WithClock(clk.now))

	inactive := u2
	inactive.Status = user.StatusInactive

	u1Token, _, _ := tokens.Issue(u1)
	inactiveToken, _, _ := tokens.Issue(inactive)

	// token names U1's email but claims a different external id
	forged := u1
	forged.ExternalID = "U-other"
	mismatchToken, _, _ := tokens.Issue(forged)

	foreignToken, _, _ := auth.NewManager("other-secret", time.Hour).Issue(u1)

	tests := []struct {
		name        string
		header      string
		advance     time.Duration
		loaderErr   error
		wantBody    string
		wantOutcome string
	}{
		{name: "no_header", header: "", wantBody: "anonymous", wantOutcome: middlewares.OutcomeAnonymous},
		{name: "basic_scheme", header: "Basic abc", wantBody: "anonymous", wantOutcome: middlewares.OutcomeAnonymous},
		{name: "empty_bearer", header: "Bearer ", wantBody: "anonymous", wantOutcome: middlewares.OutcomeAnonymous},
		{name: "garbage_token", header: "Bearer not-a-token", wantBody: "anonymous", wantOutcome: middlewares.OutcomeInvalidToken},
		{name: "foreign_secret", header: "Bearer " + foreignToken, wantBody: "anonymous", wantOutcome: middlewares.OutcomeInvalidToken},
		{name: "valid", header: "Bearer " + u1Token, wantBody: "U1", wantOutcome: middlewares.OutcomeAuthenticated},
		{name: "expired", header: "Bearer " + u1Token, advance: time.Hour, wantBody: "anonymous", wantOutcome: middlewares.OutcomeExpired},
		{name: "inactive_user", header: "Bearer " + inactiveToken, wantBody: "anonymous", wantOutcome: middlewares.OutcomeInactive},
		{name: "claim_mismatch", header: "Bearer " + mismatchToken, wantBody: "anonymous", wantOutcome: middlewares.OutcomeClaimMismatch},
		{name: "lookup_failure", header: "Bearer " + u1Token, loaderErr: errors.New("db down"), wantBody: "anonymous", wantOutcome: middlewares.OutcomeLookupFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk.t = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Add(tt.advance)

			loader := &fakeLoader{
				users: map[string]user.User{u1.Email: u1, inactive.Email: inactive},
				err:   tt.loaderErr,
			}

			var got outcomes
			m := middlewares.NewAuthMiddleware(tokens, loader, discardLogger(), &got)

			w := do(newRouter(m), tt.header)

			if w.Code != http.StatusOK {
				t.Fatalf("filter must never abort, got status %d", w.Code)
			}
			if w.Body.String() != tt.wantBody {
				t.Fatalf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}

			if len(got) != 1 || got[0] != tt.wantOutcome {
				t.Fatalf("outcomes = %v, want [%s]", got, tt.wantOutcome)
			}
		})
	}
}

func TestAuthenticateKeepsExistingPrincipal(t *testing.T) {
	tokens := auth.NewManager("test-secret-key", time.Hour)
	u2Token, _, _ := tokens.Issue(u2)

	loader := &fakeLoader{users: map[string]user.User{u1.Email: u1, u2.Email: u2}}
	var got outcomes
	m := middlewares.NewAuthMiddleware(tokens, loader, discardLogger(), &got)

	// the second pass must not re-resolve an already authenticated request
	r := gin.New()
	r.Use(m.Authenticate(), m.Authenticate())
	r.GET("/whoami", func(c *gin.Context) {
		p, _ := middlewares.PrincipalFromContext(c)
		c.String(http.StatusOK, p.Identifier())
	})

	w := do(r, "Bearer "+u2Token)
	if w.Body.String() != "U2" {
		t.Fatalf("body = %q, want U2", w.Body.String())
	}
	if len(got) != 1 || got[0] != middlewares.OutcomeAuthenticated {
		t.Fatalf("outcomes = %v, want a single authenticated", got)
	}
}

func TestAuthenticateTagsRequestContext(t *testing.T) {
	tokens := auth.NewManager("test-secret-key", time.Hour)
	u1Token, _, _ := tokens.Issue(u1)

	m := middlewares.NewAuthMiddleware(tokens, &fakeLoader{users: map[string]user.User{u1.Email: u1}}, discardLogger(), nil)

	r := gin.New()
	r.Use(m.Authenticate())
	r.GET("/whoami", func(c *gin.Context) {
		id, _ := observability.UserIDFromContext(c.Request.Context())
		c.String(http.StatusOK, id)
	})

	if w := do(r, "Bearer "+u1Token); w.Body.String() != "U1" {
		t.Fatalf("context user = %q, want U1", w.Body.String())
	}
	if w := do(r, ""); w.Body.String() != "" {
		t.Fatalf("anonymous request carried user %q", w.Body.String())
	}
}

func TestRouteGuards(t *testing.T) {
	tokens := auth.NewManager("test-secret-key", time.Hour)

	admin := user.User{ExternalID: "A1", Email: "admin@example.com", Username: "admin", Role: user.RoleAdmin, Status: user.StatusActive}
	loader := &fakeLoader{users: map[string]user.User{u1.Email: u1, u2.Email: u2, admin.Email: admin}}
	m := middlewares.NewAuthMiddleware(tokens, loader, discardLogger(), nil)

	r := gin.New()
	r.Use(m.Authenticate())
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/me", m.RequireAuth(), ok)
	r.GET("/admin", m.RequireRole(user.RoleAdmin), ok)
	r.GET("/self/:id", m.RequireSelf("id"), ok)
	r.GET("/owned/:id", m.RequireSelfOrAdmin("id"), ok)

	u1Token, _, _ := tokens.Issue(u1)
	adminToken, _, _ := tokens.Issue(admin)

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"me_anonymous", "/me", "", http.StatusUnauthorized},
		{"me_user", "/me", u1Token, http.StatusNoContent},
		{"admin_anonymous", "/admin", "", http.StatusUnauthorized},
		{"admin_as_user", "/admin", u1Token, http.StatusForbidden},
		{"admin_as_admin", "/admin", adminToken, http.StatusNoContent},
		{"self_match", "/self/U1", u1Token, http.StatusNoContent},
		{"self_mismatch", "/self/U2", u1Token, http.StatusForbidden},
		{"self_admin_is_not_self", "/self/U1", adminToken, http.StatusForbidden},
		{"self_anonymous", "/self/U1", "", http.StatusUnauthorized},
		{"owned_admin", "/owned/U1", adminToken, http.StatusNoContent},
		{"owned_other_user", "/owned/U2", u1Token, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
