package middlewares

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/geocoder89/pricetracker/internal/auth"
	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("redis unavailable")
}

type fakeIncrementer struct {
	counts map[string]int64
	ttl    time.Duration
}

func (f *fakeIncrementer) IncrWindow(_ context.Context, key string, _ time.Duration) (int64, time.Duration, error) {
	f.counts[key]++
	return f.counts[key], f.ttl, nil
}

func limitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.POST("/auth/login", rl.RateLimiterMiddleware("auth", KeyByIP), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func hit(r http.Handler, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryWindowStore()
	store.now = func() time.Time { return now }

	r := limitedRouter(NewRateLimiter(2, time.Minute, store, quietLogger()))

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1:1234").Code)

	w := hit(r, "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limited")

	// other clients keep their own budget
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.2:1234").Code)

	now = now.Add(time.Minute + time.Second)
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1:1234").Code)
}

func TestRateLimiterFailsOpenOnStoreError(t *testing.T) {
	r := limitedRouter(NewRateLimiter(1, time.Minute, failingStore{}, quietLogger()))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1:1234").Code)
	}
}

func TestRedisWindowStore(t *testing.T) {
	inc := &fakeIncrementer{counts: map[string]int64{}, ttl: 30 * time.Second}
	r := limitedRouter(NewRateLimiter(1, time.Minute, NewRedisWindowStore(inc), quietLogger()))

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1:1234").Code)

	w := hit(r, "10.0.0.1:1234")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, int64(2), inc.counts["ratelimit:auth:10.0.0.1"])
}

func TestMemoryWindowStoreSweepsExpiredBuckets(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryWindowStore()
	store.now = func() time.Time { return now }

	for i := 0; i < sweepThreshold; i++ {
		_, _, err := store.Hit(context.Background(), "k"+strconv.Itoa(i), time.Second)
		require.NoError(t, err)
	}

	now = now.Add(2 * time.Second)
	_, _, err := store.Hit(context.Background(), "fresh", time.Second)
	require.NoError(t, err)

	assert.Len(t, store.clients, 1)
}

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPut, "/users/U1/password", nil)
	c.Request.RemoteAddr = "10.0.0.9:5555"

	assert.Equal(t, "10.0.0.9", KeyByUserOrIP(c))

	c.Set(ctxPrincipal, auth.NewPrincipal(user.User{ExternalID: "U1", Role: user.RoleUser, Status: user.StatusActive}, "10.0.0.9"))
	assert.Equal(t, "user:U1", KeyByUserOrIP(c))
}

func TestAbortWithErrorIncludesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestID())
	r.GET("/guarded", func(c *gin.Context) { abortUnauthorized(c) })
	r.GET("/bare", func(c *gin.Context) {
		c.Set(CtxRequestID, "")
		abortForbidden(c, "nope")
	})

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":{"code":"unauthorized","message":"Authentication required","requestId":"req-123"}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bare", nil))
	assert.JSONEq(t, `{"error":{"code":"forbidden","message":"nope"}}`, w.Body.String())
}
