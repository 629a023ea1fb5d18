package middlewares

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// WindowStore counts hits per key inside a fixed window.
type WindowStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int, resetIn time.Duration, err error)
}

type RateLimiter struct {
	limit  int
	window time.Duration
	store  WindowStore
	log    *slog.Logger
}

func NewRateLimiter(limit int, window time.Duration, store WindowStore, log *slog.Logger) *RateLimiter {
	if store == nil {
		store = NewMemoryWindowStore()
	}

	return &RateLimiter{
		limit:  limit,
		window: window,
		store:  store,
		log:    log,
	}
}

// RateLimiterMiddleware enforces the limit for a derived key. Store errors
// let the request through.
func (rl *RateLimiter) RateLimiterMiddleware(scope string, keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		count, resetIn, err := rl.store.Hit(c.Request.Context(), "ratelimit:"+scope+":"+key, rl.window)
		if err != nil {
			rl.log.WarnContext(c.Request.Context(), "rate_limiter_store_error", "scope", scope, "err", err)
			c.Next()
			return
		}

		if count > rl.limit {
			retryAfter := int(resetIn.Seconds())

			if retryAfter < 0 {
				retryAfter = 0
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))

			abortWithError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again shortly.")

			return
		}

		c.Next()
	}
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// for authenticated endpoints: one budget per user wherever they connect
// from, falling back to IP for anonymous callers
func KeyByUserOrIP(c *gin.Context) string {
	p, ok := PrincipalFromContext(c)

	if ok {
		return "user:" + p.Identifier()
	}

	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}

// MemoryWindowStore keeps counters in process memory. Suitable for a single
// instance and for tests.
type MemoryWindowStore struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	now     func() time.Time
}

const sweepThreshold = 10000

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

func (s *MemoryWindowStore) Hit(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.clients) >= sweepThreshold {
		for k, stale := range s.clients {
			if now.After(stale.windowEnd) {
				delete(s.clients, k)
			}
		}
	}

	b, ok := s.clients[key]

	if !ok || now.After(b.windowEnd) {
		b = &clientBucket{windowEnd: now.Add(window)}
		s.clients[key] = b
	}

	b.count++

	return b.count, b.windowEnd.Sub(now), nil
}

type windowIncrementer interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisWindowStore shares counters across API instances.
type RedisWindowStore struct {
	client windowIncrementer
}

func NewRedisWindowStore(client windowIncrementer) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

func (s *RedisWindowStore) Hit(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	count, left, err := s.client.IncrWindow(ctx, key, window)
	if err != nil {
		return 0, 0, err
	}

	return int(count), left, nil
}
