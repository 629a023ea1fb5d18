package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the wire shape of an access token. Subject carries the email.
type Claims struct {
	UserID   string    `json:"uid"`
	Username string    `json:"username"`
	Role     user.Role `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Manager)

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(secret string, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs an access token for u. It never touches storage.
func (m *Manager) Issue(u user.User) (string, time.Duration, error) {
	now := m.now().UTC()

	claims := Claims{
		UserID:   u.ExternalID,
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	raw, err := token.SignedString(m.secret)
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}

	return raw, m.ttl, nil
}

// Verify checks structure and signature only. Expiry is left to IsExpired so
// callers can tell a tampered token from a stale one.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &Claims{}

	token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// IsExpired never fails: anything that does not verify, or carries no exp,
// is reported as expired.
func (m *Manager) IsExpired(tokenStr string) bool {
	claims, err := m.Verify(tokenStr)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}

	return !m.now().Before(claims.ExpiresAt.Time)
}

func (m *Manager) ExtractSubject(tokenStr string) (string, error) {
	claims, err := m.Verify(tokenStr)
	if err != nil {
		return "", err
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims.Subject, nil
}
