// Package service holds the business rules that sit between the HTTP
// handlers and the repositories. Every call that acts on behalf of a user
// receives the acting principal explicitly.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/pricetracker/internal/domain/preferences"
	"github.com/geocoder89/pricetracker/internal/domain/user"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and
	// deactivated accounts alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByExternalID(ctx context.Context, externalID string) (user.User, error)
	UpdateProfile(ctx context.Context, externalID, email, username string) (user.User, error)
	UpdatePassword(ctx context.Context, externalID, passwordHash string) error
	SetStatus(ctx context.Context, externalID string, status user.Status) (user.User, error)
	List(ctx context.Context, filter user.ListFilter) ([]user.User, error)
}

type PreferencesStore interface {
	Get(ctx context.Context, userID string) (preferences.Preferences, error)
	Upsert(ctx context.Context, p preferences.Preferences) (preferences.Preferences, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

type TokenIssuer interface {
	Issue(u user.User) (string, time.Duration, error)
}
