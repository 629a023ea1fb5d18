package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/geocoder89/pricetracker/internal/security"
	"github.com/geocoder89/pricetracker/internal/validation"
	"github.com/google/uuid"
)

type LoginResult struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      user.Role `json:"role"`
	ExpiresIn int64     `json:"expiresIn"`
}

type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	log    *slog.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, req user.RegisterRequest) (user.User, error) {
	req.Email = user.NormalizeEmail(req.Email)

	if err := validation.Struct(req); err != nil {
		return user.User{}, err
	}

	return s.create(ctx, req.Email, req.Username, req.Password, user.RoleUser)
}

// EnsureAdmin creates an ACTIVE admin with the given credentials unless the
// email is already registered. It reports whether a user was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, username, password string) (bool, error) {
	email = user.NormalizeEmail(email)

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	if err := validation.Struct(user.RegisterRequest{Email: email, Username: username, Password: password}); err != nil {
		return false, err
	}

	if _, err := s.create(ctx, email, username, password, user.RoleAdmin); err != nil {
		return false, err
	}

	return true, nil
}

func (s *AuthService) create(ctx context.Context, email, username, password string, role user.Role) (user.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()

	u, err := s.users.Create(ctx, user.User{
		ExternalID:   uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Status:       user.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.InfoContext(ctx, "user_registered", "user_id", u.ExternalID, "role", u.Role)

	return u, nil
}

// Login never says which check failed: every credential problem is
// ErrInvalidCredentials. Storage failures are returned wrapped.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = user.NormalizeEmail(email)

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.compareDummy(password)
			s.log.InfoContext(ctx, "login_failed", "reason", "unknown_email")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			s.log.InfoContext(ctx, "login_failed", "reason", "bad_password", "user_id", u.ExternalID)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("compare password: %w", err)
	}

	if !u.IsActive() {
		s.log.InfoContext(ctx, "login_failed", "reason", "inactive", "user_id", u.ExternalID)
		return LoginResult{}, ErrInvalidCredentials
	}

	token, ttl, err := s.tokens.Issue(u)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.log.InfoContext(ctx, "login_succeeded", "user_id", u.ExternalID)

	return LoginResult{
		Token:     token,
		TokenType: "Bearer",
		UserID:    u.ExternalID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		ExpiresIn: int64(ttl / time.Second),
	}, nil
}

// compareDummy spends the same bcrypt work as a real password check so an
// unknown email costs as much as a wrong password.
func (s *AuthService) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("unknown-account-placeholder")
		if err != nil {
			s.log.Error("dummy_hash_failed", "err", err)
			return
		}
		s.dummyHash = hash
	})

	if s.dummyHash != "" {
		_ = s.hasher.Compare(s.dummyHash, password)
	}
}
