package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/pricetracker/internal/auth"
	"github.com/geocoder89/pricetracker/internal/domain/user"
	"github.com/geocoder89/pricetracker/internal/security"
	"github.com/geocoder89/pricetracker/internal/utils"
	"github.com/geocoder89/pricetracker/internal/validation"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type UserPage struct {
	Items      []user.User `json:"items"`
	Count      int         `json:"count"`
	NextCursor *string     `json:"nextCursor"`
}

type UserService struct {
	users  UserStore
	hasher PasswordHasher
	log    *slog.Logger
}

func NewUserService(users UserStore, hasher PasswordHasher, log *slog.Logger) *UserService {
	return &UserService{users: users, hasher: hasher, log: log}
}

func authorizeSelfOrAdmin(actor *auth.Principal, externalID string) error {
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if !auth.IsSelfOrAdmin(actor, externalID) {
		return ErrForbidden
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, actor *auth.Principal, externalID string) (user.User, error) {
	if err := authorizeSelfOrAdmin(actor, externalID); err != nil {
		return user.User{}, err
	}

	return s.users.GetByExternalID(ctx, externalID)
}

// List is admin only. An empty cursor starts from the beginning.
func (s *UserService) List(ctx context.Context, actor *auth.Principal, cursor string, limit int) (UserPage, error) {
	if !actor.IsAuthenticated() {
		return UserPage{}, ErrUnauthenticated
	}
	if !actor.HasRole(user.RoleAdmin) {
		return UserPage{}, ErrForbidden
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	filter := user.ListFilter{
		AfterCreatedAt: time.Unix(0, 0).UTC(),
		AfterID:        utils.ZeroUUID,
		Limit:          limit + 1,
	}

	if cursor != "" {
		c, err := utils.DecodeUserCursor(cursor)
		if err != nil {
			return UserPage{}, err
		}
		filter.AfterCreatedAt = c.CreatedAt
		filter.AfterID = c.ID
	}

	items, err := s.users.List(ctx, filter)
	if err != nil {
		return UserPage{}, fmt.Errorf("list users: %w", err)
	}

	page := UserPage{}

	if len(items) > limit {
		items = items[:limit]
		last := items[len(items)-1]

		next, err := utils.EncodeUserCursor(last.CreatedAt, last.ExternalID)
		if err != nil {
			return UserPage{}, fmt.Errorf("encode cursor: %w", err)
		}
		page.NextCursor = &next
	}

	page.Items = items
	page.Count = len(items)

	return page, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, actor *auth.Principal, externalID string, req user.UpdateProfileRequest) (user.User, error) {
	if err := authorizeSelfOrAdmin(actor, externalID); err != nil {
		return user.User{}, err
	}

	req.Email = user.NormalizeEmail(req.Email)

	if err := validation.Struct(req); err != nil {
		return user.User{}, err
	}

	u, err := s.users.UpdateProfile(ctx, externalID, req.Email, req.Username)
	if err != nil {
		return user.User{}, err
	}

	s.log.InfoContext(ctx, "user_profile_updated", "user_id", externalID, "actor_id", actor.Identifier())

	return u, nil
}

// ChangePassword is strictly self-service: admins cannot set another
// user's password through this path.
func (s *UserService) ChangePassword(ctx context.Context, actor *auth.Principal, externalID string, req user.ChangePasswordRequest) error {
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if !auth.IsSelf(actor, externalID) {
		return ErrForbidden
	}

	if err := validation.Struct(req); err != nil {
		return err
	}

	u, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(u.PasswordHash, req.CurrentPassword); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("compare password: %w", err)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, externalID, hash); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "user_password_changed", "user_id", externalID)

	return nil
}

// Deactivate soft-deletes the account. Repeated calls are no-ops.
func (s *UserService) Deactivate(ctx context.Context, actor *auth.Principal, externalID string) error {
	if err := authorizeSelfOrAdmin(actor, externalID); err != nil {
		return err
	}

	u, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		return err
	}

	if !u.IsActive() {
		return nil
	}

	if _, err := s.users.SetStatus(ctx, externalID, user.StatusInactive); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "user_deactivated", "user_id", externalID, "actor_id", actor.Identifier())

	return nil
}
