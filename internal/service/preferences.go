package service

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/pricetracker/internal/auth"
	"github.com/geocoder89/pricetracker/internal/domain/preferences"
	"github.com/geocoder89/pricetracker/internal/validation"
)

type PreferencesService struct {
	prefs PreferencesStore
	users UserStore
	now   func() time.Time
}

func NewPreferencesService(prefs PreferencesStore, users UserStore) *PreferencesService {
	return &PreferencesService{prefs: prefs, users: users, now: time.Now}
}

// Get falls back to preferences.Defaults when nothing has been saved yet.
func (s *PreferencesService) Get(ctx context.Context, actor *auth.Principal, userID string) (preferences.Preferences, error) {
	if err := authorizeSelfOrAdmin(actor, userID); err != nil {
		return preferences.Preferences{}, err
	}

	if _, err := s.users.GetByExternalID(ctx, userID); err != nil {
		return preferences.Preferences{}, err
	}

	p, err := s.prefs.Get(ctx, userID)
	if errors.Is(err, preferences.ErrNotFound) {
		return preferences.Defaults(userID), nil
	}
	if err != nil {
		return preferences.Preferences{}, err
	}

	return p, nil
}

func (s *PreferencesService) Update(ctx context.Context, actor *auth.Principal, userID string, req preferences.UpdateRequest) (preferences.Preferences, error) {
	if err := authorizeSelfOrAdmin(actor, userID); err != nil {
		return preferences.Preferences{}, err
	}

	if err := validation.Struct(req); err != nil {
		return preferences.Preferences{}, err
	}

	if _, err := s.users.GetByExternalID(ctx, userID); err != nil {
		return preferences.Preferences{}, err
	}

	return s.prefs.Upsert(ctx, preferences.FromUpdate(userID, req, s.now().UTC()))
}
