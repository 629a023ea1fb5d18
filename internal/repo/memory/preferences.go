package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/pricetracker/internal/domain/preferences"
)

type PreferencesRepo struct {
	mu    sync.RWMutex
	items map[string]preferences.Preferences
}

func NewPreferencesRepo() *PreferencesRepo {
	return &PreferencesRepo{
		items: make(map[string]preferences.Preferences),
	}
}

func (r *PreferencesRepo) Get(_ context.Context, userID string) (preferences.Preferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[userID]
	if !ok {
		return preferences.Preferences{}, preferences.ErrNotFound
	}
	return p, nil
}

func (r *PreferencesRepo) Upsert(_ context.Context, p preferences.Preferences) (preferences.Preferences, error) {
	r.mu.Lock()
	r.items[p.UserID] = p
	r.mu.Unlock()

	return p, nil
}
