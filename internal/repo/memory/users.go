package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/pricetracker/internal/domain/user"
)

// UsersRepo is an in-process stand-in for postgres.UsersRepo with the same
// uniqueness rules (email exact, username case-insensitive).
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User // keyed by external id
	now   func() time.Time
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
		now:   time.Now,
	}
}

func (r *UsersRepo) conflict(u user.User, skipID string) error {
	for id, existing := range r.items {
		if id == skipID {
			continue
		}
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
		if strings.EqualFold(existing.Username, u.Username) {
			return user.ErrUsernameTaken
		}
	}
	return nil
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.conflict(u, ""); err != nil {
		return user.User{}, err
	}

	r.items[u.ExternalID] = u
	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByExternalID(_ context.Context, externalID string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[externalID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) UpdateProfile(_ context.Context, externalID, email, username string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[externalID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	u.Email = email
	u.Username = username

	if err := r.conflict(u, externalID); err != nil {
		return user.User{}, err
	}

	u.UpdatedAt = r.now().UTC()
	r.items[externalID] = u
	return u, nil
}

func (r *UsersRepo) UpdatePassword(_ context.Context, externalID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[externalID]
	if !ok {
		return user.ErrNotFound
	}

	u.PasswordHash = passwordHash
	u.UpdatedAt = r.now().UTC()
	r.items[externalID] = u
	return nil
}

func (r *UsersRepo) SetStatus(_ context.Context, externalID string, status user.Status) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[externalID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	u.Status = status
	u.UpdatedAt = r.now().UTC()
	r.items[externalID] = u
	return u, nil
}

func (r *UsersRepo) List(_ context.Context, filter user.ListFilter) ([]user.User, error) {
	r.mu.RLock()
	all := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		all = append(all, u)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ExternalID < all[j].ExternalID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	out := make([]user.User, 0, filter.Limit)
	for _, u := range all {
		after := u.CreatedAt.After(filter.AfterCreatedAt) ||
			(u.CreatedAt.Equal(filter.AfterCreatedAt) && u.ExternalID > filter.AfterID)
		if !after {
			continue
		}

		out = append(out, u)
		if len(out) == filter.Limit {
			break
		}
	}

	return out, nil
}
