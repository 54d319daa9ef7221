package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/speechgate/internal/domain/user"
	"github.com/geocoder89/speechgate/internal/repo"
)

type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User // {"email": user}
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

func (r *UsersRepo) Resolve(_ context.Context, email string) repo.LookupResult {
	r.mu.RLock()
	u, ok := r.items[user.Key(email)]
	r.mu.RUnlock()

	if !ok {
		return repo.Missing()
	}

	return repo.FoundUser(u)
}

func (r *UsersRepo) Create(_ context.Context, u user.User) error {
	key := user.Key(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[key]; ok {
		return repo.ErrUserExists
	}

	r.items[key] = u
	return nil
}

func (r *UsersRepo) Save(_ context.Context, u user.User) error {
	r.mu.Lock()
	r.items[user.Key(u.Email)] = u
	r.mu.Unlock()

	return nil
}

func (r *UsersRepo) ChargeTrial(_ context.Context, email string, trialMaximum int) (bool, error) {
	key := user.Key(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[key]
	if !ok || !user.ShouldCountTrial(u, trialMaximum) {
		return false, nil
	}

	u.TrialCount++
	r.items[key] = u
	return true, nil
}

func (r *UsersRepo) Ping(context.Context) error {
	return nil
}

// Len is used by tests to assert how many documents exist.
func (r *UsersRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
