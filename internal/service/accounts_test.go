package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geocoder89/speechgate/internal/auth"
	"github.com/geocoder89/speechgate/internal/domain/user"
	"github.com/geocoder89/speechgate/internal/repo"
	"github.com/geocoder89/speechgate/internal/repo/memory"
)

// fakeStore lets tests override single operations of the memory store and
// counts the writes that reach it.
type fakeStore struct {
	*memory.UsersRepo
	ResolveFn     func(ctx context.Context, email string) repo.LookupResult
	CreateFn      func(ctx context.Context, u user.User) error
	SaveFn        func(ctx context.Context, u user.User) error
	ChargeTrialFn func(ctx context.Context, email string, trialMaximum int) (bool, error)

	writes atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{UsersRepo: memory.NewUsersRepo()}
}

func (f *fakeStore) Resolve(ctx context.Context, email string) repo.LookupResult {
	if f.ResolveFn != nil {
		return f.ResolveFn(ctx, email)
	}
	return f.UsersRepo.Resolve(ctx, email)
}

func (f *fakeStore) Create(ctx context.Context, u user.User) error {
	f.writes.Add(1)
	if f.CreateFn != nil {
		return f.CreateFn(ctx, u)
	}
	return f.UsersRepo.Create(ctx, u)
}

func (f *fakeStore) Save(ctx context.Context, u user.User) error {
	f.writes.Add(1)
	if f.SaveFn != nil {
		return f.SaveFn(ctx, u)
	}
	return f.UsersRepo.Save(ctx, u)
}

func (f *fakeStore) ChargeTrial(ctx context.Context, email string, trialMaximum int) (bool, error) {
	f.writes.Add(1)
	if f.ChargeTrialFn != nil {
		return f.ChargeTrialFn(ctx, email, trialMaximum)
	}
	return f.UsersRepo.ChargeTrial(ctx, email, trialMaximum)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAuthenticateCreatesUserOnFirstLogin(t *testing.T) {
	store := newFakeStore()
	acc := NewAccounts(store, nil)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	acc.now = fixedClock(now)

	u, created, err := acc.Authenticate(context.Background(), auth.Identity{Email: "ada@example.com", Name: "Ada"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true")
	}

	if u.ID != "ada@example.com" || u.Email != "ada@example.com" || u.Username != "Ada" {
		t.Fatalf("unexpected identity fields: %+v", u)
	}
	if !u.Limited || u.TrialCount != 0 || u.IsBanned {
		t.Fatalf("unexpected trial defaults: %+v", u)
	}
	if u.AuthProvider != user.ProviderGoogle || u.Role != user.RoleUser {
		t.Fatalf("unexpected provider/role: %+v", u)
	}
	if !u.CreationDate.Equal(now) || !u.LastLoginDate.Equal(now) {
		t.Fatalf("unexpected dates: %+v", u)
	}

	if store.Len() != 1 {
		t.Fatalf("expected 1 stored user, got %d", store.Len())
	}
}

func TestAuthenticateTouchesReturningUserOnly(t *testing.T) {
	store := newFakeStore()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	existing := user.NewGoogleUser("bob@example.com", "Bob", created)
	existing.TrialCount = 2
	existing.IsBanned = true
	_ = store.UsersRepo.Save(context.Background(), existing)

	acc := NewAccounts(store, nil)
	later := created.Add(48 * time.Hour)
	acc.now = fixedClock(later)

	u, isNew, err := acc.Authenticate(context.Background(), auth.Identity{Email: "bob@example.com", Name: "Robert"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if isNew {
		t.Fatalf("expected created=false")
	}

	stored := store.UsersRepo.Resolve(context.Background(), "bob@example.com").User

	for _, got := range []user.User{u, stored} {
		if !got.LastLoginDate.Equal(later) {
			t.Fatalf("LastLoginDate = %v, want %v", got.LastLoginDate, later)
		}
		// everything but the login date is left alone
		if got.Username != "Bob" || got.TrialCount != 2 || !got.IsBanned || !got.CreationDate.Equal(created) {
			t.Fatalf("unexpected mutation: %+v", got)
		}
	}
}

func TestAuthenticateLoginDateNeverMovesBackwards(t *testing.T) {
	store := newFakeStore()
	acc := NewAccounts(store, nil)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	acc.now = fixedClock(now)

	id := auth.Identity{Email: "eve@example.com", Name: "Eve"}

	first, _, err := acc.Authenticate(context.Background(), id)
	if err != nil {
		t.Fatalf("first login: %v", err)
	}

	second, _, err := acc.Authenticate(context.Background(), id)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if !second.LastLoginDate.After(first.LastLoginDate) {
		t.Fatalf("second login %v is not after first %v", second.LastLoginDate, first.LastLoginDate)
	}
}

func TestAuthenticateRecoversFromConcurrentCreate(t *testing.T) {
	store := newFakeStore()
	winner := user.NewGoogleUser("race@example.com", "Racer", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	store.ResolveFn = func(ctx context.Context, email string) repo.LookupResult {
		// first lookup misses, then the concurrent writer lands
		store.ResolveFn = nil
		return repo.Missing()
	}
	store.CreateFn = func(ctx context.Context, u user.User) error {
		_ = store.UsersRepo.Save(ctx, winner)
		return repo.ErrUserExists
	}

	acc := NewAccounts(store, nil)
	acc.now = fixedClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	u, created, err := acc.Authenticate(context.Background(), auth.Identity{Email: "race@example.com", Name: "Racer"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if created {
		t.Fatalf("expected created=false after conflict")
	}
	if !u.CreationDate.Equal(winner.CreationDate) {
		t.Fatalf("expected the existing document to be kept, got %+v", u)
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly one user, got %d", store.Len())
	}
}

func TestAuthenticateStoreFailures(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name  string
		setup func(s *fakeStore)
	}{
		{
			name: "resolve fails",
			setup: func(s *fakeStore) {
				s.ResolveFn = func(context.Context, string) repo.LookupResult { return repo.LookupFailed(boom) }
			},
		},
		{
			name: "create fails",
			setup: func(s *fakeStore) {
				s.CreateFn = func(context.Context, user.User) error { return boom }
			},
		},
		{
			name: "save fails for returning user",
			setup: func(s *fakeStore) {
				_ = s.UsersRepo.Save(context.Background(), user.NewGoogleUser("x@example.com", "X", time.Now()))
				s.SaveFn = func(context.Context, user.User) error { return boom }
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			tt.setup(store)

			_, _, err := NewAccounts(store, nil).Authenticate(context.Background(), auth.Identity{Email: "x@example.com", Name: "X"})
			if !errors.Is(err, ErrStore) {
				t.Fatalf("expected ErrStore, got %v", err)
			}
		})
	}
}
