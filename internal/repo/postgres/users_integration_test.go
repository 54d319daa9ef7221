package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/speechgate/internal/db"
	"github.com/geocoder89/speechgate/internal/domain/user"
	"github.com/geocoder89/speechgate/internal/repo"
	"github.com/geocoder89/speechgate/internal/repo/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

func setupUsersRepo(t *testing.T) (*postgres.UsersRepo, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping postgres integration test")
	}

	pool, err := db.NewPool(context.Background(), db.PoolConfig{URL: dsn, MaxConns: 2})
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	ctx := context.Background()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	if _, err := pool.Exec(ctx, `TRUNCATE users`); err != nil {
		t.Fatalf("failed to truncate users: %v", err)
	}

	return postgres.NewUsersRepo(pool, nil), pool
}

func TestUsersRepo_CreateResolveSave(t *testing.T) {
	r, _ := setupUsersRepo(t)
	ctx := context.Background()

	if res := r.Resolve(ctx, "jane@example.com"); res.Status != repo.NotFound {
		t.Fatalf("expected not_found, got %v (%v)", res.Status, res.Err)
	}

	u := user.NewGoogleUser("jane@example.com", "Jane", time.Now())

	if err := r.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := r.Create(ctx, u); !errors.Is(err, repo.ErrUserExists) {
		t.Fatalf("duplicate Create = %v, want ErrUserExists", err)
	}

	u.TrialCount = 1
	if err := r.Save(ctx, u); err != nil {
		t.Fatalf("Save: %v", err)
	}

	res := r.Resolve(ctx, "jane@example.com")
	if res.Status != repo.Found {
		t.Fatalf("expected found, got %v (%v)", res.Status, res.Err)
	}
	if res.User.TrialCount != 1 || res.User.Username != "Jane" || !res.User.Limited {
		t.Fatalf("unexpected document: %+v", res.User)
	}
	if !res.User.CreationDate.Equal(u.CreationDate) {
		t.Fatalf("CreationDate changed: %v vs %v", res.User.CreationDate, u.CreationDate)
	}
}

func TestUsersRepo_ChargeTrialUpdatesInPlace(t *testing.T) {
	r, _ := setupUsersRepo(t)
	ctx := context.Background()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	u := user.NewGoogleUser("jane@example.com", "Jane", created)
	u.TrialCount = 2
	if err := r.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	later := u
	later.LastLoginDate = created.Add(time.Hour)
	later.IsBanned = true
	if err := r.Save(ctx, later); err != nil {
		t.Fatalf("Save: %v", err)
	}

	charged, err := r.ChargeTrial(ctx, "jane@example.com", 3)
	if err != nil || !charged {
		t.Fatalf("ChargeTrial = %v, %v", charged, err)
	}

	got := r.Resolve(ctx, "jane@example.com").User
	if got.TrialCount != 3 || !got.IsBanned || !got.LastLoginDate.Equal(later.LastLoginDate) {
		t.Fatalf("unexpected document after charge: %+v", got)
	}

	charged, err = r.ChargeTrial(ctx, "jane@example.com", 3)
	if err != nil || charged {
		t.Fatalf("ChargeTrial at the maximum = %v, %v, want not charged", charged, err)
	}

	charged, err = r.ChargeTrial(ctx, "ghost@example.com", 3)
	if err != nil || charged {
		t.Fatalf("ChargeTrial on missing user = %v, %v", charged, err)
	}
}
