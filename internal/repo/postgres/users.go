package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/speechgate/internal/domain/user"
	"github.com/geocoder89/speechgate/internal/observability"
	"github.com/geocoder89/speechgate/internal/repo"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsersRepo keeps each user as a JSONB document partitioned by email.
type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveStore(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func (r *UsersRepo) Resolve(ctx context.Context, email string) repo.LookupResult {
	var doc []byte

	err := r.observe("users.resolve", func() error {
		err := r.pool.QueryRow(ctx, `SELECT doc FROM users WHERE email = $1`, user.Key(email)).Scan(&doc)

		// a miss is not a store failure
		if errors.Is(err, pgx.ErrNoRows) {
			doc = nil
			return nil
		}
		return err
	})

	if err != nil {
		return repo.LookupFailed(fmt.Errorf("resolve user: %w", err))
	}

	if doc == nil {
		return repo.Missing()
	}

	var u user.User

	if err := json.Unmarshal(doc, &u); err != nil {
		return repo.LookupFailed(fmt.Errorf("decode user document: %w", err))
	}

	return repo.FoundUser(u)
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	doc, err := json.Marshal(u)

	if err != nil {
		return fmt.Errorf("encode user document: %w", err)
	}

	now := time.Now().UTC()

	err = r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (email, doc, created_at, updated_at) VALUES ($1, $2, $3, $3)`,
			user.Key(u.Email), doc, now,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return repo.ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *UsersRepo) Save(ctx context.Context, u user.User) error {
	doc, err := json.Marshal(u)

	if err != nil {
		return fmt.Errorf("encode user document: %w", err)
	}

	now := time.Now().UTC()

	err = r.observe("users.save", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (email, doc, created_at, updated_at) VALUES ($1, $2, $3, $3)
			 ON CONFLICT (email) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`,
			user.Key(u.Email), doc, now,
		)
		return err
	})

	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	return nil
}

// ChargeTrial bumps doc.trialCount in place so fields written since the
// caller's read (login date, ban) are kept.
func (r *UsersRepo) ChargeTrial(ctx context.Context, email string, trialMaximum int) (bool, error) {
	var affected int64

	err := r.observe("users.charge_trial", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
			 SET doc = jsonb_set(doc, '{trialCount}', to_jsonb(COALESCE((doc->>'trialCount')::int, 0) + 1)),
			     updated_at = now()
			 WHERE email = $1
			   AND COALESCE((doc->>'limited')::boolean, false)
			   AND COALESCE((doc->>'trialCount')::int, 0) < $2`,
			user.Key(email), trialMaximum,
		)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return false, fmt.Errorf("charge trial: %w", err)
	}

	return affected == 1, nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
