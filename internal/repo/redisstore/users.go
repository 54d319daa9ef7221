package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/geocoder89/speechgate/internal/domain/user"
	"github.com/geocoder89/speechgate/internal/observability"
	"github.com/geocoder89/speechgate/internal/repo"
	"github.com/redis/go-redis/v9"
)

// UsersRepo stores each user as a JSON string under <prefix>user:<email>.
type UsersRepo struct {
	rdb    *redis.Client
	prefix string
	prom   *observability.Prom
}

func NewUsersRepo(rdb *redis.Client, prefix string, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{rdb: rdb, prefix: prefix, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveStore(op, fn)
	}
	return fn()
}

func (r *UsersRepo) key(email string) string {
	return r.prefix + "user:" + user.Key(email)
}

func (r *UsersRepo) Resolve(ctx context.Context, email string) repo.LookupResult {
	var raw []byte
	missing := false

	err := r.observe("users.resolve", func() error {
		b, err := r.rdb.Get(ctx, r.key(email)).Bytes()

		if errors.Is(err, redis.Nil) {
			missing = true
			return nil
		}

		raw = b
		return err
	})

	if err != nil {
		return repo.LookupFailed(fmt.Errorf("resolve user: %w", err))
	}

	if missing {
		return repo.Missing()
	}

	var u user.User

	if err := json.Unmarshal(raw, &u); err != nil {
		return repo.LookupFailed(fmt.Errorf("decode user document: %w", err))
	}

	return repo.FoundUser(u)
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) error {
	doc, err := json.Marshal(u)

	if err != nil {
		return fmt.Errorf("encode user document: %w", err)
	}

	var created bool

	err = r.observe("users.create", func() error {
		ok, err := r.rdb.SetNX(ctx, r.key(u.Email), doc, 0).Result()
		created = ok
		return err
	})

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	if !created {
		return repo.ErrUserExists
	}

	return nil
}

func (r *UsersRepo) Save(ctx context.Context, u user.User) error {
	doc, err := json.Marshal(u)

	if err != nil {
		return fmt.Errorf("encode user document: %w", err)
	}

	err = r.observe("users.save", func() error {
		return r.rdb.Set(ctx, r.key(u.Email), doc, 0).Err()
	})

	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	return nil
}

const chargeTrialAttempts = 5

// ChargeTrial runs an optimistic WATCH/MULTI cycle on the user key, so a write
// landing between read and update aborts the transaction and is retried on
// the fresh document.
func (r *UsersRepo) ChargeTrial(ctx context.Context, email string, trialMaximum int) (bool, error) {
	key := r.key(email)
	var charged bool

	txn := func(tx *redis.Tx) error {
		charged = false

		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var u user.User
		if err := json.Unmarshal(raw, &u); err != nil {
			return fmt.Errorf("decode user document: %w", err)
		}

		if !user.ShouldCountTrial(u, trialMaximum) {
			return nil
		}

		u.TrialCount++

		doc, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("encode user document: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, doc, 0)
			return nil
		})
		if err == nil {
			charged = true
		}
		return err
	}

	err := r.observe("users.charge_trial", func() error {
		for i := 0; i < chargeTrialAttempts; i++ {
			err := r.rdb.Watch(ctx, txn, key)
			if !errors.Is(err, redis.TxFailedErr) {
				return err
			}
		}
		return redis.TxFailedErr
	})

	if err != nil {
		return false, fmt.Errorf("charge trial: %w", err)
	}

	return charged, nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
