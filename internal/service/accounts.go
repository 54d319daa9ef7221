package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/speechgate/internal/actorctx"
	"github.com/geocoder89/speechgate/internal/auth"
	"github.com/geocoder89/speechgate/internal/domain/user"
	"github.com/geocoder89/speechgate/internal/observability"
	"github.com/geocoder89/speechgate/internal/repo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Accounts reconciles the user record on every successful login.
type Accounts struct {
	store repo.UserStore
	log   *slog.Logger
	now   func() time.Time
}

func NewAccounts(store repo.UserStore, log *slog.Logger) *Accounts {
	if log == nil {
		log = slog.Default()
	}

	return &Accounts{store: store, log: log, now: time.Now}
}

// Authenticate refreshes lastLoginDate of a known user or creates the record
// with trial defaults. created reports which path was taken.
func (a *Accounts) Authenticate(ctx context.Context, id auth.Identity) (u user.User, created bool, err error) {
	if _, ok := actorctx.EmailFrom(ctx); !ok {
		ctx = actorctx.WithIdentity(ctx, id.Email, id.Name)
	}

	ctx, span := observability.Tracer().Start(ctx, "accounts.authenticate")
	defer span.End()

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "authenticate failed")
		}
		span.SetAttributes(attribute.Bool("user.created", created))
	}()

	res := a.store.Resolve(ctx, id.Email)

	switch res.Status {
	case repo.Found:
		u, err = a.touch(ctx, res.User)
		return u, false, err

	case repo.NotFound:
		u = user.NewGoogleUser(id.Email, id.Name, a.now())

		err = a.store.Create(ctx, u)

		if errors.Is(err, repo.ErrUserExists) {
			// lost a race with a concurrent first login; treat as a returning user
			return a.retouch(ctx, id.Email)
		}

		if err != nil {
			a.log.ErrorContext(ctx, "create user failed", "op", "users.create", "err", err)
			return user.User{}, false, fmt.Errorf("%w: %v", ErrStore, err)
		}

		a.log.InfoContext(ctx, "created new user")
		return u, true, nil

	default:
		a.log.ErrorContext(ctx, "resolve user failed", "op", "users.resolve", "err", res.Err)
		return user.User{}, false, fmt.Errorf("%w: %v", ErrStore, res.Err)
	}
}

func (a *Accounts) retouch(ctx context.Context, email string) (user.User, bool, error) {
	res := a.store.Resolve(ctx, email)

	if res.Status != repo.Found {
		a.log.ErrorContext(ctx, "resolve user after create conflict failed", "op", "users.resolve", "status", res.Status.String(), "err", res.Err)
		return user.User{}, false, fmt.Errorf("%w: user vanished after create conflict", ErrStore)
	}

	u, err := a.touch(ctx, res.User)
	return u, false, err
}

func (a *Accounts) touch(ctx context.Context, u user.User) (user.User, error) {
	u.TouchLogin(a.now())

	if err := a.store.Save(ctx, u); err != nil {
		a.log.ErrorContext(ctx, "update login date failed", "op", "users.save", "err", err)
		return user.User{}, fmt.Errorf("%w: %v", ErrStore, err)
	}

	a.log.DebugContext(ctx, "updated login date")
	return u, nil
}
