package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/speechgate/internal/config"
	"github.com/geocoder89/speechgate/internal/db"
	"github.com/geocoder89/speechgate/internal/observability"
	"github.com/geocoder89/speechgate/internal/redisclient"
	"github.com/geocoder89/speechgate/internal/repo"
	"github.com/geocoder89/speechgate/internal/repo/memory"
	"github.com/geocoder89/speechgate/internal/repo/postgres"
	"github.com/geocoder89/speechgate/internal/repo/redisstore"
)

// openUserStore builds the backend named by USER_STORE. The returned func
// releases its connections.
func openUserStore(cfg config.Config, prom *observability.Prom, log *slog.Logger) (repo.UserStore, func(), error) {
	switch cfg.UserStore {
	case config.StorePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DBURL, MaxConns: int32(cfg.DBMaxConns)})
		if err != nil {
			return nil, nil, fmt.Errorf("db connect: %w", err)
		}

		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}

		return postgres.NewUsersRepo(pool, prom), pool.Close, nil

	case config.StoreRedis:
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}

		return redisstore.NewUsersRepo(rc.Raw(), cfg.RedisKeyPrefix, prom), func() { _ = rc.Close() }, nil

	default:
		log.Warn("using in-memory user store; records are lost on restart")
		return memory.NewUsersRepo(), func() {}, nil
	}
}
