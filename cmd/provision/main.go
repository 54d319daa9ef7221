package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/geocoder89/speechgate/internal/config"
	"github.com/geocoder89/speechgate/internal/db"
	"github.com/geocoder89/speechgate/internal/observability"
	"github.com/geocoder89/speechgate/internal/redisclient"
)

// provision creates the user collection ahead of the first deployment.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch cfg.UserStore {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DBURL, MaxConns: 1})
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := db.EnsureSchema(ctx, pool); err != nil {
			log.Error("provision failed", "err", err)
			os.Exit(1)
		}

		log.Info("users collection ready", "store", cfg.UserStore)

	case config.StoreRedis:
		// redis keys need no provisioning; only check we can reach it
		rc := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rc.Close()

		if err := rc.Ping(ctx); err != nil {
			log.Error("redis ping failed", "err", err)
			os.Exit(1)
		}

		log.Info("redis reachable, nothing to provision", "prefix", cfg.RedisKeyPrefix)

	default:
		log.Info("nothing to provision", "store", cfg.UserStore)
	}
}
