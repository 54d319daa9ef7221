package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "speechgate"

type PoolConfig struct {
	URL      string
	MaxConns int32
	// ConnectTimeout bounds the dial and the first ping.
	ConnectTimeout time.Duration
}

// NewPool opens the pool backing the users collection and checks it answers.
// Sessions are tagged so pg_stat_activity shows which queries are ours.
func NewPool(ctx context.Context, pc PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(pc)
	if err != nil {
		return nil, err
	}

	timeout := pc.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping users database: %w", err)
	}

	return pool, nil
}

func poolConfig(pc PoolConfig) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(pc.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = 5
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}

	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	return cfg, nil
}
