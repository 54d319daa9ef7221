package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	email      TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema provisions the user collection if it does not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, usersSchema); err != nil {
		return fmt.Errorf("provision users collection: %w", err)
	}
	return nil
}
