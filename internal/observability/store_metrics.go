package observability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

func (p *Prom) ObserveStore(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	status := "ok"

	if err != nil {
		status = "error"
		p.StoreErrorsTotal.WithLabelValues(op, classifyStoreErr(err)).Inc()
	}
	p.StoreOpDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

func classifyStoreErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "40001":
			return "serialization_failure"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return "redis_" + strings.ToLower(strings.SplitN(redisErr.Error(), " ", 2)[0])
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection") || strings.Contains(msg, "refused"):
		return "connection"
	default:
		return "unknown"
	}
}
