package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClassifyStoreErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: "unique_violation"},
		{name: "wrapped pg error", err: fmt.Errorf("save user: %w", &pgconn.PgError{Code: "42P01"}), want: "pg_42P01"},
		{name: "deadline", err: fmt.Errorf("resolve: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "dial failure", err: errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"), want: "connection"},
		{name: "other", err: errors.New("boom"), want: "unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyStoreErr(tc.err); got != tc.want {
				t.Fatalf("classifyStoreErr() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestObserveStoreCountsErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveStore("users.save", func() error { return nil })
	err := p.ObserveStore("users.save", func() error { return errors.New("boom") })

	if err == nil || err.Error() != "boom" {
		t.Fatalf("ObserveStore must return the op error, got %v", err)
	}

	if got := testutil.ToFloat64(p.StoreErrorsTotal.WithLabelValues("users.save", "unknown")); got != 1 {
		t.Fatalf("errors_total = %v, want 1", got)
	}
}
