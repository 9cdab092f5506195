package circuitbreaker

import (
	"context"
	"database/sql"
	"time"

	"github.com/sony/gobreaker"
)

// DBCircuitBreaker runs statements against a *sql.DB through a breaker so a
// failing database sheds result writes quickly instead of queueing them.
type DBCircuitBreaker struct {
	cb *CircuitBreaker
	db *sql.DB
}

// DBConfig trips after five straight failures and probes again after 30s.
func DBConfig() Config {
	return Config{
		Name:             "postgres",
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 1.0,
		MinRequests:      5,
	}
}

func NewDBCircuitBreaker(db *sql.DB) *DBCircuitBreaker {
	return NewDBCircuitBreakerWithConfig(db, DBConfig())
}

func NewDBCircuitBreakerWithConfig(db *sql.DB, cfg Config) *DBCircuitBreaker {
	return &DBCircuitBreaker{cb: New(cfg), db: db}
}

func (dcb *DBCircuitBreaker) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := dcb.cb.Execute(func() (any, error) {
		return dcb.db.ExecContext(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return res.(sql.Result), nil
}

// QueryRowScan runs a single-row query and scans it into dest inside the
// breaker, so scan-time errors count against it too.
func (dcb *DBCircuitBreaker) QueryRowScan(ctx context.Context, query string, args []any, dest ...any) error {
	_, err := dcb.cb.Execute(func() (any, error) {
		return nil, dcb.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	})
	return err
}

func (dcb *DBCircuitBreaker) State() gobreaker.State { return dcb.cb.State() }

func (dcb *DBCircuitBreaker) IsOpen() bool { return dcb.cb.IsOpen() }

// DB returns the unguarded pool, for pings and migrations.
func (dcb *DBCircuitBreaker) DB() *sql.DB { return dcb.db }
