// Package db opens the Postgres connection shared by the stores.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// DBTX is the subset of *sql.DB and *sql.Tx the stores use.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	StatementTimeout time.Duration
}

// Open connects to Postgres and verifies the connection with a ping.
func Open(ctx context.Context, connStr string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(connStr) == "" {
		return nil, fmt.Errorf("open database: empty connection string")
	}
	// Sessions run in UTC so date arithmetic agrees with the UTC day
	// buckets used by the stores.
	connStr = withParam(connStr, "timezone", "UTC")
	if opts.StatementTimeout > 0 {
		connStr = withStatementTimeout(connStr, opts.StatementTimeout)
	}
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return conn, nil
}

// withStatementTimeout appends a statement_timeout to a URL or key=value DSN.
func withStatementTimeout(connStr string, d time.Duration) string {
	return withParam(connStr, "statement_timeout", fmt.Sprint(d.Milliseconds()))
}

// withParam appends a run-time parameter to a URL or key=value DSN.
func withParam(connStr, key, value string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		sep := "?"
		if strings.Contains(connStr, "?") {
			sep = "&"
		}
		return connStr + sep + key + "=" + value
	}
	return connStr + " " + key + "=" + value
}

// InTx runs fn inside a transaction, committing on success.
func InTx(ctx context.Context, conn *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
