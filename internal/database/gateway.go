package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultAttempts = 3
	defaultDelay    = 1 * time.Second
)

// Gateway executes single statements with bounded retry on transient
// failures, and multi-statement transactions without retry. It is the only
// path components use to touch the database.
type Gateway struct {
	db       *sql.DB
	attempts int
	delay    time.Duration
	log      zerolog.Logger
}

func NewGateway(db *sql.DB, log zerolog.Logger) *Gateway {
	return &Gateway{
		db:       db,
		attempts: defaultAttempts,
		delay:    defaultDelay,
		log:      log.With().Str("component", "database").Logger(),
	}
}

func (g *Gateway) DB() *sql.DB {
	return g.db
}

// Exec runs a single parameterized statement, retrying transient failures.
func (g *Gateway) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := withRetry(ctx, g.attempts, g.delay, g.log, func() error {
		var err error
		res, err = g.db.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

// Query runs a single query, retrying transient failures. The caller owns
// the returned rows and must close them.
func (g *Gateway) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := withRetry(ctx, g.attempts, g.delay, g.log, func() error {
		var err error
		rows, err = g.db.QueryContext(ctx, query, args...)
		if err == nil {
			err = rows.Err()
		}
		return err
	})
	return rows, err
}

// QueryRowScan runs a single-row query and scans it into dest, retrying
// transient failures. sql.ErrNoRows is surfaced to the caller untouched.
func (g *Gateway) QueryRowScan(ctx context.Context, query string, args []any, dest ...any) error {
	return withRetry(ctx, g.attempts, g.delay, g.log, func() error {
		return g.db.QueryRowContext(ctx, query, args...).Scan(dest...)
	})
}

// Transact wraps fn in BEGIN/COMMIT. Any error inside fn rolls the whole
// transaction back and propagates without retry: some statements in the
// sequence may have external side effects already observed, so replaying a
// partially-applied transaction is unsafe.
func (g *Gateway) Transact(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
