package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"newsimpact/internal/metrics"
	"newsimpact/pkg/errors"
)

// DBTX is a common interface for *sqlx.DB and *sqlx.Tx
// This allows repositories to work with both regular connections and transactions
// enabling full transactional isolation in tests
type DBTX interface {
	// Core query methods
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row

	// sqlx extended methods
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Named query support
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// txBeginner is implemented by *sqlx.DB
type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// inTx runs fn inside a transaction. When db is already a transaction fn runs
// on it directly and the outer caller decides commit or rollback.
func inTx(ctx context.Context, db DBTX, fn func(q DBTX) error) error {
	b, ok := db.(txBeginner)
	if !ok {
		return fn(db)
	}

	tx, err := b.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

// observe records query latency; not-found lookups are not errors
func observe(op string, started time.Time, err *error) {
	var e error
	if err != nil && *err != nil && !errors.Is(*err, errors.ErrNotFound) {
		e = *err
	}
	metrics.RecordDBQuery("postgres", op, time.Since(started), e)
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
