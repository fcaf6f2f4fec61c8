package datagrid

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// HintStatementTimeout bounds a single execution. The value is a
// time.Duration or a number of milliseconds.
const HintStatementTimeout = "statement_timeout"

// DB is the subset of *pgxpool.Pool and pgx.Tx used to run finalized queries.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Execute runs a query built with the default projection and returns one
// JSON document per row.
func Execute(ctx context.Context, db DB, q Query) ([]json.RawMessage, error) {
	var out []json.RawMessage
	err := withHints(ctx, db, q.Hints, func(conn DB) error {
		rows, err := conn.Query(ctx, q.SQL, q.Args...)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		out, err = pgx.CollectRows(rows, pgx.RowTo[json.RawMessage])
		if err != nil {
			return fmt.Errorf("scan rows: %w", err)
		}
		return nil
	})
	return out, err
}

// Count runs a query built by FinalizeCount.
func Count(ctx context.Context, db DB, q Query) (int64, error) {
	var n int64
	err := withHints(ctx, db, q.Hints, func(conn DB) error {
		if err := conn.QueryRow(ctx, q.SQL, q.Args...).Scan(&n); err != nil {
			return fmt.Errorf("count: %w", err)
		}
		return nil
	})
	return n, err
}

// Execute finalizes the proxy and runs the result.
func (pq *ProxyQuery) Execute(ctx context.Context, db DB) ([]json.RawMessage, error) {
	q, err := pq.Finalize()
	if err != nil {
		return nil, err
	}
	return Execute(ctx, db, q)
}

// withHints runs fn directly, or inside a transaction when a hint needs
// session settings.
func withHints(ctx context.Context, db DB, hints map[string]any, fn func(DB) error) error {
	timeout, ok := statementTimeout(hints)
	if !ok {
		return fn(db)
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", timeout.Milliseconds())); err != nil {
		return fmt.Errorf("set statement_timeout: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func statementTimeout(hints map[string]any) (time.Duration, bool) {
	switch v := hints[HintStatementTimeout].(type) {
	case time.Duration:
		return v, v > 0
	case int:
		return time.Duration(v) * time.Millisecond, v > 0
	case int64:
		return time.Duration(v) * time.Millisecond, v > 0
	}
	return 0, false
}
