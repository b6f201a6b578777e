package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// SQLDB is what every SQLite store is built on. *sql.DB and *TimedDB both qualify,
// so tests hand stores a bare in-memory database.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var (
	_ SQLDB = (*sql.DB)(nil)
	_ SQLDB = (*TimedDB)(nil)
)

// DefaultSlowQueryMs applies when NewTimedDB is given no threshold.
const DefaultSlowQueryMs = 50

// TimedDB logs each statement's duration and flags the slow ones.
// Schedule commits run several statements in one transaction; only the
// BEGIN is timed here, the statements inside go straight to *sql.Tx.
type TimedDB struct {
	db   *sql.DB
	slow time.Duration

	slowCount atomic.Int64
}

// NewTimedDB wraps db. slowMs <= 0 means DefaultSlowQueryMs.
func NewTimedDB(db *sql.DB, slowMs int) *TimedDB {
	if slowMs <= 0 {
		slowMs = DefaultSlowQueryMs
	}
	return &TimedDB{db: db, slow: time.Duration(slowMs) * time.Millisecond}
}

// Threshold is the duration at which a statement counts as slow.
func (t *TimedDB) Threshold() time.Duration { return t.slow }

// SlowQueries reports how many statements crossed the threshold since start.
func (t *TimedDB) SlowQueries() int64 { return t.slowCount.Load() }

// statement collapses whitespace so multi-line SQL logs on one line.
func statement(query string) string {
	s := strings.Join(strings.Fields(query), " ")
	if len(s) > 160 {
		s = s[:160] + "..."
	}
	return s
}

func (t *TimedDB) observe(ctx context.Context, kind, query string, began time.Time, err error) {
	took := time.Since(began)
	attrs := []any{"kind", kind, "duration_ms", float64(took.Microseconds()) / 1000}
	if err != nil && err != sql.ErrNoRows {
		attrs = append(attrs, "error", err)
	}
	if took < t.slow {
		slog.DebugContext(ctx, "query", attrs...)
		return
	}
	t.slowCount.Add(1)
	slog.WarnContext(ctx, "slow_query", append(attrs, "sql", statement(query))...)
}

func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	began := time.Now()
	res, err := t.db.ExecContext(ctx, query, args...)
	t.observe(ctx, "exec", query, began, err)
	return res, err
}

func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	began := time.Now()
	rows, err := t.db.QueryContext(ctx, query, args...)
	t.observe(ctx, "query", query, began, err)
	return rows, err
}

// QueryRowContext defers its error to Scan, so only the duration is observed.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	began := time.Now()
	row := t.db.QueryRowContext(ctx, query, args...)
	t.observe(ctx, "row", query, began, nil)
	return row
}

func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	began := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.observe(ctx, "begin", "BEGIN", began, err)
	return tx, err
}
