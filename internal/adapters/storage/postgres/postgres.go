// Package postgres implements the row stores on a pgx connection pool.
// Each store satisfies the same interface as its SQLite counterpart.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"boxdesk/internal/adapters/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Open connects a pool and verifies it with a ping.
// PRE: dsn is a postgres:// URL or key=value DSN
// POST: returns a live pool the caller must Close
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

// Schema is the Postgres DDL, mirroring the SQLite tables with native types.
const Schema = `
CREATE TABLE IF NOT EXISTS box (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	timezone TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS account (
	id TEXT PRIMARY KEY,
	box_id TEXT NOT NULL REFERENCES box(id),
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	failed_logins INTEGER NOT NULL DEFAULT 0,
	locked_until TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS room (
	id TEXT PRIMARY KEY,
	box_id TEXT NOT NULL REFERENCES box(id),
	name TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS class_type (
	id TEXT PRIMARY KEY,
	box_id TEXT NOT NULL REFERENCES box(id),
	name TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	default_duration_minutes INTEGER NOT NULL DEFAULT 0,
	default_capacity INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS coach (
	id TEXT PRIMARY KEY,
	box_id TEXT NOT NULL REFERENCES box(id),
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS class_instance (
	id TEXT PRIMARY KEY,
	box_id TEXT NOT NULL REFERENCES box(id),
	room_id TEXT NOT NULL REFERENCES room(id),
	class_type_id TEXT NOT NULL REFERENCES class_type(id),
	coach_id TEXT REFERENCES coach(id),
	starts_at TIMESTAMPTZ NOT NULL,
	duration_minutes INTEGER NOT NULL,
	capacity INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_class_instance_box_start ON class_instance(box_id, starts_at);

CREATE TABLE IF NOT EXISTS saved_section (
	id TEXT PRIMARY KEY,
	box_id TEXT NOT NULL REFERENCES box(id),
	label TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	placeholder TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL DEFAULT '',
	associations JSONB NOT NULL DEFAULT '[]',
	coach_notes TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL,
	seq BIGSERIAL
);

ALTER TABLE saved_section ADD COLUMN IF NOT EXISTS label_key TEXT;
UPDATE saved_section SET label_key = lower(btrim(label)) WHERE label_key IS NULL;
DELETE FROM saved_section a USING saved_section b
	WHERE a.box_id = b.box_id AND a.label_key = b.label_key AND a.seq > b.seq;
ALTER TABLE saved_section ALTER COLUMN label_key SET NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_saved_section_box_label ON saved_section(box_id, label_key);
`

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	slog.Info("migration_event", "event", "postgres_schema_ready")
	return nil
}

// notFound maps pgx.ErrNoRows onto storage.ErrNotFound.
func notFound(err error, what, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, storage.ErrNotFound)
	}
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
