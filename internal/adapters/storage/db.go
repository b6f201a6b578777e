package storage

import (
	"database/sql"
	"errors"
	"time"
)

// TimeLayout is the fixed-width UTC layout used for TEXT timestamps.
// Fixed width keeps lexical order equal to chronological order for range queries.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a stored timestamp. Empty strings yield the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		// rows written by hand or older builds
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// Schema is the SQLite DDL. Every tenant table carries box_id.
const Schema = `
	CREATE TABLE IF NOT EXISTS box (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		box_id TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT,
		FOREIGN KEY (box_id) REFERENCES box(id)
	);

	CREATE TABLE IF NOT EXISTS room (
		id TEXT PRIMARY KEY,
		box_id TEXT NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		FOREIGN KEY (box_id) REFERENCES box(id)
	);

	CREATE TABLE IF NOT EXISTS class_type (
		id TEXT PRIMARY KEY,
		box_id TEXT NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		default_duration_minutes INTEGER NOT NULL DEFAULT 0,
		default_capacity INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		FOREIGN KEY (box_id) REFERENCES box(id)
	);

	CREATE TABLE IF NOT EXISTS coach (
		id TEXT PRIMARY KEY,
		box_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (box_id) REFERENCES box(id)
	);

	CREATE TABLE IF NOT EXISTS class_instance (
		id TEXT PRIMARY KEY,
		box_id TEXT NOT NULL,
		room_id TEXT NOT NULL,
		class_type_id TEXT NOT NULL,
		coach_id TEXT,
		starts_at TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		FOREIGN KEY (box_id) REFERENCES box(id),
		FOREIGN KEY (room_id) REFERENCES room(id),
		FOREIGN KEY (class_type_id) REFERENCES class_type(id),
		FOREIGN KEY (coach_id) REFERENCES coach(id)
	);

	CREATE INDEX IF NOT EXISTS idx_class_instance_box_start ON class_instance(box_id, starts_at);

	CREATE TABLE IF NOT EXISTS saved_section (
		id TEXT PRIMARY KEY,
		box_id TEXT NOT NULL,
		label TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		placeholder TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		associations TEXT NOT NULL DEFAULT '[]',
		coach_notes TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		FOREIGN KEY (box_id) REFERENCES box(id)
	);
	`

// ErrNotFound is wrapped by every store when a box-scoped lookup matches no row.
var ErrNotFound = errors.New("record not found")

// NullString maps "" to SQL NULL for optional foreign keys.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
