// Package storagetest opens migrated in-memory SQLite databases for store tests.
package storagetest

import (
	"database/sql"
	"testing"
	"time"

	"boxdesk/internal/adapters/storage"

	_ "modernc.org/sqlite"
)

// Open returns a migrated in-memory database closed at test cleanup.
// A single connection keeps every query on the same in-memory database.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

// Exec runs fixture SQL, failing the test on error.
func Exec(t testing.TB, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("fixture %q: %v", query, err)
	}
}

// SeedBox inserts a box with one room and one class type: "<box>-room", "<box>-wod".
func SeedBox(t testing.TB, db *sql.DB, boxID string) {
	t.Helper()
	now := storage.FormatTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	Exec(t, db, "INSERT INTO box (id, name, timezone) VALUES (?, ?, ?)", boxID, boxID, "America/Sao_Paulo")
	Exec(t, db, "INSERT INTO room (id, box_id, name, color, created_at) VALUES (?, ?, ?, '', ?)", boxID+"-room", boxID, "Main Floor", now)
	Exec(t, db, "INSERT INTO class_type (id, box_id, name, color, default_duration_minutes, default_capacity, created_at) VALUES (?, ?, 'WOD', '#e53935', 60, 15, ?)", boxID+"-wod", boxID, now)
}
