package storage

import (
	"database/sql"
	"fmt"
	"log/slog"

	"boxdesk/internal/domain/planner"
)

// migrations are applied in order; index i brings the schema to version i+1.
// Append only: never edit a migration that has shipped.
var migrations = []func(tx *sql.Tx) error{
	func(tx *sql.Tx) error {
		_, err := tx.Exec(Schema)
		return err
	},
	addSavedSectionLabelKey,
}

// addSavedSectionLabelKey makes the normalized label unique per box. SQLite's
// lower() only folds ASCII, so keys are computed with planner.NormalizeLabel.
// Duplicates already stored keep the first-saved row, as the library does on read.
func addSavedSectionLabelKey(tx *sql.Tx) error {
	if _, err := tx.Exec("ALTER TABLE saved_section ADD COLUMN label_key TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	rows, err := tx.Query("SELECT rowid, box_id, label FROM saved_section ORDER BY rowid")
	if err != nil {
		return err
	}
	type row struct {
		rowid        int64
		boxID, label string
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.rowid, &r.boxID, &r.label); err != nil {
			rows.Close()
			return err
		}
		all = append(all, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	seen := make(map[[2]string]bool, len(all))
	for _, r := range all {
		key := planner.NormalizeLabel(r.label)
		if seen[[2]string{r.boxID, key}] {
			if _, err := tx.Exec("DELETE FROM saved_section WHERE rowid = ?", r.rowid); err != nil {
				return err
			}
			continue
		}
		seen[[2]string{r.boxID, key}] = true
		if _, err := tx.Exec("UPDATE saved_section SET label_key = ? WHERE rowid = ?", key, r.rowid); err != nil {
			return err
		}
	}
	_, err = tx.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_saved_section_box_label ON saved_section(box_id, label_key)")
	return err
}

// LatestSchemaVersion is the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return len(migrations)
}

// SchemaVersion returns the applied schema version (0 for a fresh database).
func SchemaVersion(db *sql.DB) (int, error) {
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return 0, fmt.Errorf("failed to create schema_version: %w", err)
	}
	var v sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema_version: %w", err)
	}
	return int(v.Int64), nil
}

// MigrateDB enables SQLite pragmas and applies pending migrations, one transaction each.
// PRE: db is a valid SQLite connection
// POST: SchemaVersion(db) == LatestSchemaVersion()
func MigrateDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	for v := current; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: begin: %w", v+1, err)
		}
		if err := migrations[v](tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", v+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: record version: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", v+1, err)
		}
		slog.Info("migration_event", "event", "applied", "version", v+1)
	}
	return nil
}
