package box

import (
	"context"
	"database/sql"
	"fmt"

	"boxdesk/internal/adapters/storage"
	domain "boxdesk/internal/domain/box"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new BoxStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Box by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Box, error) {
	var b domain.Box
	err := s.db.QueryRowContext(ctx, "SELECT id, name, timezone FROM box WHERE id = ?", id).Scan(&b.ID, &b.Name, &b.Timezone)
	if err == sql.ErrNoRows {
		return domain.Box{}, fmt.Errorf("box %s: %w", id, storage.ErrNotFound)
	}
	return b, err
}

// Save persists a Box to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, b domain.Box) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO box (id, name, timezone) VALUES (?, ?, ?) ON CONFLICT(id) DO UPDATE SET name=excluded.name, timezone=excluded.timezone",
		b.ID, b.Name, b.Timezone,
	)
	return err
}

// List retrieves all boxes ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Box, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, timezone FROM box ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Box
	for rows.Next() {
		var b domain.Box
		if err := rows.Scan(&b.ID, &b.Name, &b.Timezone); err != nil {
			return nil, err
		}
		results = append(results, b)
	}
	return results, rows.Err()
}
