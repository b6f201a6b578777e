package coach

import (
	"context"
	"fmt"

	"boxdesk/internal/adapters/storage"
	domain "boxdesk/internal/domain/coach"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new CoachStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists a Coach.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, c domain.Coach) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO coach (id, box_id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, email=excluded.email, role=excluded.role
		WHERE coach.box_id = excluded.box_id`,
		c.ID, c.BoxID, c.Name, c.Email, c.Role, storage.FormatTime(c.CreatedAt),
	)
	return err
}

// Delete removes a Coach from its box.
func (s *SQLiteStore) Delete(ctx context.Context, boxID, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM coach WHERE box_id = ? AND id = ?", boxID, id)
	return err
}

// ListByBox retrieves a box's coaching staff ordered by name.
func (s *SQLiteStore) ListByBox(ctx context.Context, boxID string) ([]domain.Coach, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, box_id, name, email, role, created_at FROM coach WHERE box_id = ? ORDER BY name", boxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Coach
	for rows.Next() {
		var c domain.Coach
		var createdAt string
		if err := rows.Scan(&c.ID, &c.BoxID, &c.Name, &c.Email, &c.Role, &createdAt); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("coach %s created_at: %w", c.ID, err)
		}
		results = append(results, c)
	}
	return results, rows.Err()
}
