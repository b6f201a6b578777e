package classtype

import (
	"context"
	"database/sql"
	"fmt"

	"boxdesk/internal/adapters/storage"
	domain "boxdesk/internal/domain/classtype"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new ClassTypeStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const classTypeColumns = "id, box_id, name, color, default_duration_minutes, default_capacity, created_at"

func scanClassType(scan func(dest ...any) error) (domain.ClassType, error) {
	var c domain.ClassType
	var createdAt string
	if err := scan(&c.ID, &c.BoxID, &c.Name, &c.Color, &c.DefaultDurationMinutes, &c.DefaultCapacity, &createdAt); err != nil {
		return domain.ClassType{}, err
	}
	t, err := storage.ParseTime(createdAt)
	if err != nil {
		return domain.ClassType{}, fmt.Errorf("class type %s created_at: %w", c.ID, err)
	}
	c.CreatedAt = t
	return c, nil
}

// GetByID retrieves a ClassType by its ID.
// PRE: boxID and id are non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, boxID, id string) (domain.ClassType, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+classTypeColumns+" FROM class_type WHERE box_id = ? AND id = ?", boxID, id)
	c, err := scanClassType(row.Scan)
	if err == sql.ErrNoRows {
		return domain.ClassType{}, fmt.Errorf("class type %s: %w", id, storage.ErrNotFound)
	}
	return c, err
}

// Save persists a ClassType to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, c domain.ClassType) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO class_type (`+classTypeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, color=excluded.color,
			default_duration_minutes=excluded.default_duration_minutes, default_capacity=excluded.default_capacity
		WHERE class_type.box_id = excluded.box_id`,
		c.ID, c.BoxID, c.Name, c.Color, c.DefaultDurationMinutes, c.DefaultCapacity, storage.FormatTime(c.CreatedAt),
	)
	return err
}

// Delete removes a ClassType from the database.
// PRE: id is non-empty
// POST: Entity with given id is removed
func (s *SQLiteStore) Delete(ctx context.Context, boxID, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM class_type WHERE box_id = ? AND id = ?", boxID, id)
	return err
}

// ListByBox retrieves a box's class types ordered by name.
func (s *SQLiteStore) ListByBox(ctx context.Context, boxID string) ([]domain.ClassType, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+classTypeColumns+" FROM class_type WHERE box_id = ? ORDER BY name", boxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ClassType
	for rows.Next() {
		c, err := scanClassType(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}
