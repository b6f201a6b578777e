package room

import (
	"context"
	"database/sql"
	"fmt"

	"boxdesk/internal/adapters/storage"
	domain "boxdesk/internal/domain/room"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new RoomStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const roomColumns = "id, box_id, name, color, created_at"

func scanRoom(scan func(dest ...any) error) (domain.Room, error) {
	var r domain.Room
	var createdAt string
	if err := scan(&r.ID, &r.BoxID, &r.Name, &r.Color, &createdAt); err != nil {
		return domain.Room{}, err
	}
	t, err := storage.ParseTime(createdAt)
	if err != nil {
		return domain.Room{}, fmt.Errorf("room %s created_at: %w", r.ID, err)
	}
	r.CreatedAt = t
	return r, nil
}

// GetByID retrieves a Room by its ID within a box.
// PRE: boxID and id are non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, boxID, id string) (domain.Room, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM room WHERE box_id = ? AND id = ?", boxID, id)
	r, err := scanRoom(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Room{}, fmt.Errorf("room %s: %w", id, storage.ErrNotFound)
	}
	return r, err
}

// Save persists a Room to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update within its box)
func (s *SQLiteStore) Save(ctx context.Context, r domain.Room) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO room (id, box_id, name, color, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, color=excluded.color
		WHERE room.box_id = excluded.box_id`,
		r.ID, r.BoxID, r.Name, r.Color, storage.FormatTime(r.CreatedAt),
	)
	return err
}

// Delete removes a Room from its box.
func (s *SQLiteStore) Delete(ctx context.Context, boxID, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM room WHERE box_id = ? AND id = ?", boxID, id)
	return err
}

// ListByBox retrieves a box's rooms in creation order.
// PRE: boxID is non-empty
// POST: Returns rooms ordered by created_at, then name
func (s *SQLiteStore) ListByBox(ctx context.Context, boxID string) ([]domain.Room, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+roomColumns+" FROM room WHERE box_id = ? ORDER BY created_at, name", boxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Room
	for rows.Next() {
		r, err := scanRoom(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
