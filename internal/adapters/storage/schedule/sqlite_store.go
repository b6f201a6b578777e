package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"boxdesk/internal/adapters/storage"
	domain "boxdesk/internal/domain/schedule"
)

// SQLiteStore implements InstanceStore using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new InstanceStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const instanceColumns = "id, box_id, room_id, class_type_id, coach_id, starts_at, duration_minutes, capacity, created_at"

func scanInstance(scan func(dest ...any) error) (domain.Instance, error) {
	var i domain.Instance
	var coachID sql.NullString
	var startsAt, createdAt string
	if err := scan(&i.ID, &i.BoxID, &i.RoomID, &i.ClassTypeID, &coachID, &startsAt, &i.DurationMinutes, &i.Capacity, &createdAt); err != nil {
		return domain.Instance{}, err
	}
	i.CoachID = coachID.String
	var err error
	if i.StartsAt, err = storage.ParseTime(startsAt); err != nil {
		return domain.Instance{}, fmt.Errorf("instance %s starts_at: %w", i.ID, err)
	}
	if i.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return domain.Instance{}, fmt.Errorf("instance %s created_at: %w", i.ID, err)
	}
	return i, nil
}

// GetByID retrieves one instance.
// PRE: boxID and id are non-empty
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, boxID, id string) (domain.Instance, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+instanceColumns+" FROM class_instance WHERE box_id = ? AND id = ?", boxID, id)
	i, err := scanInstance(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Instance{}, fmt.Errorf("class instance %s: %w", id, storage.ErrNotFound)
	}
	return i, err
}

// ListInRange retrieves a box's instances starting within [from, to], earliest first.
// PRE: from <= to
// POST: Returns instances ordered by starts_at
func (s *SQLiteStore) ListInRange(ctx context.Context, boxID string, from, to time.Time) ([]domain.Instance, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+instanceColumns+" FROM class_instance WHERE box_id = ? AND starts_at >= ? AND starts_at <= ? ORDER BY starts_at, created_at",
		boxID, storage.FormatTime(from), storage.FormatTime(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Instance
	for rows.Next() {
		i, err := scanInstance(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, i)
	}
	return results, rows.Err()
}

// Upsert inserts or fully replaces an instance in a single statement.
// A row belonging to another box is never overwritten.
// PRE: value.ID and value.BoxID are non-empty
// POST: the row matches value; created_at is kept from the first insert
func (s *SQLiteStore) Upsert(ctx context.Context, i domain.Instance) error {
	createdAt := i.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO class_instance (`+instanceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			room_id=excluded.room_id,
			class_type_id=excluded.class_type_id,
			coach_id=excluded.coach_id,
			starts_at=excluded.starts_at,
			duration_minutes=excluded.duration_minutes,
			capacity=excluded.capacity
		WHERE class_instance.box_id = excluded.box_id`,
		i.ID, i.BoxID, i.RoomID, i.ClassTypeID, storage.NullString(i.CoachID),
		storage.FormatTime(i.StartsAt), i.DurationMinutes, i.Capacity, storage.FormatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("upsert class instance %s: %w", i.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("upsert class instance %s: %w", i.ID, storage.ErrNotFound)
	}
	return nil
}

// Delete removes an instance. Deleting a missing row is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, boxID, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM class_instance WHERE box_id = ? AND id = ?", boxID, id); err != nil {
		return fmt.Errorf("delete class instance %s: %w", id, err)
	}
	return nil
}
