package savedsection

import (
	"context"
	"encoding/json"
	"fmt"

	"boxdesk/internal/adapters/storage"
	domain "boxdesk/internal/domain/planner"
)

// SQLiteStore implements Store using SQLite. Associations are stored as a JSON array.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SavedSectionStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// ListByBox retrieves a box's saved sections in the order they were first saved.
func (s *SQLiteStore) ListByBox(ctx context.Context, boxID string) ([]domain.SavedSection, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, box_id, label, color, placeholder, text, associations, coach_notes, updated_at FROM saved_section WHERE box_id = ? ORDER BY rowid",
		boxID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SavedSection
	for rows.Next() {
		var sv domain.SavedSection
		var assoc, updatedAt string
		if err := rows.Scan(&sv.ID, &sv.BoxID, &sv.Label, &sv.Color, &sv.Placeholder, &sv.Text, &assoc, &sv.CoachNotes, &updatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(assoc), &sv.Associations); err != nil {
			return nil, fmt.Errorf("saved section %s associations: %w", sv.ID, err)
		}
		if sv.UpdatedAt, err = storage.ParseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("saved section %s updated_at: %w", sv.ID, err)
		}
		results = append(results, sv)
	}
	return results, rows.Err()
}

// Save inserts or overwrites a saved section in place. A row whose label
// normalizes the same is overwritten and keeps its own ID.
// PRE: value has been validated; an existing ID is never saved under a new label
// POST: the box holds one row for NormalizeLabel(value.Label)
func (s *SQLiteStore) Save(ctx context.Context, sv domain.SavedSection) error {
	assoc, err := marshalAssociations(sv.Associations)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO saved_section (id, box_id, label, label_key, color, placeholder, text, associations, coach_notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(box_id, label_key) DO UPDATE SET label=excluded.label, color=excluded.color, placeholder=excluded.placeholder,
			text=excluded.text, associations=excluded.associations, coach_notes=excluded.coach_notes, updated_at=excluded.updated_at`,
		sv.ID, sv.BoxID, sv.Label, domain.NormalizeLabel(sv.Label), sv.Color, sv.Placeholder, sv.Text, assoc, sv.CoachNotes, storage.FormatTime(sv.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save section %s: %w", sv.ID, err)
	}
	return nil
}

// Delete removes a saved section from its box.
func (s *SQLiteStore) Delete(ctx context.Context, boxID, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM saved_section WHERE box_id = ? AND id = ?", boxID, id)
	return err
}

func marshalAssociations(as []domain.Association) (string, error) {
	if as == nil {
		as = []domain.Association{}
	}
	b, err := json.Marshal(as)
	if err != nil {
		return "", fmt.Errorf("marshal associations: %w", err)
	}
	return string(b), nil
}
