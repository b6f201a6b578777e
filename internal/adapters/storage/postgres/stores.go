package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"boxdesk/internal/adapters/storage"
	"boxdesk/internal/domain/account"
	"boxdesk/internal/domain/box"
	"boxdesk/internal/domain/classtype"
	"boxdesk/internal/domain/coach"
	"boxdesk/internal/domain/planner"
	"boxdesk/internal/domain/room"
	"boxdesk/internal/domain/schedule"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BoxStore persists boxes.
type BoxStore struct{ pool *pgxpool.Pool }

// NewBoxStore creates a BoxStore.
func NewBoxStore(pool *pgxpool.Pool) *BoxStore { return &BoxStore{pool: pool} }

// GetByID retrieves a box.
func (s *BoxStore) GetByID(ctx context.Context, id string) (box.Box, error) {
	var b box.Box
	err := s.pool.QueryRow(ctx, "SELECT id, name, timezone FROM box WHERE id = $1", id).Scan(&b.ID, &b.Name, &b.Timezone)
	if err != nil {
		return box.Box{}, notFound(err, "box", id)
	}
	return b, nil
}

// Save inserts or updates a box.
func (s *BoxStore) Save(ctx context.Context, b box.Box) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO box (id, name, timezone) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, timezone = EXCLUDED.timezone`,
		b.ID, b.Name, b.Timezone)
	return err
}

// List retrieves all boxes ordered by name.
func (s *BoxStore) List(ctx context.Context) ([]box.Box, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, timezone FROM box ORDER BY name")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (box.Box, error) {
		var b box.Box
		err := r.Scan(&b.ID, &b.Name, &b.Timezone)
		return b, err
	})
}

// AccountStore persists staff accounts.
type AccountStore struct{ pool *pgxpool.Pool }

// NewAccountStore creates an AccountStore.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore { return &AccountStore{pool: pool} }

const accountColumns = "id, box_id, email, password_hash, role, created_at, failed_logins, locked_until"

func scanAccount(row pgx.Row) (account.Account, error) {
	var a account.Account
	var lockedUntil *time.Time
	if err := row.Scan(&a.ID, &a.BoxID, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt, &a.FailedLogins, &lockedUntil); err != nil {
		return account.Account{}, err
	}
	if lockedUntil != nil {
		a.LockedUntil = *lockedUntil
	}
	return a, nil
}

// GetByID retrieves an account.
func (s *AccountStore) GetByID(ctx context.Context, id string) (account.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, "SELECT "+accountColumns+" FROM account WHERE id = $1", id))
	if err != nil {
		return account.Account{}, notFound(err, "account", id)
	}
	return a, nil
}

// GetByEmail retrieves an account by email, case-insensitively.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (account.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, "SELECT "+accountColumns+" FROM account WHERE lower(email) = lower(trim($1))", email))
	if err != nil {
		return account.Account{}, notFound(err, "account", email)
	}
	return a, nil
}

// Save inserts or updates an account.
func (s *AccountStore) Save(ctx context.Context, a account.Account) error {
	var lockedUntil *time.Time
	if !a.LockedUntil.IsZero() {
		lockedUntil = &a.LockedUntil
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO account (`+accountColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role, failed_logins = EXCLUDED.failed_logins, locked_until = EXCLUDED.locked_until`,
		a.ID, a.BoxID, a.Email, a.PasswordHash, a.Role, a.CreatedAt, a.FailedLogins, lockedUntil)
	return err
}

// ListByBox retrieves a box's accounts ordered by email.
func (s *AccountStore) ListByBox(ctx context.Context, boxID string) ([]account.Account, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+accountColumns+" FROM account WHERE box_id = $1 ORDER BY email", boxID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (account.Account, error) { return scanAccount(r) })
}

// RoomStore persists rooms.
type RoomStore struct{ pool *pgxpool.Pool }

// NewRoomStore creates a RoomStore.
func NewRoomStore(pool *pgxpool.Pool) *RoomStore { return &RoomStore{pool: pool} }

func scanRoom(row pgx.Row) (room.Room, error) {
	var r room.Room
	err := row.Scan(&r.ID, &r.BoxID, &r.Name, &r.Color, &r.CreatedAt)
	return r, err
}

// GetByID retrieves a room within a box.
func (s *RoomStore) GetByID(ctx context.Context, boxID, id string) (room.Room, error) {
	r, err := scanRoom(s.pool.QueryRow(ctx, "SELECT id, box_id, name, color, created_at FROM room WHERE box_id = $1 AND id = $2", boxID, id))
	if err != nil {
		return room.Room{}, notFound(err, "room", id)
	}
	return r, nil
}

// Save inserts or updates a room within its box.
func (s *RoomStore) Save(ctx context.Context, r room.Room) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO room (id, box_id, name, color, created_at) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, color = EXCLUDED.color
		WHERE room.box_id = EXCLUDED.box_id`,
		r.ID, r.BoxID, r.Name, r.Color, r.CreatedAt)
	return err
}

// Delete removes a room from its box.
func (s *RoomStore) Delete(ctx context.Context, boxID, id string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM room WHERE box_id = $1 AND id = $2", boxID, id)
	return err
}

// ListByBox retrieves a box's rooms in creation order.
func (s *RoomStore) ListByBox(ctx context.Context, boxID string) ([]room.Room, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, box_id, name, color, created_at FROM room WHERE box_id = $1 ORDER BY created_at, name", boxID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (room.Room, error) { return scanRoom(r) })
}

// ClassTypeStore persists class types.
type ClassTypeStore struct{ pool *pgxpool.Pool }

// NewClassTypeStore creates a ClassTypeStore.
func NewClassTypeStore(pool *pgxpool.Pool) *ClassTypeStore { return &ClassTypeStore{pool: pool} }

const classTypeColumns = "id, box_id, name, color, default_duration_minutes, default_capacity, created_at"

func scanClassType(row pgx.Row) (classtype.ClassType, error) {
	var c classtype.ClassType
	err := row.Scan(&c.ID, &c.BoxID, &c.Name, &c.Color, &c.DefaultDurationMinutes, &c.DefaultCapacity, &c.CreatedAt)
	return c, err
}

// GetByID retrieves a class type within a box.
func (s *ClassTypeStore) GetByID(ctx context.Context, boxID, id string) (classtype.ClassType, error) {
	c, err := scanClassType(s.pool.QueryRow(ctx, "SELECT "+classTypeColumns+" FROM class_type WHERE box_id = $1 AND id = $2", boxID, id))
	if err != nil {
		return classtype.ClassType{}, notFound(err, "class type", id)
	}
	return c, nil
}

// Save inserts or updates a class type within its box.
func (s *ClassTypeStore) Save(ctx context.Context, c classtype.ClassType) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO class_type (`+classTypeColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, color = EXCLUDED.color,
			default_duration_minutes = EXCLUDED.default_duration_minutes, default_capacity = EXCLUDED.default_capacity
		WHERE class_type.box_id = EXCLUDED.box_id`,
		c.ID, c.BoxID, c.Name, c.Color, c.DefaultDurationMinutes, c.DefaultCapacity, c.CreatedAt)
	return err
}

// Delete removes a class type from its box.
func (s *ClassTypeStore) Delete(ctx context.Context, boxID, id string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM class_type WHERE box_id = $1 AND id = $2", boxID, id)
	return err
}

// ListByBox retrieves a box's class types ordered by name.
func (s *ClassTypeStore) ListByBox(ctx context.Context, boxID string) ([]classtype.ClassType, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+classTypeColumns+" FROM class_type WHERE box_id = $1 ORDER BY name", boxID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (classtype.ClassType, error) { return scanClassType(r) })
}

// CoachStore persists coaching staff.
type CoachStore struct{ pool *pgxpool.Pool }

// NewCoachStore creates a CoachStore.
func NewCoachStore(pool *pgxpool.Pool) *CoachStore { return &CoachStore{pool: pool} }

// Save inserts or updates a coach within its box.
func (s *CoachStore) Save(ctx context.Context, c coach.Coach) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO coach (id, box_id, name, email, role, created_at) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role
		WHERE coach.box_id = EXCLUDED.box_id`,
		c.ID, c.BoxID, c.Name, c.Email, c.Role, c.CreatedAt)
	return err
}

// Delete removes a coach from its box.
func (s *CoachStore) Delete(ctx context.Context, boxID, id string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM coach WHERE box_id = $1 AND id = $2", boxID, id)
	return err
}

// ListByBox retrieves a box's coaching staff ordered by name.
func (s *CoachStore) ListByBox(ctx context.Context, boxID string) ([]coach.Coach, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, box_id, name, email, role, created_at FROM coach WHERE box_id = $1 ORDER BY name", boxID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (coach.Coach, error) {
		var c coach.Coach
		err := r.Scan(&c.ID, &c.BoxID, &c.Name, &c.Email, &c.Role, &c.CreatedAt)
		return c, err
	})
}

// InstanceStore persists class instances.
type InstanceStore struct{ pool *pgxpool.Pool }

// NewInstanceStore creates an InstanceStore.
func NewInstanceStore(pool *pgxpool.Pool) *InstanceStore { return &InstanceStore{pool: pool} }

const instanceColumns = "id, box_id, room_id, class_type_id, coach_id, starts_at, duration_minutes, capacity, created_at"

func scanInstance(row pgx.Row) (schedule.Instance, error) {
	var i schedule.Instance
	var coachID *string
	if err := row.Scan(&i.ID, &i.BoxID, &i.RoomID, &i.ClassTypeID, &coachID, &i.StartsAt, &i.DurationMinutes, &i.Capacity, &i.CreatedAt); err != nil {
		return schedule.Instance{}, err
	}
	if coachID != nil {
		i.CoachID = *coachID
	}
	return i, nil
}

// GetByID retrieves one instance within a box.
func (s *InstanceStore) GetByID(ctx context.Context, boxID, id string) (schedule.Instance, error) {
	i, err := scanInstance(s.pool.QueryRow(ctx, "SELECT "+instanceColumns+" FROM class_instance WHERE box_id = $1 AND id = $2", boxID, id))
	if err != nil {
		return schedule.Instance{}, notFound(err, "class instance", id)
	}
	return i, nil
}

// ListInRange retrieves a box's instances starting within [from, to], earliest first.
func (s *InstanceStore) ListInRange(ctx context.Context, boxID string, from, to time.Time) ([]schedule.Instance, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+instanceColumns+" FROM class_instance WHERE box_id = $1 AND starts_at BETWEEN $2 AND $3 ORDER BY starts_at, created_at",
		boxID, from, to)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (schedule.Instance, error) { return scanInstance(r) })
}

// Upsert inserts or fully replaces an instance in one statement.
// A row belonging to another box is never overwritten.
func (s *InstanceStore) Upsert(ctx context.Context, i schedule.Instance) error {
	createdAt := i.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO class_instance (`+instanceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			room_id = EXCLUDED.room_id,
			class_type_id = EXCLUDED.class_type_id,
			coach_id = EXCLUDED.coach_id,
			starts_at = EXCLUDED.starts_at,
			duration_minutes = EXCLUDED.duration_minutes,
			capacity = EXCLUDED.capacity
		WHERE class_instance.box_id = EXCLUDED.box_id`,
		i.ID, i.BoxID, i.RoomID, i.ClassTypeID, nullable(i.CoachID), i.StartsAt, i.DurationMinutes, i.Capacity, createdAt)
	if err != nil {
		return fmt.Errorf("upsert class instance %s: %w", i.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("upsert class instance %s: %w", i.ID, storage.ErrNotFound)
	}
	return nil
}

// Delete removes an instance. Deleting a missing row is not an error.
func (s *InstanceStore) Delete(ctx context.Context, boxID, id string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM class_instance WHERE box_id = $1 AND id = $2", boxID, id); err != nil {
		return fmt.Errorf("delete class instance %s: %w", id, err)
	}
	return nil
}

// SavedSectionStore persists saved planner sections with JSONB associations.
type SavedSectionStore struct{ pool *pgxpool.Pool }

// NewSavedSectionStore creates a SavedSectionStore.
func NewSavedSectionStore(pool *pgxpool.Pool) *SavedSectionStore {
	return &SavedSectionStore{pool: pool}
}

// ListByBox retrieves a box's saved sections in first-saved order.
func (s *SavedSectionStore) ListByBox(ctx context.Context, boxID string) ([]planner.SavedSection, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, box_id, label, color, placeholder, text, associations, coach_notes, updated_at FROM saved_section WHERE box_id = $1 ORDER BY seq",
		boxID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (planner.SavedSection, error) {
		var sv planner.SavedSection
		var assoc []byte
		if err := r.Scan(&sv.ID, &sv.BoxID, &sv.Label, &sv.Color, &sv.Placeholder, &sv.Text, &assoc, &sv.CoachNotes, &sv.UpdatedAt); err != nil {
			return planner.SavedSection{}, err
		}
		if err := json.Unmarshal(assoc, &sv.Associations); err != nil {
			return planner.SavedSection{}, fmt.Errorf("saved section %s associations: %w", sv.ID, err)
		}
		return sv, nil
	})
}

// Save inserts or overwrites a saved section in place; a row with the same
// normalized label keeps its ID.
func (s *SavedSectionStore) Save(ctx context.Context, sv planner.SavedSection) error {
	as := sv.Associations
	if as == nil {
		as = []planner.Association{}
	}
	assoc, err := json.Marshal(as)
	if err != nil {
		return fmt.Errorf("marshal associations: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO saved_section (id, box_id, label, label_key, color, placeholder, text, associations, coach_notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (box_id, label_key) DO UPDATE SET label = EXCLUDED.label, color = EXCLUDED.color, placeholder = EXCLUDED.placeholder,
			text = EXCLUDED.text, associations = EXCLUDED.associations, coach_notes = EXCLUDED.coach_notes,
			updated_at = EXCLUDED.updated_at`,
		sv.ID, sv.BoxID, sv.Label, planner.NormalizeLabel(sv.Label), sv.Color, sv.Placeholder, sv.Text, assoc, sv.CoachNotes, sv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save section %s: %w", sv.ID, err)
	}
	return nil
}

// Delete removes a saved section from its box.
func (s *SavedSectionStore) Delete(ctx context.Context, boxID, id string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM saved_section WHERE box_id = $1 AND id = $2", boxID, id)
	return err
}
