package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"boxdesk/internal/adapters/storage"
	domain "boxdesk/internal/domain/account"
)

// SQLiteStore keeps staff accounts in the account table.
type SQLiteStore struct {
	db storage.SQLDB
}

func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const selectAccount = `SELECT id, box_id, email, password_hash, role, created_at, failed_logins, locked_until FROM account`

const upsertAccount = `
INSERT INTO account (id, box_id, email, password_hash, role, created_at, failed_logins, locked_until)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	email = excluded.email,
	password_hash = excluded.password_hash,
	role = excluded.role,
	failed_logins = excluded.failed_logins,
	locked_until = excluded.locked_until`

func (s *SQLiteStore) one(ctx context.Context, what, where string, arg any) (domain.Account, error) {
	row := s.db.QueryRowContext(ctx, selectAccount+" WHERE "+where, arg)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, fmt.Errorf("account %s: %w", what, storage.ErrNotFound)
	}
	return a, err
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Account, error) {
	return s.one(ctx, id, "id = ?", id)
}

// GetByEmail matches case-insensitively; emails are stored as typed.
func (s *SQLiteStore) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	email = domain.NormalizeEmail(email)
	return s.one(ctx, email, "lower(email) = ?", email)
}

// Save inserts or updates. box_id and created_at are fixed at insert.
func (s *SQLiteStore) Save(ctx context.Context, a domain.Account) error {
	var lockedUntil sql.NullString
	if !a.LockedUntil.IsZero() {
		lockedUntil = sql.NullString{String: storage.FormatTime(a.LockedUntil), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, upsertAccount,
		a.ID, a.BoxID, a.Email, a.PasswordHash, a.Role,
		storage.FormatTime(a.CreatedAt), a.FailedLogins, lockedUntil)
	if err != nil {
		return fmt.Errorf("save account %s: %w", a.ID, err)
	}
	return nil
}

// ListByBox returns the box's staff ordered by email.
func (s *SQLiteStore) ListByBox(ctx context.Context, boxID string) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx, selectAccount+" WHERE box_id = ? ORDER BY email", boxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (domain.Account, error) {
	var (
		a           domain.Account
		createdAt   string
		lockedUntil sql.NullString
	)
	if err := row.Scan(&a.ID, &a.BoxID, &a.Email, &a.PasswordHash, &a.Role, &createdAt, &a.FailedLogins, &lockedUntil); err != nil {
		return domain.Account{}, err
	}
	var err error
	if a.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return domain.Account{}, fmt.Errorf("account %s created_at: %w", a.ID, err)
	}
	if lockedUntil.Valid {
		if a.LockedUntil, err = storage.ParseTime(lockedUntil.String); err != nil {
			return domain.Account{}, fmt.Errorf("account %s locked_until: %w", a.ID, err)
		}
	}
	return a, nil
}
