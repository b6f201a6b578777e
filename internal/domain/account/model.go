package account

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Roles. Members never sign in to the dashboard, only box staff.
const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

const (
	MinPasswordLength = 12
	MaxFailedLogins   = 5
	LockoutDuration   = 15 * time.Minute

	bcryptCost = 12
)

var (
	ErrEmptyBoxID       = errors.New("account must belong to a box")
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrInvalidEmail     = errors.New("email is not a valid address")
	ErrInvalidRole      = errors.New("role must be owner or staff")
	ErrPasswordTooShort = errors.New("password must be at least 12 characters")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrLocked           = errors.New("account is temporarily locked")
)

// Account is a staff login. It can only see and edit its own box.
type Account struct {
	ID           string
	BoxID        string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time

	// Lockout state, persisted so a restart does not reset it.
	FailedLogins int
	LockedUntil  time.Time
}

// NormalizeEmail is the form emails are compared in.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (a Account) Validate() error {
	switch {
	case strings.TrimSpace(a.BoxID) == "":
		return ErrEmptyBoxID
	case strings.TrimSpace(a.Email) == "":
		return ErrEmptyEmail
	case a.Role != RoleOwner && a.Role != RoleStaff:
		return ErrInvalidRole
	}
	addr, err := mail.ParseAddress(a.Email)
	if err != nil || addr.Address != strings.TrimSpace(a.Email) {
		return ErrInvalidEmail
	}
	return nil
}

// SetPassword replaces the stored hash.
// PRE: len(plaintext) >= MinPasswordLength
func (a *Account) SetPassword(plaintext string) error {
	if len(plaintext) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return err
	}
	a.PasswordHash = string(hash)
	return nil
}

// LockedAt reports whether sign-in is refused at now.
func (a Account) LockedAt(now time.Time) bool {
	return now.Before(a.LockedUntil)
}

// Authenticate applies one sign-in attempt made at now.
// POST: a wrong password bumps FailedLogins and locks the account for
// LockoutDuration on reaching MaxFailedLogins; a right one clears both
// changed is true whenever the lockout fields moved and need saving
func (a *Account) Authenticate(plaintext string, now time.Time) (changed bool, err error) {
	if a.LockedAt(now) {
		return false, ErrLocked
	}
	if a.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(plaintext)) != nil {
		a.FailedLogins++
		if a.FailedLogins >= MaxFailedLogins {
			a.LockedUntil = now.Add(LockoutDuration)
			a.FailedLogins = 0
		}
		return true, ErrWrongPassword
	}
	if a.FailedLogins == 0 && a.LockedUntil.IsZero() {
		return false, nil
	}
	a.FailedLogins = 0
	a.LockedUntil = time.Time{}
	return true, nil
}
