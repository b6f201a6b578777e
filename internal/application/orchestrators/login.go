package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"boxdesk/internal/domain/account"
)

// AccountStoreForLogin is the slice of the account store sign-in needs.
type AccountStoreForLogin interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is what the session is built from.
type LoginResult struct {
	AccountID string
	BoxID     string
	Email     string
	Role      string
}

type LoginDeps struct {
	AccountStore AccountStoreForLogin
	Now          func() time.Time
}

// Unknown emails and wrong passwords share ErrInvalidCredentials so the
// response does not reveal which staff emails exist.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("too many failed attempts; try again later")
)

// ExecuteLogin checks a staff member's credentials.
// PRE: none; blank fields are rejected as invalid credentials
// POST: lockout counters are saved whenever the attempt moved them
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	email := account.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	acct, err := deps.AccountStore.GetByEmail(ctx, email)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "unknown_email")
		return LoginResult{}, ErrInvalidCredentials
	}

	changed, authErr := acct.Authenticate(input.Password, now())
	if changed {
		if err := deps.AccountStore.Save(ctx, acct); err != nil {
			slog.Error("auth_event", "event", "lockout_save_failed", "account_id", acct.ID, "error", err)
		}
	}
	switch {
	case errors.Is(authErr, account.ErrLocked):
		slog.Warn("auth_event", "event", "login_blocked", "email", email, "locked_until", acct.LockedUntil)
		return LoginResult{}, ErrAccountLocked
	case authErr != nil:
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "wrong_password",
			"failed_logins", acct.FailedLogins, "locked", acct.LockedAt(now()))
		return LoginResult{}, ErrInvalidCredentials
	}

	slog.Info("auth_event", "event", "login_success", "account_id", acct.ID, "box_id", acct.BoxID, "role", acct.Role)
	return LoginResult{AccountID: acct.ID, BoxID: acct.BoxID, Email: acct.Email, Role: acct.Role}, nil
}
