package account

import (
	"context"

	domain "boxdesk/internal/domain/account"
)

// Store persists staff login accounts.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	Save(ctx context.Context, value domain.Account) error
	ListByBox(ctx context.Context, boxID string) ([]domain.Account, error)
}
