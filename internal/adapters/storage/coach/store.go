package coach

import (
	"context"

	domain "boxdesk/internal/domain/coach"
)

// Store persists coaching staff.
type Store interface {
	Save(ctx context.Context, value domain.Coach) error
	Delete(ctx context.Context, boxID, id string) error
	ListByBox(ctx context.Context, boxID string) ([]domain.Coach, error)
}
