package box

import (
	"context"

	domain "boxdesk/internal/domain/box"
)

// Store persists Box state.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Box, error)
	Save(ctx context.Context, value domain.Box) error
	List(ctx context.Context) ([]domain.Box, error)
}
