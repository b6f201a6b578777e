package room

import (
	"context"

	domain "boxdesk/internal/domain/room"
)

// Store persists Room state. Every call is scoped to one box.
type Store interface {
	GetByID(ctx context.Context, boxID, id string) (domain.Room, error)
	Save(ctx context.Context, value domain.Room) error
	Delete(ctx context.Context, boxID, id string) error
	ListByBox(ctx context.Context, boxID string) ([]domain.Room, error)
}
