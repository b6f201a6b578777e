package classtype

import (
	"context"

	domain "boxdesk/internal/domain/classtype"
)

// Store persists ClassType state. Every call is scoped to one box.
type Store interface {
	GetByID(ctx context.Context, boxID, id string) (domain.ClassType, error)
	Save(ctx context.Context, value domain.ClassType) error
	Delete(ctx context.Context, boxID, id string) error
	ListByBox(ctx context.Context, boxID string) ([]domain.ClassType, error)
}
