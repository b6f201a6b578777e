package savedsection

import (
	"context"

	domain "boxdesk/internal/domain/planner"
)

// Store persists a box's saved planner sections.
type Store interface {
	ListByBox(ctx context.Context, boxID string) ([]domain.SavedSection, error)
	Save(ctx context.Context, value domain.SavedSection) error
	Delete(ctx context.Context, boxID, id string) error
}
