package schedule

import (
	"context"
	"time"

	domain "boxdesk/internal/domain/schedule"
)

// InstanceStore persists class instances. Every call is scoped to one box.
type InstanceStore interface {
	GetByID(ctx context.Context, boxID, id string) (domain.Instance, error)
	// ListInRange returns instances whose start lies in [from, to].
	ListInRange(ctx context.Context, boxID string, from, to time.Time) ([]domain.Instance, error)
	// Upsert writes the whole row in one statement, keyed by ID.
	Upsert(ctx context.Context, value domain.Instance) error
	Delete(ctx context.Context, boxID, id string) error
}
