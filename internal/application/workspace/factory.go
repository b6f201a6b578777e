package workspace

import (
	"context"
	"fmt"
	"time"

	"boxdesk/internal/adapters/email"
	"boxdesk/internal/adapters/notify"
	"boxdesk/internal/application/planning"
	"boxdesk/internal/application/scheduling"
	"boxdesk/internal/domain/box"
)

// FactoryDeps holds what every new workspace is built from.
type FactoryDeps struct {
	Boxes interface {
		GetByID(ctx context.Context, id string) (box.Box, error)
	}
	Schedule scheduling.Stores
	Planning *planning.Service

	// Location is used when the box has no time zone of its own.
	Location *time.Location
	Now      func() time.Time

	// Alerts receives commit failures by email when both are set.
	AlertSender email.Sender
	AlertsTo    []string
	ToastBuffer int
}

// NewFactory returns a Factory that builds an unloaded workspace in the box's time zone.
func NewFactory(deps FactoryDeps) Factory {
	return func(ctx context.Context, boxID string) (*Workspace, error) {
		b, err := deps.Boxes.GetByID(ctx, boxID)
		if err != nil {
			return nil, fmt.Errorf("load box %s: %w", boxID, err)
		}
		toasts := notify.NewToastBuffer(deps.ToastBuffer)
		notifier := notify.Fanout{toasts}
		if alerts := notify.NewEmailAlerts(deps.AlertSender, deps.AlertsTo, b.Name); alerts != nil {
			notifier = append(notifier, alerts)
		}
		return &Workspace{
			BoxID: boxID,
			Schedule: scheduling.NewSession(boxID, deps.Schedule, scheduling.Options{
				Location: b.Location(deps.Location),
				Now:      deps.Now,
				Notifier: notifier,
			}),
			Planner: deps.Planning.NewPlanner(boxID),
			Toasts:  toasts,
		}, nil
	}
}
