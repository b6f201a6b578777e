package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"boxdesk/internal/domain/schedule"
)

// InstanceStoreForCommit defines the store interface needed by CommitWeek.
type InstanceStoreForCommit interface {
	Upsert(ctx context.Context, value schedule.Instance) error
	Delete(ctx context.Context, boxID, id string) error
}

// CommitWeekInput carries the staged working-session changes.
type CommitWeekInput struct {
	BoxID   string
	Changed []schedule.Event
	Deleted []string
}

// CommitWeekDeps holds dependencies for CommitWeek.
type CommitWeekDeps struct {
	InstanceStore InstanceStoreForCommit
}

// CommitWeekResult counts the writes that landed.
type CommitWeekResult struct {
	Upserted int
	Deleted  int
}

// Commit operations reported in CommitError.Op.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// CommitError reports the first write that failed. Writes before it have landed.
type CommitError struct {
	Op      string
	EventID string
	Applied int
	Err     error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s %s failed after %d writes: %v", e.Op, e.EventID, e.Applied, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// ExecuteCommitWeek writes staged events and deletions, one call per row.
// PRE: input.BoxID is the caller's box; Changed and Deleted are disjoint
// POST: on success every upsert then every delete has been applied
// POST: on failure the remaining writes are skipped and a *CommitError is returned
func ExecuteCommitWeek(ctx context.Context, input CommitWeekInput, deps CommitWeekDeps) (CommitWeekResult, error) {
	var res CommitWeekResult
	applied := func() int { return res.Upserted + res.Deleted }

	for _, e := range input.Changed {
		if err := ctx.Err(); err != nil {
			return res, &CommitError{Op: OpUpsert, EventID: e.ID, Applied: applied(), Err: err}
		}
		if err := e.Validate(); err != nil {
			return res, &CommitError{Op: OpUpsert, EventID: e.ID, Applied: applied(), Err: err}
		}
		if err := deps.InstanceStore.Upsert(ctx, schedule.InstanceFromEvent(input.BoxID, e)); err != nil {
			slog.Error("schedule_event", "event", "commit_upsert_failed", "box_id", input.BoxID, "event_id", e.ID, "applied", applied(), "error", err)
			return res, &CommitError{Op: OpUpsert, EventID: e.ID, Applied: applied(), Err: err}
		}
		res.Upserted++
	}

	for _, id := range input.Deleted {
		if err := ctx.Err(); err != nil {
			return res, &CommitError{Op: OpDelete, EventID: id, Applied: applied(), Err: err}
		}
		if err := deps.InstanceStore.Delete(ctx, input.BoxID, id); err != nil {
			slog.Error("schedule_event", "event", "commit_delete_failed", "box_id", input.BoxID, "event_id", id, "applied", applied(), "error", err)
			return res, &CommitError{Op: OpDelete, EventID: id, Applied: applied(), Err: err}
		}
		res.Deleted++
	}

	slog.Info("schedule_event", "event", "commit_applied", "box_id", input.BoxID, "upserted", res.Upserted, "deleted", res.Deleted)
	return res, nil
}
