// Package scheduling owns one staff member's working session on the weekly
// calendar: the room-grouped board, its change tracker, and the save cycle.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"boxdesk/internal/adapters/notify"
	"boxdesk/internal/application/orchestrators"
	"boxdesk/internal/domain/classtype"
	"boxdesk/internal/domain/coach"
	"boxdesk/internal/domain/room"
	"boxdesk/internal/domain/schedule"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrFetchWeek wraps any failure loading the week; the caller may retry.
	ErrFetchWeek        = errors.New("could not load the week")
	ErrNotLoaded        = errors.New("no week is loaded")
	ErrUnknownClassType = errors.New("class type not found")
	ErrUnknownCoach     = errors.New("coach not found")
)

// reloadTimeout bounds the recovery fetch after a commit, which runs even if the request was cancelled.
const reloadTimeout = 30 * time.Second

// Stores are the box-scoped reads and writes the session needs.
type Stores struct {
	Rooms interface {
		ListByBox(ctx context.Context, boxID string) ([]room.Room, error)
	}
	ClassTypes interface {
		ListByBox(ctx context.Context, boxID string) ([]classtype.ClassType, error)
	}
	Coaches interface {
		ListByBox(ctx context.Context, boxID string) ([]coach.Coach, error)
	}
	Instances interface {
		ListInRange(ctx context.Context, boxID string, from, to time.Time) ([]schedule.Instance, error)
		orchestrators.InstanceStoreForCommit
	}
}

// Options configure a Session. Zero values pick sensible defaults.
type Options struct {
	Location *time.Location
	Now      func() time.Time
	NewID    func() string
	Notifier notify.Notifier
}

// Session is the server-held working state for one signed-in staff member.
// All methods are safe for concurrent use; structural changes are atomic under mu.
type Session struct {
	boxID    string
	stores   Stores
	loc      *time.Location
	now      func() time.Time
	newID    func() string
	notifier notify.Notifier

	commits singleflight.Group

	mu         sync.Mutex
	loaded     bool
	from, to   time.Time
	rooms      []room.Room
	classTypes []classtype.ClassType
	coaches    []coach.Coach
	tracker    *schedule.Tracker
	board      *schedule.Board
}

// NewSession creates an unloaded session for boxID.
func NewSession(boxID string, stores Stores, opts Options) *Session {
	s := &Session{
		boxID:    boxID,
		stores:   stores,
		loc:      opts.Location,
		now:      opts.Now,
		newID:    opts.NewID,
		notifier: opts.Notifier,
		tracker:  schedule.NewTracker(nil),
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.notifier == nil {
		s.notifier = notify.Fanout{}
	}
	return s
}

// BoxID is the tenant this session is scoped to.
func (s *Session) BoxID() string { return s.boxID }

// Location is the display time zone.
func (s *Session) Location() *time.Location { return s.loc }

// fetched is one consistent read of a week, built without touching session state.
type fetched struct {
	from, to   time.Time
	rooms      []room.Room
	classTypes []classtype.ClassType
	coaches    []coach.Coach
	events     []schedule.Event
}

func (s *Session) fetch(ctx context.Context, anchor time.Time) (fetched, error) {
	from, to := schedule.WeekRange(anchor, s.loc)
	f := fetched{from: from, to: to}

	var err error
	if f.rooms, err = s.stores.Rooms.ListByBox(ctx, s.boxID); err != nil {
		return fetched{}, fmt.Errorf("%w: rooms: %w", ErrFetchWeek, err)
	}
	if f.classTypes, err = s.stores.ClassTypes.ListByBox(ctx, s.boxID); err != nil {
		return fetched{}, fmt.Errorf("%w: class types: %w", ErrFetchWeek, err)
	}
	if f.coaches, err = s.stores.Coaches.ListByBox(ctx, s.boxID); err != nil {
		return fetched{}, fmt.Errorf("%w: coaches: %w", ErrFetchWeek, err)
	}
	instances, err := s.stores.Instances.ListInRange(ctx, s.boxID, from, to)
	if err != nil {
		return fetched{}, fmt.Errorf("%w: class instances: %w", ErrFetchWeek, err)
	}

	byID := make(map[string]classtype.ClassType, len(f.classTypes))
	for _, ct := range f.classTypes {
		byID[ct.ID] = ct
	}
	f.events = make([]schedule.Event, 0, len(instances))
	for _, inst := range instances {
		ct, ok := byID[inst.ClassTypeID]
		if !ok {
			slog.Warn("schedule_event", "event", "unknown_class_type", "box_id", s.boxID, "event_id", inst.ID, "class_type_id", inst.ClassTypeID)
		}
		e := inst.Event(ct.Name, ct.DisplayColor())
		e.Start = e.Start.In(s.loc)
		e.End = e.End.In(s.loc)
		f.events = append(f.events, e)
	}
	return f, nil
}

// install replaces all working state with f and clears staging. Caller holds mu.
func (s *Session) install(f fetched) {
	roomIDs := make([]string, len(f.rooms))
	for i, r := range f.rooms {
		roomIDs[i] = r.ID
	}
	s.tracker.Reset(f.events)
	board, orphans := schedule.NewBoard(roomIDs, f.events, s.tracker)
	for _, o := range orphans {
		slog.Warn("schedule_event", "event", "orphan_dropped", "box_id", s.boxID, "event_id", o.ID, "room_id", o.RoomID)
	}
	s.from, s.to = f.from, f.to
	s.rooms, s.classTypes, s.coaches = f.rooms, f.classTypes, f.coaches
	s.board = board
	s.loaded = true
}

// unload drops the board after a failed recovery fetch so no stale state is shown.
func (s *Session) unload() {
	s.tracker.Reset(nil)
	s.board = nil
	s.loaded = false
}

// Load fetches the week containing anchor and replaces the working state.
// Unsaved changes are discarded.
// POST: on error the previous state is untouched and the error wraps ErrFetchWeek
func (s *Session) Load(ctx context.Context, anchor time.Time) (Week, error) {
	f, err := s.fetch(ctx, anchor)
	if err != nil {
		slog.Error("schedule_event", "event", "fetch_failed", "box_id", s.boxID, "error", err)
		return Week{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker.IsDirty() {
		slog.Info("schedule_event", "event", "staging_discarded", "box_id", s.boxID,
			"changed", len(s.tracker.Changed()), "deleted", len(s.tracker.Deleted()))
	}
	s.install(f)
	return s.snapshot(), nil
}

// Week returns the current working state.
func (s *Session) Week() (Week, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return Week{}, ErrNotLoaded
	}
	return s.snapshot(), nil
}

// Pending returns the staged changes.
func (s *Session) Pending() Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Pending{
		Changed: s.tracker.Changed(),
		Deleted: s.tracker.Deleted(),
		Dirty:   s.tracker.IsDirty(),
	}
}

// Commit writes the staged changes, then always re-fetches the week and clears staging.
// Concurrent calls share one in-flight commit and its result.
// POST: Pending().Dirty is false
// POST: a write failure is returned as *orchestrators.CommitError
func (s *Session) Commit(ctx context.Context) (CommitResult, error) {
	v, err, shared := s.commits.Do("commit", func() (any, error) {
		return s.commit(ctx)
	})
	if shared {
		slog.Debug("schedule_event", "event", "commit_joined", "box_id", s.boxID)
	}
	res, _ := v.(CommitResult)
	return res, err
}

func (s *Session) commit(ctx context.Context) (CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return CommitResult{}, ErrNotLoaded
	}
	if !s.tracker.IsDirty() {
		return CommitResult{}, nil
	}

	anchor := s.from
	out, commitErr := orchestrators.ExecuteCommitWeek(ctx, orchestrators.CommitWeekInput{
		BoxID:   s.boxID,
		Changed: s.tracker.Changed(),
		Deleted: s.tracker.Deleted(),
	}, orchestrators.CommitWeekDeps{InstanceStore: s.stores.Instances})
	res := CommitResult{Upserted: out.Upserted, Deleted: out.Deleted}

	// Local state is untrustworthy after any commit attempt: resynchronise from the store.
	reloadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reloadTimeout)
	defer cancel()
	f, fetchErr := s.fetch(reloadCtx, anchor)
	if fetchErr != nil {
		slog.Error("schedule_event", "event", "reload_failed", "box_id", s.boxID, "error", fetchErr)
		s.unload()
	} else {
		s.install(f)
	}

	now := s.now()
	switch {
	case commitErr != nil:
		slog.Error("schedule_event", "event", "commit_failed", "box_id", s.boxID, "error", commitErr)
		s.notifier.Notify(ctx, notify.Toast{Level: notify.LevelError, Message: "Could not save the schedule. Your changes were discarded; please try again.", At: now})
		return res, commitErr
	case fetchErr != nil:
		s.notifier.Notify(ctx, notify.Toast{Level: notify.LevelError, Message: "Schedule saved, but it could not be reloaded.", At: now})
		return res, fetchErr
	}
	slog.Info("schedule_event", "event", "commit_succeeded", "box_id", s.boxID, "upserted", res.Upserted, "deleted", res.Deleted)
	s.notifier.Notify(ctx, notify.Toast{Level: notify.LevelSuccess, Message: "Schedule saved.", At: now})
	return res, nil
}
