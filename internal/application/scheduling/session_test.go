package scheduling_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"boxdesk/internal/adapters/notify"
	"boxdesk/internal/application/orchestrators"
	"boxdesk/internal/application/scheduling"
	"boxdesk/internal/domain/classtype"
	"boxdesk/internal/domain/coach"
	"boxdesk/internal/domain/dnd"
	"boxdesk/internal/domain/room"
	"boxdesk/internal/domain/schedule"
)

var brt = time.FixedZone("BRT", -3*60*60)

// Wednesday 18 March 2026, 10:00; the loaded week is Mon 16 to Sun 22.
var wednesday = time.Date(2026, 3, 18, 10, 0, 0, 0, brt)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, brt)
}

var errBoom = errors.New("boom")

type fakeRefs struct {
	rooms      []room.Room
	classTypes []classtype.ClassType
	coaches    []coach.Coach
	err        error
}

type fakeRooms struct{ *fakeRefs }

func (f fakeRooms) ListByBox(_ context.Context, _ string) ([]room.Room, error) {
	return f.rooms, f.err
}

type fakeClassTypes struct{ *fakeRefs }

func (f fakeClassTypes) ListByBox(_ context.Context, _ string) ([]classtype.ClassType, error) {
	return f.classTypes, nil
}

type fakeCoaches struct{ *fakeRefs }

func (f fakeCoaches) ListByBox(_ context.Context, _ string) ([]coach.Coach, error) {
	return f.coaches, nil
}

type fakeInstances struct {
	mu           sync.Mutex
	rows         map[string]schedule.Instance
	upserts      int
	deletes      int
	failUpsertAt int // 1-based; 0 never fails
	listErr      error
	block        chan struct{}
	started      chan struct{}
}

func newFakeInstances(rows ...schedule.Instance) *fakeInstances {
	f := &fakeInstances{rows: make(map[string]schedule.Instance)}
	for _, r := range rows {
		f.rows[r.ID] = r
	}
	return f
}

func (f *fakeInstances) ListInRange(_ context.Context, boxID string, from, to time.Time) ([]schedule.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []schedule.Instance
	for _, r := range f.rows {
		if r.BoxID == boxID && !r.StartsAt.Before(from) && !r.StartsAt.After(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (f *fakeInstances) Upsert(_ context.Context, v schedule.Instance) error {
	if f.started != nil {
		close(f.started)
		f.started = nil
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.failUpsertAt > 0 && f.upserts == f.failUpsertAt {
		return errBoom
	}
	f.rows[v.ID] = v
	return nil
}

func (f *fakeInstances) Delete(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.rows, id)
	return nil
}

func instance(id, roomID string, start time.Time, minutes int) schedule.Instance {
	return schedule.Instance{ID: id, BoxID: "box-1", RoomID: roomID, ClassTypeID: "ct-wod", StartsAt: start, DurationMinutes: minutes, Capacity: 15}
}

type harness struct {
	session   *scheduling.Session
	instances *fakeInstances
	refs      *fakeRefs
	toasts    *notify.ToastBuffer
}

func newHarness(t *testing.T, rows ...schedule.Instance) harness {
	t.Helper()
	refs := &fakeRefs{
		rooms: []room.Room{
			{ID: "main", BoxID: "box-1", Name: "Main Floor"},
			{ID: "studio", BoxID: "box-1", Name: "Studio B"},
		},
		classTypes: []classtype.ClassType{
			{ID: "ct-wod", BoxID: "box-1", Name: "WOD", Color: "#e53935", DefaultDurationMinutes: 60, DefaultCapacity: 15},
			{ID: "ct-open", BoxID: "box-1", Name: "Open Box", DefaultCapacity: 20},
		},
		coaches: []coach.Coach{{ID: "coach-ana", BoxID: "box-1", Name: "Ana Souza", Role: coach.RoleHeadCoach}},
	}
	instances := newFakeInstances(rows...)
	toasts := notify.NewToastBuffer(10)
	n := 0
	s := scheduling.NewSession("box-1", scheduling.Stores{
		Rooms:      fakeRooms{refs},
		ClassTypes: fakeClassTypes{refs},
		Coaches:    fakeCoaches{refs},
		Instances:  instances,
	}, scheduling.Options{
		Location: brt,
		Now:      func() time.Time { return wednesday },
		NewID:    func() string { n++; return fmt.Sprintf("new-%d", n) },
		Notifier: toasts,
	})
	if _, err := s.Load(context.Background(), wednesday); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return harness{session: s, instances: instances, refs: refs, toasts: toasts}
}

func (h harness) mustFind(t *testing.T, id string) (schedule.Event, string) {
	t.Helper()
	w, err := h.session.Week()
	if err != nil {
		t.Fatalf("Week: %v", err)
	}
	var found []schedule.Event
	var roomID string
	for _, c := range w.Columns {
		for _, e := range c.Events {
			if e.ID == id {
				found = append(found, e)
				roomID = c.Room.ID
			}
		}
	}
	if len(found) != 1 {
		t.Fatalf("event %s appears %d times, want 1", id, len(found))
	}
	return found[0], roomID
}

func wodPalette() dnd.PaletteClassType {
	return dnd.PaletteClassType{Item: classtype.PaletteItem{ClassTypeID: "ct-wod", Title: "WOD", Color: "#e53935", DurationMinutes: 60, Capacity: 15}}
}

// TestLoad_GroupsWeekAndDerivesEditable checks fetching, grouping and editability.
func TestLoad_GroupsWeekAndDerivesEditable(t *testing.T) {
	h := newHarness(t,
		instance("ev-past", "main", at(17, 9, 0), 60),
		instance("ev-thu", "studio", at(19, 7, 0), 60),
		instance("ev-next-week", "main", at(23, 9, 0), 60),
	)
	w, err := h.session.Week()
	if err != nil {
		t.Fatalf("Week: %v", err)
	}
	if !w.From.Equal(at(16, 0, 0)) {
		t.Errorf("From = %v, want Monday 00:00", w.From)
	}
	if len(w.Columns) != 2 || w.Columns[0].Room.Name != "Main Floor" {
		t.Fatalf("columns = %+v", w.Columns)
	}
	if got := len(w.Events()); got != 2 {
		t.Errorf("len(Events) = %d, want 2 (next week excluded)", got)
	}
	past, _ := h.mustFind(t, "ev-past")
	if past.Editable {
		t.Error("yesterday's event must not be editable")
	}
	thu, _ := h.mustFind(t, "ev-thu")
	if !thu.Editable || thu.Title != "WOD" || thu.Color != "#e53935" {
		t.Errorf("thursday event = %+v", thu)
	}
	if len(w.Palette()) != 2 {
		t.Errorf("len(Palette) = %d, want 2", len(w.Palette()))
	}
}

// TestLoad_FailureKeepsPreviousState tests the fetch error path.
func TestLoad_FailureKeepsPreviousState(t *testing.T) {
	h := newHarness(t, instance("ev-thu", "main", at(19, 9, 0), 60))
	h.instances.listErr = errBoom

	_, err := h.session.Load(context.Background(), wednesday.AddDate(0, 0, 7))
	if !errors.Is(err, scheduling.ErrFetchWeek) {
		t.Fatalf("Load error = %v, want ErrFetchWeek", err)
	}
	w, err := h.session.Week()
	if err != nil {
		t.Fatalf("Week after failed load: %v", err)
	}
	if !w.From.Equal(at(16, 0, 0)) || len(w.Events()) != 1 {
		t.Errorf("previous week should be untouched: %+v", w)
	}
}

// TestWeek_NotLoaded returns the sentinel before the first load.
func TestWeek_NotLoaded(t *testing.T) {
	s := scheduling.NewSession("box-1", scheduling.Stores{}, scheduling.Options{})
	if _, err := s.Week(); !errors.Is(err, scheduling.ErrNotLoaded) {
		t.Errorf("Week error = %v, want ErrNotLoaded", err)
	}
}

// TestScenario_DragWODFromPalette drags a WOD onto Main Floor and saves it.
func TestScenario_DragWODFromPalette(t *testing.T) {
	h := newHarness(t)

	ev, applied, err := h.session.Drop(wodPalette(), dnd.GridSlot{RoomID: "main", Start: at(19, 9, 0), End: at(19, 9, 30)})
	if err != nil || !applied {
		t.Fatalf("Drop: applied=%v err=%v", applied, err)
	}
	if ev.Title != "WOD" || !ev.End.Equal(at(19, 10, 0)) || ev.Capacity != 15 || !ev.Editable {
		t.Errorf("created event = %+v", ev)
	}
	if p := h.session.Pending(); len(p.Changed) != 1 || !p.Dirty {
		t.Fatalf("pending = %+v, want one change", p)
	}

	res, err := h.session.Commit(context.Background())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.Upserted != 1 {
		t.Errorf("Upserted = %d, want 1", res.Upserted)
	}
	row := h.instances.rows[ev.ID]
	if row.DurationMinutes != 60 || row.RoomID != "main" || row.BoxID != "box-1" {
		t.Errorf("stored row = %+v", row)
	}
	if h.session.Pending().Dirty {
		t.Error("staging should be empty after commit")
	}
	toasts := h.toasts.Drain()
	if len(toasts) != 1 || toasts[0].Level != notify.LevelSuccess {
		t.Errorf("toasts = %+v, want one success", toasts)
	}
}

// TestScenario_ResizeStagesNewDuration resizes an existing class to 90 minutes.
func TestScenario_ResizeStagesNewDuration(t *testing.T) {
	h := newHarness(t, instance("ev-thu", "main", at(19, 9, 0), 60))

	ev, err := h.session.Resize("ev-thu", at(19, 9, 0), at(19, 10, 30))
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if ev.DurationMinutes() != 90 {
		t.Errorf("duration = %d, want 90", ev.DurationMinutes())
	}
	if _, err := h.session.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := h.instances.rows["ev-thu"].DurationMinutes; got != 90 {
		t.Errorf("stored duration = %d, want 90", got)
	}
}

// TestResize_BackToOriginalUnstages relies on the tracker's baseline diff.
func TestResize_BackToOriginalUnstages(t *testing.T) {
	h := newHarness(t, instance("ev-thu", "main", at(19, 9, 0), 60))

	if _, err := h.session.Resize("ev-thu", at(19, 9, 0), at(19, 11, 0)); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if _, err := h.session.Resize("ev-thu", at(19, 9, 0), at(19, 10, 0)); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if h.session.Pending().Dirty {
		t.Error("returning to the fetched interval should leave nothing staged")
	}
}

// TestScenario_EditChangesRoom moves an event through the edit modal.
func TestScenario_EditChangesRoom(t *testing.T) {
	h := newHarness(t, instance("ev-thu", "main", at(19, 9, 0), 60))

	coachID, capacity := "coach-ana", 12
	ev, err := h.session.Edit("ev-thu", scheduling.EditInput{
		RoomID: "studio", Start: at(19, 9, 0), End: at(19, 10, 0), CoachID: &coachID, Capacity: &capacity,
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if ev.RoomID != "studio" || ev.Title != "WOD" {
		t.Errorf("edited = %+v", ev)
	}
	_, roomID := h.mustFind(t, "ev-thu")
	if roomID != "studio" {
		t.Errorf("event is in %q, want studio", roomID)
	}
	nobody := "nobody"
	if _, err := h.session.Edit("ev-thu", scheduling.EditInput{Start: at(19, 9, 0), End: at(19, 10, 0), CoachID: &nobody}); !errors.Is(err, scheduling.ErrUnknownCoach) {
		t.Errorf("unknown coach error = %v", err)
	}
}

func TestEdit_OmittedFieldsKeepCurrentValues(t *testing.T) {
	h := newHarness(t, instance("ev-thu", "main", at(19, 9, 0), 60))
	coachID, capacity := "coach-ana", 12
	if _, err := h.session.Edit("ev-thu", scheduling.EditInput{CoachID: &coachID, Capacity: &capacity}); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	later := at(19, 11, 0)
	ev, err := h.session.Edit("ev-thu", scheduling.EditInput{End: later})
	if err != nil {
		t.Fatalf("Edit(end only): %v", err)
	}
	if ev.Capacity != 12 || ev.CoachID != "coach-ana" || !ev.Start.Equal(at(19, 9, 0)) || !ev.End.Equal(later) {
		t.Errorf("edited = %+v, want capacity, coach and start kept", ev)
	}

	none := ""
	if ev, err = h.session.Edit("ev-thu", scheduling.EditInput{CoachID: &none}); err != nil || ev.CoachID != "" {
		t.Errorf("unassign coach = %+v, %v", ev, err)
	}
}

// TestScenario_DropAcrossRooms tests the ExistingEvent to other-room path.
func TestScenario_DropAcrossRooms(t *testing.T) {
	h := newHarness(t, instance("ev-thu", "main", at(19, 9, 0), 60))

	ev, applied, err := h.session.Drop(dnd.ExistingEvent{EventID: "ev-thu"}, dnd.GridSlot{RoomID: "studio", Start: at(20, 18, 0), End: at(20, 19, 0)})
	if err != nil || !applied {
		t.Fatalf("Drop: applied=%v err=%v", applied, err)
	}
	if ev.RoomID != "studio" || !ev.Start.Equal(at(20, 18, 0)) {
		t.Errorf("moved = %+v", ev)
	}
	h.mustFind(t, "ev-thu")
	if p := h.session.Pending(); len(p.Changed) != 1 || p.Changed[0].RoomID != "studio" {
		t.Errorf("pending = %+v", p)
	}
}

// TestScenario_YesterdayIsRejected covers both past gates.
func TestScenario_YesterdayIsRejected(t *testing.T) {
	h := newHarness(t,
		instance("ev-past", "main", at(17, 9, 0), 60),
		instance("ev-thu", "main", at(19, 9, 0), 60),
	)

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"palette drop on yesterday", func() error {
			_, _, err := h.session.Drop(wodPalette(), dnd.GridSlot{RoomID: "main", Start: at(17, 9, 0), End: at(17, 10, 0)})
			return err
		}, schedule.ErrPastInterval},
		{"move to yesterday", func() error {
			_, _, err := h.session.Drop(dnd.ExistingEvent{EventID: "ev-thu"}, dnd.GridSlot{RoomID: "main", Start: at(17, 9, 0), End: at(17, 10, 0)})
			return err
		}, schedule.ErrPastInterval},
		{"select yesterday", func() error {
			_, err := h.session.Select(scheduling.SelectInput{RoomID: "main", Start: at(17, 9, 0), End: at(17, 10, 0), ClassTypeID: "ct-wod"})
			return err
		}, schedule.ErrPastInterval},
		{"resize past event", func() error {
			_, err := h.session.Resize("ev-past", at(17, 9, 0), at(17, 11, 0))
			return err
		}, schedule.ErrNotEditable},
		{"delete past event", func() error { return h.session.Delete("ev-past") }, schedule.ErrNotEditable},
		{"drag past event", func() error {
			_, _, err := h.session.Drop(dnd.ExistingEvent{EventID: "ev-past"}, dnd.GridSlot{RoomID: "main", Start: at(19, 9, 0), End: at(19, 10, 0)})
			return err
		}, schedule.ErrNotEditable},
		{"missing event", func() error { return h.session.Delete("ghost") }, schedule.ErrEventNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
	if h.session.Pending().Dirty {
		t.Error("rejected gestures must not stage anything")
	}
}

// TestSelect_CreatesFromClassType tests selection defaults.
func TestSelect_CreatesFromClassType(t *testing.T) {
	h := newHarness(t)

	ev, err := h.session.Select(scheduling.SelectInput{RoomID: "studio", Start: at(18, 17, 0), End: at(18, 18, 0), ClassTypeID: "ct-open"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if ev.Title != "Open Box" || ev.Capacity != 20 || ev.Color != classtype.DefaultColor {
		t.Errorf("selected = %+v", ev)
	}
	if _, err := h.session.Select(scheduling.SelectInput{RoomID: "studio", Start: at(18, 17, 0), End: at(18, 18, 0), ClassTypeID: "ct-none"}); !errors.Is(err, scheduling.ErrUnknownClassType) {
		t.Errorf("unknown class type error = %v", err)
	}
}

// TestDrop_UnlistedPairIsNoop tests the None action.
func TestDrop_UnlistedPairIsNoop(t *testing.T) {
	h := newHarness(t)
	_, applied, err := h.session.Drop(dnd.PaletteTemplate{TemplateID: "tpl-wod"}, dnd.GridSlot{RoomID: "main", Start: at(19, 9, 0), End: at(19, 10, 0)})
	if err != nil || applied {
		t.Errorf("applied=%v err=%v, want no-op", applied, err)
	}
}

// TestDelete_NeverFetchedVanishes deletes an unsaved event without staging a delete.
func TestDelete_NeverFetchedVanishes(t *testing.T) {
	h := newHarness(t)
	ev, _, err := h.session.Drop(wodPalette(), dnd.GridSlot{RoomID: "main", Start: at(19, 9, 0), End: at(19, 10, 0)})
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if err := h.session.Delete(ev.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if p := h.session.Pending(); p.Dirty {
		t.Errorf("pending = %+v, want nothing", p)
	}
}

// TestCommit_FailureResynchronises stages three changes and one deletion,
// fails the second upsert and expects the board to equal a fresh fetch.
func TestCommit_FailureResynchronises(t *testing.T) {
	h := newHarness(t,
		instance("ev-a", "main", at(19, 9, 0), 60),
		instance("ev-b", "main", at(19, 11, 0), 60),
		instance("ev-c", "studio", at(20, 9, 0), 60),
		instance("ev-d", "studio", at(21, 9, 0), 60),
	)
	for _, id := range []string{"ev-a", "ev-b", "ev-c"} {
		ev, _ := h.mustFind(t, id)
		if _, err := h.session.Resize(id, ev.Start, ev.End.Add(30*time.Minute)); err != nil {
			t.Fatalf("Resize %s: %v", id, err)
		}
	}
	if err := h.session.Delete("ev-d"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	h.instances.failUpsertAt = 2

	_, err := h.session.Commit(context.Background())
	var ce *orchestrators.CommitError
	if !errors.As(err, &ce) {
		t.Fatalf("Commit error = %v, want *CommitError", err)
	}
	if ce.Op != orchestrators.OpUpsert || ce.Applied != 1 {
		t.Errorf("CommitError = %+v", ce)
	}
	if h.session.Pending().Dirty {
		t.Error("tracker must be empty after a failed commit")
	}

	got, err := h.session.Week()
	if err != nil {
		t.Fatalf("Week: %v", err)
	}
	fresh := newHarness(t)
	fresh.instances.rows = h.instances.rows
	if _, err := fresh.session.Load(context.Background(), wednesday); err != nil {
		t.Fatalf("fresh Load: %v", err)
	}
	want, _ := fresh.session.Week()
	if len(got.Events()) != len(want.Events()) {
		t.Fatalf("board has %d events, fresh fetch has %d", len(got.Events()), len(want.Events()))
	}
	for i, e := range want.Events() {
		if !got.Events()[i].SameContent(e) {
			t.Errorf("event %d = %+v, want %+v", i, got.Events()[i], e)
		}
	}
	a, _ := h.mustFind(t, "ev-a")
	if a.DurationMinutes() != 90 {
		t.Errorf("first upsert should have landed, duration = %d", a.DurationMinutes())
	}
	b, _ := h.mustFind(t, "ev-b")
	if b.DurationMinutes() != 60 {
		t.Errorf("failed upsert should not land, duration = %d", b.DurationMinutes())
	}
	h.mustFind(t, "ev-d")

	toasts := h.toasts.Drain()
	if len(toasts) != 1 || toasts[0].Level != notify.LevelError {
		t.Errorf("toasts = %+v, want one error", toasts)
	}
}

// TestCommit_ReloadFailureUnloads tests the case where the recovery fetch also fails.
func TestCommit_ReloadFailureUnloads(t *testing.T) {
	h := newHarness(t, instance("ev-a", "main", at(19, 9, 0), 60))
	if err := h.session.Delete("ev-a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	h.refs.err = errBoom

	_, err := h.session.Commit(context.Background())
	if !errors.Is(err, scheduling.ErrFetchWeek) {
		t.Fatalf("Commit error = %v, want ErrFetchWeek", err)
	}
	if _, err := h.session.Week(); !errors.Is(err, scheduling.ErrNotLoaded) {
		t.Errorf("Week error = %v, want ErrNotLoaded", err)
	}
	if h.instances.deletes != 1 {
		t.Errorf("deletes = %d, want 1", h.instances.deletes)
	}
}

// TestCommit_ConcurrentCallsWriteOnce checks that overlapping commits never double-write.
func TestCommit_ConcurrentCallsWriteOnce(t *testing.T) {
	h := newHarness(t)
	if _, _, err := h.session.Drop(wodPalette(), dnd.GridSlot{RoomID: "main", Start: at(19, 9, 0), End: at(19, 10, 0)}); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	h.instances.block = make(chan struct{})
	h.instances.started = make(chan struct{})
	started := h.instances.started

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = h.session.Commit(context.Background())
	}()
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = h.session.Commit(context.Background())
	}()
	close(h.instances.block)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("commit %d: %v", i, err)
		}
	}
	if h.instances.upserts != 1 {
		t.Errorf("upserts = %d, want 1", h.instances.upserts)
	}
}

// TestLoad_DiscardsStaging tests navigation away from a dirty week.
func TestLoad_DiscardsStaging(t *testing.T) {
	h := newHarness(t)
	if _, _, err := h.session.Drop(wodPalette(), dnd.GridSlot{RoomID: "main", Start: at(19, 9, 0), End: at(19, 10, 0)}); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if _, err := h.session.Load(context.Background(), wednesday.AddDate(0, 0, 7)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h.session.Pending().Dirty {
		t.Error("loading another week must discard staging")
	}
}
