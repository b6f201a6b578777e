package scheduling

import (
	"log/slog"
	"strings"
	"time"

	"boxdesk/internal/domain/classtype"
	"boxdesk/internal/domain/dnd"
	"boxdesk/internal/domain/schedule"
)

// SelectInput is a click-drag selection on an empty part of a room column.
type SelectInput struct {
	RoomID      string
	Start       time.Time
	End         time.Time
	ClassTypeID string
	CoachID     string
	Capacity    int // zero takes the class type default
}

// EditInput is the edit modal's form. Title and class type are not editable.
// Empty RoomID, zero times and nil pointers keep the event's current value;
// a CoachID pointing at "" unassigns the coach.
type EditInput struct {
	RoomID   string
	Start    time.Time
	End      time.Time
	CoachID  *string
	Capacity *int
}

func (s *Session) classType(id string) (classtype.ClassType, bool) {
	for _, ct := range s.classTypes {
		if ct.ID == id {
			return ct, true
		}
	}
	return classtype.ClassType{}, false
}

func (s *Session) hasCoach(id string) bool {
	if id == "" {
		return true
	}
	for _, c := range s.coaches {
		if c.ID == id {
			return true
		}
	}
	return false
}

// editable returns the event if it exists and may still be changed. Caller holds mu.
func (s *Session) editable(id string) (schedule.Event, error) {
	if !s.loaded {
		return schedule.Event{}, ErrNotLoaded
	}
	ev, ok := s.board.Find(id)
	if !ok {
		return schedule.Event{}, schedule.ErrEventNotFound
	}
	if !schedule.IsEditable(ev.Start, s.now(), s.loc) {
		return schedule.Event{}, schedule.ErrNotEditable
	}
	return ev, nil
}

func (s *Session) newEvent(ct classtype.ClassType, roomID string, start, end time.Time, coachID string, capacity int) schedule.Event {
	if capacity == 0 {
		capacity = ct.DefaultCapacity
	}
	return schedule.Event{
		ID:          s.newID(),
		Title:       ct.Name,
		Start:       start.In(s.loc),
		End:         end.In(s.loc),
		RoomID:      roomID,
		ClassTypeID: ct.ID,
		CoachID:     coachID,
		Capacity:    capacity,
		Color:       ct.DisplayColor(),
	}
}

// Select creates an event from a selection on the grid.
// PRE: the selection starts today or later
// POST: the new event is on the board and staged
func (s *Session) Select(in SelectInput) (schedule.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return schedule.Event{}, ErrNotLoaded
	}
	if err := dnd.AcceptSelect(s.now(), s.loc, in.Start); err != nil {
		return schedule.Event{}, err
	}
	if err := schedule.CheckInterval(in.Start, in.End); err != nil {
		return schedule.Event{}, err
	}
	if in.Capacity < 0 {
		return schedule.Event{}, schedule.ErrNegativeCapacity
	}
	if !s.board.HasRoom(in.RoomID) {
		return schedule.Event{}, schedule.ErrRoomNotFound
	}
	ct, ok := s.classType(in.ClassTypeID)
	if !ok {
		return schedule.Event{}, ErrUnknownClassType
	}
	if !s.hasCoach(in.CoachID) {
		return schedule.Event{}, ErrUnknownCoach
	}
	ev := s.newEvent(ct, in.RoomID, in.Start, in.End, in.CoachID, in.Capacity)
	if err := s.board.Upsert(in.RoomID, ev); err != nil {
		return schedule.Event{}, err
	}
	slog.Debug("schedule_event", "event", "selected", "box_id", s.boxID, "event_id", ev.ID, "room_id", ev.RoomID)
	return ev.WithEditable(s.now(), s.loc), nil
}

// Drop handles a palette class type or an existing event released on a grid slot.
// applied is false when the pair classifies to no action.
// PRE: the resulting interval does not end before today
func (s *Session) Drop(src dnd.Source, slot dnd.GridSlot) (ev schedule.Event, applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return schedule.Event{}, false, ErrNotLoaded
	}

	var currentRoom string
	if existing, ok := src.(dnd.ExistingEvent); ok {
		cur, err := s.editable(existing.EventID)
		if err != nil {
			return schedule.Event{}, false, err
		}
		currentRoom = cur.RoomID
	}

	switch a := dnd.Classify(src, slot, currentRoom).(type) {
	case dnd.CreateEvent:
		if err := dnd.AcceptDrop(s.now(), s.loc, a.End); err != nil {
			return schedule.Event{}, false, err
		}
		if err := schedule.CheckInterval(a.Start, a.End); err != nil {
			return schedule.Event{}, false, err
		}
		if !s.board.HasRoom(a.RoomID) {
			return schedule.Event{}, false, schedule.ErrRoomNotFound
		}
		ct, ok := s.classType(a.Item.ClassTypeID)
		if !ok {
			return schedule.Event{}, false, ErrUnknownClassType
		}
		ev = s.newEvent(ct, a.RoomID, a.Start, a.End, "", a.Item.Capacity)
		if err := s.board.Upsert(a.RoomID, ev); err != nil {
			return schedule.Event{}, false, err
		}
		slog.Debug("schedule_event", "event", "received", "box_id", s.boxID, "event_id", ev.ID, "class_type_id", ct.ID)

	case dnd.UpdateEventTimes:
		if err := dnd.AcceptDrop(s.now(), s.loc, a.End); err != nil {
			return schedule.Event{}, false, err
		}
		if ev, err = s.board.UpdateTimes(a.RoomID, a.EventID, a.Start.In(s.loc), a.End.In(s.loc)); err != nil {
			return schedule.Event{}, false, err
		}

	case dnd.MoveEventAcrossRooms:
		if err := dnd.AcceptDrop(s.now(), s.loc, a.End); err != nil {
			return schedule.Event{}, false, err
		}
		if err := schedule.CheckInterval(a.Start, a.End); err != nil {
			return schedule.Event{}, false, err
		}
		cur, _ := s.board.Find(a.EventID)
		cur.Start, cur.End = a.Start.In(s.loc), a.End.In(s.loc)
		if ev, err = s.board.MoveAcrossRooms(a.From, a.To, a.EventID, cur); err != nil {
			return schedule.Event{}, false, err
		}
		slog.Debug("schedule_event", "event", "moved_room", "box_id", s.boxID, "event_id", ev.ID, "from", a.From, "to", a.To)

	default:
		return schedule.Event{}, false, nil
	}
	return ev.WithEditable(s.now(), s.loc), true, nil
}

// Resize changes an event's interval inside its current room.
func (s *Session) Resize(id string, start, end time.Time) (schedule.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.editable(id)
	if err != nil {
		return schedule.Event{}, err
	}
	if err := dnd.AcceptDrop(s.now(), s.loc, end); err != nil {
		return schedule.Event{}, err
	}
	ev, err := s.board.UpdateTimes(cur.RoomID, id, start.In(s.loc), end.In(s.loc))
	if err != nil {
		return schedule.Event{}, err
	}
	return ev.WithEditable(s.now(), s.loc), nil
}

// Edit applies the edit modal to an event, moving it between rooms when the room changes.
// POST: the event appears exactly once, in in.RoomID
func (s *Session) Edit(id string, in EditInput) (schedule.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.editable(id)
	if err != nil {
		return schedule.Event{}, err
	}
	updated := cur
	if !in.Start.IsZero() {
		updated.Start = in.Start.In(s.loc)
	}
	if !in.End.IsZero() {
		updated.End = in.End.In(s.loc)
	}
	if err := dnd.AcceptDrop(s.now(), s.loc, updated.End); err != nil {
		return schedule.Event{}, err
	}
	in.RoomID = strings.TrimSpace(in.RoomID)
	if in.RoomID == "" {
		in.RoomID = cur.RoomID
	}
	if in.CoachID != nil {
		if !s.hasCoach(*in.CoachID) {
			return schedule.Event{}, ErrUnknownCoach
		}
		updated.CoachID = *in.CoachID
	}
	if in.Capacity != nil {
		updated.Capacity = *in.Capacity
	}
	if err := updated.Validate(); err != nil {
		return schedule.Event{}, err
	}

	var ev schedule.Event
	if in.RoomID == cur.RoomID {
		if err := s.board.Upsert(cur.RoomID, updated); err != nil {
			return schedule.Event{}, err
		}
		ev = updated
	} else if ev, err = s.board.MoveAcrossRooms(cur.RoomID, in.RoomID, id, updated); err != nil {
		return schedule.Event{}, err
	}
	return ev.WithEditable(s.now(), s.loc), nil
}

// Delete removes an event from the board and stages its deletion.
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.editable(id)
	if err != nil {
		return err
	}
	return s.board.Delete(cur.RoomID, id)
}
