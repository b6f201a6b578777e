package schedule

import "time"

// RoomEvents is one calendar column: a room and the events placed in it.
type RoomEvents struct {
	RoomID string
	Events []Event
}

// Board holds the visible week's events grouped by room.
// Every structural change goes through the tracker; there is no unstaged mutation path.
// INVARIANT: an event ID appears in at most one room list.
type Board struct {
	roomOrder []string
	events    map[string][]Event
	tracker   *Tracker
}

// NewBoard groups events by room. Rooms without events still get an (empty) column.
// PRE: roomIDs lists the box's rooms in display order
// POST: returns the board and any events whose room is not in roomIDs
func NewBoard(roomIDs []string, events []Event, tracker *Tracker) (*Board, []Event) {
	b := &Board{
		roomOrder: append([]string(nil), roomIDs...),
		events:    make(map[string][]Event, len(roomIDs)),
		tracker:   tracker,
	}
	for _, id := range roomIDs {
		b.events[id] = []Event{}
	}
	var orphans []Event
	for _, e := range events {
		if _, ok := b.events[e.RoomID]; !ok {
			orphans = append(orphans, e)
			continue
		}
		b.events[e.RoomID] = append(b.events[e.RoomID], e)
	}
	return b, orphans
}

// HasRoom reports whether roomID is a column on the board.
func (b *Board) HasRoom(roomID string) bool {
	_, ok := b.events[roomID]
	return ok
}

// Find looks an event up across all rooms.
func (b *Board) Find(id string) (Event, bool) {
	for _, roomID := range b.roomOrder {
		if i := indexOf(b.events[roomID], id); i >= 0 {
			return b.events[roomID][i], true
		}
	}
	return Event{}, false
}

// Rooms returns a copy of every column in display order.
func (b *Board) Rooms() []RoomEvents {
	out := make([]RoomEvents, 0, len(b.roomOrder))
	for _, roomID := range b.roomOrder {
		evs := make([]Event, len(b.events[roomID]))
		copy(evs, b.events[roomID])
		out = append(out, RoomEvents{RoomID: roomID, Events: evs})
	}
	return out
}

// All returns every event on the board.
func (b *Board) All() []Event {
	var out []Event
	for _, roomID := range b.roomOrder {
		out = append(out, b.events[roomID]...)
	}
	return out
}

// Upsert replaces the event with e.ID in roomID, or appends it, and stages it.
// PRE: roomID is a board column
// POST: e (with RoomID = roomID) is in the room's list exactly once and is staged
func (b *Board) Upsert(roomID string, e Event) error {
	list, ok := b.events[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	e.RoomID = roomID
	if i := indexOf(list, e.ID); i >= 0 {
		list[i] = e
	} else {
		b.events[roomID] = append(list, e)
	}
	b.tracker.MarkDirty(e)
	return nil
}

// UpdateTimes moves or resizes an event within its room and stages the result.
// PRE: the event is in roomID
// POST: returns the updated copy
func (b *Board) UpdateTimes(roomID, eventID string, start, end time.Time) (Event, error) {
	if err := CheckInterval(start, end); err != nil {
		return Event{}, err
	}
	list, ok := b.events[roomID]
	if !ok {
		return Event{}, ErrRoomNotFound
	}
	i := indexOf(list, eventID)
	if i < 0 {
		return Event{}, ErrEventNotFound
	}
	updated := list[i]
	updated.Start = start
	updated.End = end
	list[i] = updated
	b.tracker.MarkDirty(updated)
	return updated, nil
}

// MoveAcrossRooms removes the event from one room and appends updated to another
// in a single step, so the event is never in zero or two rooms.
// POST: updated.RoomID = to; the event appears once, in room to
func (b *Board) MoveAcrossRooms(from, to, eventID string, updated Event) (Event, error) {
	src, ok := b.events[from]
	if !ok {
		return Event{}, ErrRoomNotFound
	}
	if _, ok := b.events[to]; !ok {
		return Event{}, ErrRoomNotFound
	}
	i := indexOf(src, eventID)
	if i < 0 {
		return Event{}, ErrEventNotFound
	}
	updated.ID = eventID
	updated.RoomID = to
	if from == to {
		src[i] = updated
		b.tracker.MarkDirty(updated)
		return updated, nil
	}

	nextSrc := make([]Event, 0, len(src)-1)
	nextSrc = append(nextSrc, src[:i]...)
	nextSrc = append(nextSrc, src[i+1:]...)
	nextDst := append(append([]Event(nil), b.events[to]...), updated)

	b.events[from] = nextSrc
	b.events[to] = nextDst
	b.tracker.MarkDirty(updated)
	return updated, nil
}

// Delete removes the event from roomID and stages its deletion.
func (b *Board) Delete(roomID, eventID string) error {
	list, ok := b.events[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	i := indexOf(list, eventID)
	if i < 0 {
		return ErrEventNotFound
	}
	b.events[roomID] = append(list[:i:i], list[i+1:]...)
	b.tracker.MarkDeleted(eventID)
	return nil
}

func indexOf(list []Event, id string) int {
	for i, e := range list {
		if e.ID == id {
			return i
		}
	}
	return -1
}
