package scheduling

import (
	"time"

	"boxdesk/internal/domain/classtype"
	"boxdesk/internal/domain/coach"
	"boxdesk/internal/domain/room"
	"boxdesk/internal/domain/schedule"
)

// Column is one room with the events placed in it.
type Column struct {
	Room   room.Room
	Events []schedule.Event
}

// Week is a consistent snapshot of the working calendar.
type Week struct {
	From       time.Time
	To         time.Time
	Columns    []Column
	ClassTypes []classtype.ClassType
	Coaches    []coach.Coach
	Dirty      bool
}

// Palette returns the drag payloads for every class type.
func (w Week) Palette() []classtype.PaletteItem {
	out := make([]classtype.PaletteItem, len(w.ClassTypes))
	for i, ct := range w.ClassTypes {
		out[i] = ct.Palette()
	}
	return out
}

// Events flattens every column.
func (w Week) Events() []schedule.Event {
	var out []schedule.Event
	for _, c := range w.Columns {
		out = append(out, c.Events...)
	}
	return out
}

// Pending is the staged set a commit would write.
type Pending struct {
	Changed []schedule.Event
	Deleted []string
	Dirty   bool
}

// CommitResult counts the writes a commit applied.
type CommitResult struct {
	Upserted int
	Deleted  int
}

// snapshot copies the board with Editable computed at the current time. Caller holds mu.
func (s *Session) snapshot() Week {
	now := s.now()
	byID := make(map[string]room.Room, len(s.rooms))
	for _, r := range s.rooms {
		byID[r.ID] = r
	}
	w := Week{
		From:       s.from,
		To:         s.to,
		ClassTypes: append([]classtype.ClassType(nil), s.classTypes...),
		Coaches:    append([]coach.Coach(nil), s.coaches...),
		Dirty:      s.tracker.IsDirty(),
	}
	for _, col := range s.board.Rooms() {
		for i := range col.Events {
			col.Events[i] = col.Events[i].WithEditable(now, s.loc)
		}
		w.Columns = append(w.Columns, Column{Room: byID[col.RoomID], Events: col.Events})
	}
	return w
}
