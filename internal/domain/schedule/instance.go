package schedule

import "time"

// Instance is the persisted row behind an Event.
// Title and color are not stored; they come from the class type on fetch.
type Instance struct {
	ID              string
	BoxID           string
	RoomID          string
	ClassTypeID     string
	CoachID         string
	StartsAt        time.Time
	DurationMinutes int
	Capacity        int
	CreatedAt       time.Time
}

// InstanceFromEvent builds the row to upsert for a staged event.
// POST: DurationMinutes = (End - Start) in minutes
func InstanceFromEvent(boxID string, e Event) Instance {
	return Instance{
		ID:              e.ID,
		BoxID:           boxID,
		RoomID:          e.RoomID,
		ClassTypeID:     e.ClassTypeID,
		CoachID:         e.CoachID,
		StartsAt:        e.Start,
		DurationMinutes: e.DurationMinutes(),
		Capacity:        e.Capacity,
	}
}

// Event expands the row into a working event using the class type's title and color.
// Editable is left false; callers recompute it with WithEditable.
func (i Instance) Event(title, color string) Event {
	return Event{
		ID:          i.ID,
		Title:       title,
		Start:       i.StartsAt,
		End:         i.StartsAt.Add(time.Duration(i.DurationMinutes) * time.Minute),
		RoomID:      i.RoomID,
		ClassTypeID: i.ClassTypeID,
		CoachID:     i.CoachID,
		Capacity:    i.Capacity,
		Color:       color,
	}
}
