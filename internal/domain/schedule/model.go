package schedule

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrEmptyID          = errors.New("event ID cannot be empty")
	ErrEmptyRoomID      = errors.New("room ID cannot be empty")
	ErrEmptyClassTypeID = errors.New("class type ID cannot be empty")
	ErrInvalidInterval  = errors.New("event end must be after start")
	ErrPartialMinute    = errors.New("event length must be a whole number of minutes")
	ErrNegativeCapacity = errors.New("capacity cannot be negative")
	ErrNotEditable      = errors.New("event starts before today and can no longer be changed")
	ErrPastInterval     = errors.New("events cannot be placed before today")
	ErrEventNotFound    = errors.New("event not found")
	ErrRoomNotFound     = errors.New("room not found")
)

// Event is the working representation of one scheduled class instance on the weekly calendar.
// INVARIANT: End is strictly after Start.
// INVARIANT: Title is fixed from the class type when the event is created.
type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         time.Time
	RoomID      string
	ClassTypeID string
	CoachID     string // optional
	Capacity    int
	Color       string

	// Editable is derived from Start and the current day; it is never persisted.
	Editable bool
}

// Validate checks the event's invariants.
// PRE: none
// POST: returns nil if valid, the first violation otherwise
func (e *Event) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(e.RoomID) == "" {
		return ErrEmptyRoomID
	}
	if strings.TrimSpace(e.ClassTypeID) == "" {
		return ErrEmptyClassTypeID
	}
	if err := CheckInterval(e.Start, e.End); err != nil {
		return err
	}
	if e.Capacity < 0 {
		return ErrNegativeCapacity
	}
	return nil
}

// CheckInterval is the rule every event interval obeys. Lengths are stored
// in minutes, so a partial minute would not survive a reload.
func CheckInterval(start, end time.Time) error {
	d := end.Sub(start)
	if d <= 0 {
		return ErrInvalidInterval
	}
	if d%time.Minute != 0 {
		return ErrPartialMinute
	}
	return nil
}

// DurationMinutes returns the length of the event in whole minutes.
// PRE: CheckInterval(e.Start, e.End) == nil
func (e Event) DurationMinutes() int {
	return int(e.End.Sub(e.Start) / time.Minute)
}

// SameContent reports whether two events would persist to the same row.
// Derived presentation fields (Title, Color, Editable) are ignored.
func (e Event) SameContent(o Event) bool {
	return e.ID == o.ID &&
		e.RoomID == o.RoomID &&
		e.ClassTypeID == o.ClassTypeID &&
		e.CoachID == o.CoachID &&
		e.Capacity == o.Capacity &&
		e.Start.Equal(o.Start) &&
		e.End.Equal(o.End)
}

// WithEditable returns a copy of e with Editable recomputed against now.
func (e Event) WithEditable(now time.Time, loc *time.Location) Event {
	e.Editable = IsEditable(e.Start, now, loc)
	return e
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// IsEditable reports whether an event starting at start may still be changed.
// POST: false iff start is strictly before the start of now's day in loc
func IsEditable(start, now time.Time, loc *time.Location) bool {
	return !start.Before(StartOfDay(now, loc))
}

// WeekRange returns the Monday 00:00:00 to Sunday 23:59:59 window containing anchor.
// PRE: loc is the box's display time zone (nil means time.Local)
// POST: from is a Monday at midnight in loc; to is one second before the following Monday
func WeekRange(anchor time.Time, loc *time.Location) (from, to time.Time) {
	day := StartOfDay(anchor, loc)
	offset := (int(day.Weekday()) + 6) % 7 // days since Monday
	from = day.AddDate(0, 0, -offset)
	to = from.AddDate(0, 0, 7).Add(-time.Second)
	return from, to
}
