// Package dnd classifies completed drag gestures into structural actions.
// It never mutates state; callers dispatch the returned Action.
package dnd

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"boxdesk/internal/domain/classtype"
	"boxdesk/internal/domain/schedule"

	"github.com/google/uuid"
)

// ID prefixes that identify the planner's drag sources.
const (
	PrefixTemplate = "tpl-"
	PrefixSaved    = "sav-"
	PrefixSection  = "sec-"

	// DayContainerID is the drop zone holding a day's sections.
	DayContainerID = "day"
)

// Domain errors
var (
	ErrUnknownSource = errors.New("unrecognised drag source")
	ErrUnknownTarget = errors.New("unrecognised drop target")
	ErrBadPayload    = errors.New("drag payload is not a class type palette item")
)

// Source is what the user picked up. Resolved once per gesture.
type Source interface{ isSource() }

// PaletteTemplate is a built-in section template (tpl-*).
type PaletteTemplate struct{ TemplateID string }

// SavedTemplate is a box's saved section (sav-*).
type SavedTemplate struct{ SavedID string }

// ExistingSection is a section already on the day (sec-*).
type ExistingSection struct{ SectionID string }

// PaletteClassType is a class type dragged in from the calendar palette.
type PaletteClassType struct{ Item classtype.PaletteItem }

// ExistingEvent is an event already on the calendar.
type ExistingEvent struct{ EventID string }

func (PaletteTemplate) isSource()  {}
func (SavedTemplate) isSource()    {}
func (ExistingSection) isSource()  {}
func (PaletteClassType) isSource() {}
func (ExistingEvent) isSource()    {}

// Target is where the user let go.
type Target interface{ isTarget() }

// DayContainer is the day's section list as a whole.
type DayContainer struct{}

// SectionSlot is the position currently held by another section.
type SectionSlot struct{ SectionID string }

// GridSlot is a calendar cell range in one room column.
type GridSlot struct {
	RoomID string
	Start  time.Time
	End    time.Time
}

func (DayContainer) isTarget() {}
func (SectionSlot) isTarget()  {}
func (GridSlot) isTarget()     {}

// Action is the structural change a gesture resolves to.
type Action interface{ isAction() }

// None leaves state unchanged.
type None struct{}

// InstantiateTemplate appends a fresh section built from a palette template.
type InstantiateTemplate struct{ TemplateID string }

// InstantiateSaved appends a deep copy of a saved section.
type InstantiateSaved struct{ SavedID string }

// ReorderSection moves SectionID to the index currently held by TargetID.
type ReorderSection struct {
	SectionID string
	TargetID  string
}

// CreateEvent places a new event for a class type.
type CreateEvent struct {
	Item   classtype.PaletteItem
	RoomID string
	Start  time.Time
	End    time.Time
}

// UpdateEventTimes moves or resizes an event inside its room.
type UpdateEventTimes struct {
	RoomID  string
	EventID string
	Start   time.Time
	End     time.Time
}

// MoveEventAcrossRooms relocates an event to another room column.
type MoveEventAcrossRooms struct {
	From    string
	To      string
	EventID string
	Start   time.Time
	End     time.Time
}

func (None) isAction()                 {}
func (InstantiateTemplate) isAction()  {}
func (InstantiateSaved) isAction()     {}
func (ReorderSection) isAction()       {}
func (CreateEvent) isAction()          {}
func (UpdateEventTimes) isAction()     {}
func (MoveEventAcrossRooms) isAction() {}

// ParseSource resolves a drag source from its element ID and optional JSON payload.
// PRE: payload is empty unless the source is a palette class type
// POST: returns one of the Source variants or an error
func ParseSource(id string, payload []byte) (Source, error) {
	if len(payload) > 0 {
		var item classtype.PaletteItem
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, ErrBadPayload
		}
		if err := item.Validate(); err != nil {
			return nil, ErrBadPayload
		}
		return PaletteClassType{Item: item}, nil
	}
	id = strings.TrimSpace(id)
	switch {
	case strings.HasPrefix(id, PrefixTemplate) && len(id) > len(PrefixTemplate):
		return PaletteTemplate{TemplateID: id}, nil
	case strings.HasPrefix(id, PrefixSaved) && len(id) > len(PrefixSaved):
		return SavedTemplate{SavedID: id}, nil
	case strings.HasPrefix(id, PrefixSection) && len(id) > len(PrefixSection):
		return ExistingSection{SectionID: id}, nil
	}
	if _, err := uuid.Parse(id); err == nil {
		return ExistingEvent{EventID: id}, nil
	}
	return nil, ErrUnknownSource
}

// ParseTarget resolves a planner drop target ID. Grid slots are built by the caller.
func ParseTarget(id string) (Target, error) {
	id = strings.TrimSpace(id)
	switch {
	case id == DayContainerID:
		return DayContainer{}, nil
	case strings.HasPrefix(id, PrefixSection) && len(id) > len(PrefixSection):
		return SectionSlot{SectionID: id}, nil
	}
	return nil, ErrUnknownTarget
}

// Classify maps a (source, target) pair to an action. Unlisted pairs are None.
// currentRoom is the room an ExistingEvent sits in right now; other sources ignore it.
func Classify(src Source, tgt Target, currentRoom string) Action {
	switch s := src.(type) {
	case PaletteTemplate:
		if _, ok := tgt.(DayContainer); ok {
			return InstantiateTemplate{TemplateID: s.TemplateID}
		}
	case SavedTemplate:
		if _, ok := tgt.(DayContainer); ok {
			return InstantiateSaved{SavedID: s.SavedID}
		}
	case ExistingSection:
		if t, ok := tgt.(SectionSlot); ok && t.SectionID != s.SectionID {
			return ReorderSection{SectionID: s.SectionID, TargetID: t.SectionID}
		}
	case PaletteClassType:
		if t, ok := tgt.(GridSlot); ok && t.RoomID != "" {
			end := t.End
			if s.Item.DurationMinutes > 0 {
				end = t.Start.Add(time.Duration(s.Item.DurationMinutes) * time.Minute)
			}
			if !end.After(t.Start) {
				return None{}
			}
			return CreateEvent{Item: s.Item, RoomID: t.RoomID, Start: t.Start, End: end}
		}
	case ExistingEvent:
		t, ok := tgt.(GridSlot)
		if !ok || t.RoomID == "" || currentRoom == "" {
			break
		}
		if t.RoomID == currentRoom {
			return UpdateEventTimes{RoomID: t.RoomID, EventID: s.EventID, Start: t.Start, End: t.End}
		}
		return MoveEventAcrossRooms{From: currentRoom, To: t.RoomID, EventID: s.EventID, Start: t.Start, End: t.End}
	}
	return None{}
}

// AcceptDrop is the gate for drops and resizes: the resulting end must not be before today.
// now must be read at release time, not cached from drag start.
func AcceptDrop(now time.Time, loc *time.Location, end time.Time) error {
	if end.Before(schedule.StartOfDay(now, loc)) {
		return schedule.ErrPastInterval
	}
	return nil
}

// AcceptSelect is the gate for new selections: the start must not be before today.
func AcceptSelect(now time.Time, loc *time.Location, start time.Time) error {
	if start.Before(schedule.StartOfDay(now, loc)) {
		return schedule.ErrPastInterval
	}
	return nil
}
