// Package ics exports a loaded week as an iCalendar feed.
package ics

import (
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"boxdesk/internal/domain/schedule"
)

const productID = "-//boxdesk//weekly schedule//EN"

// Names resolves display names for the fields an event only carries as IDs.
type Names struct {
	Rooms   map[string]string
	Coaches map[string]string
}

// ExportWeek renders events as a VCALENDAR. Times are written in UTC.
// POST: one VEVENT per event, UID = event ID
func ExportWeek(calName string, events []schedule.Event, names Names, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if calName != "" {
		cal.SetXWRCalName(calName)
	}
	for _, e := range events {
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(stamp.UTC())
		ve.SetStartAt(e.Start.UTC())
		ve.SetEndAt(e.End.UTC())
		ve.SetSummary(e.Title)
		if room := names.Rooms[e.RoomID]; room != "" {
			ve.SetLocation(room)
		}
		if desc := describe(e, names); desc != "" {
			ve.SetDescription(desc)
		}
	}
	return cal.Serialize()
}

func describe(e schedule.Event, names Names) string {
	var parts []string
	if c := names.Coaches[e.CoachID]; c != "" {
		parts = append(parts, "Coach: "+c)
	}
	if e.Capacity > 0 {
		parts = append(parts, "Capacity: "+strconv.Itoa(e.Capacity))
	}
	return strings.Join(parts, "\n")
}

