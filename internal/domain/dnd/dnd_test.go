package dnd_test

import (
	"testing"
	"time"

	"boxdesk/internal/domain/classtype"
	"boxdesk/internal/domain/dnd"
	"boxdesk/internal/domain/schedule"
)

var saoPaulo = time.FixedZone("BRT", -3*60*60)

const eventID = "4f7c6a8e-1f0b-4c2e-9d55-0a6b7e1c2d3f"

// TestParseSource tests resolution of drag source IDs and payloads.
func TestParseSource(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		payload string
		want    dnd.Source
		wantErr error
	}{
		{"palette template", "tpl-warmup", "", dnd.PaletteTemplate{TemplateID: "tpl-warmup"}, nil},
		{"saved template", "sav-123", "", dnd.SavedTemplate{SavedID: "sav-123"}, nil},
		{"existing section", "sec-abc", "", dnd.ExistingSection{SectionID: "sec-abc"}, nil},
		{"existing event", eventID, "", dnd.ExistingEvent{EventID: eventID}, nil},
		{"class type payload", "palette-wod", `{"classTypeId":"ct-wod","title":"WOD","color":"#e53935","durationMinutes":60,"capacity":15}`,
			dnd.PaletteClassType{Item: classtype.PaletteItem{ClassTypeID: "ct-wod", Title: "WOD", Color: "#e53935", DurationMinutes: 60, Capacity: 15}}, nil},
		{"bare prefix", "tpl-", "", nil, dnd.ErrUnknownSource},
		{"garbage", "hello", "", nil, dnd.ErrUnknownSource},
		{"bad json", "palette-wod", `{"classTypeId":`, nil, dnd.ErrBadPayload},
		{"payload missing class type", "palette-wod", `{"title":"WOD"}`, nil, dnd.ErrBadPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload []byte
			if tt.payload != "" {
				payload = []byte(tt.payload)
			}
			got, err := dnd.ParseSource(tt.id, payload)
			if err != tt.wantErr {
				t.Fatalf("ParseSource() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSource() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

// TestParseTarget tests resolution of planner drop targets.
func TestParseTarget(t *testing.T) {
	if got, err := dnd.ParseTarget("day"); err != nil || got != (dnd.DayContainer{}) {
		t.Errorf("ParseTarget(day) = %#v, %v", got, err)
	}
	if got, err := dnd.ParseTarget("sec-2"); err != nil || got != (dnd.SectionSlot{SectionID: "sec-2"}) {
		t.Errorf("ParseTarget(sec-2) = %#v, %v", got, err)
	}
	if _, err := dnd.ParseTarget("sav-1"); err != dnd.ErrUnknownTarget {
		t.Errorf("ParseTarget(sav-1) error = %v, want ErrUnknownTarget", err)
	}
}

// TestClassify covers every row of the dispatch table plus the no-op fallthrough.
func TestClassify(t *testing.T) {
	mon9 := time.Date(2026, 3, 16, 9, 0, 0, 0, saoPaulo)
	wod := classtype.PaletteItem{ClassTypeID: "ct-wod", Title: "WOD", DurationMinutes: 60, Capacity: 15}
	open := classtype.PaletteItem{ClassTypeID: "ct-open", Title: "Open Box"}
	slot := dnd.GridSlot{RoomID: "main", Start: mon9, End: mon9.Add(30 * time.Minute)}

	tests := []struct {
		name        string
		src         dnd.Source
		tgt         dnd.Target
		currentRoom string
		want        dnd.Action
	}{
		{"template onto day", dnd.PaletteTemplate{TemplateID: "tpl-wod"}, dnd.DayContainer{}, "", dnd.InstantiateTemplate{TemplateID: "tpl-wod"}},
		{"saved onto day", dnd.SavedTemplate{SavedID: "sav-1"}, dnd.DayContainer{}, "", dnd.InstantiateSaved{SavedID: "sav-1"}},
		{"section onto section", dnd.ExistingSection{SectionID: "sec-1"}, dnd.SectionSlot{SectionID: "sec-3"}, "", dnd.ReorderSection{SectionID: "sec-1", TargetID: "sec-3"}},
		{"section onto itself", dnd.ExistingSection{SectionID: "sec-1"}, dnd.SectionSlot{SectionID: "sec-1"}, "", dnd.None{}},
		{"class type with default duration", dnd.PaletteClassType{Item: wod}, slot, "",
			dnd.CreateEvent{Item: wod, RoomID: "main", Start: mon9, End: mon9.Add(time.Hour)}},
		{"class type without default duration", dnd.PaletteClassType{Item: open}, slot, "",
			dnd.CreateEvent{Item: open, RoomID: "main", Start: mon9, End: mon9.Add(30 * time.Minute)}},
		{"class type without any end", dnd.PaletteClassType{Item: open}, dnd.GridSlot{RoomID: "main", Start: mon9}, "", dnd.None{}},
		{"event same room", dnd.ExistingEvent{EventID: eventID}, slot, "main",
			dnd.UpdateEventTimes{RoomID: "main", EventID: eventID, Start: slot.Start, End: slot.End}},
		{"event other room", dnd.ExistingEvent{EventID: eventID}, slot, "studio",
			dnd.MoveEventAcrossRooms{From: "studio", To: "main", EventID: eventID, Start: slot.Start, End: slot.End}},
		{"event of unknown room", dnd.ExistingEvent{EventID: eventID}, slot, "", dnd.None{}},
		{"template onto grid", dnd.PaletteTemplate{TemplateID: "tpl-wod"}, slot, "", dnd.None{}},
		{"class type onto day", dnd.PaletteClassType{Item: wod}, dnd.DayContainer{}, "", dnd.None{}},
		{"event onto section", dnd.ExistingEvent{EventID: eventID}, dnd.SectionSlot{SectionID: "sec-1"}, "main", dnd.None{}},
		{"saved onto section", dnd.SavedTemplate{SavedID: "sav-1"}, dnd.SectionSlot{SectionID: "sec-1"}, "", dnd.None{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dnd.Classify(tt.src, tt.tgt, tt.currentRoom); got != tt.want {
				t.Errorf("Classify() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

// TestAcceptGates tests the past-interval gates against the release-time clock.
func TestAcceptGates(t *testing.T) {
	now := time.Date(2026, 3, 18, 0, 5, 0, 0, saoPaulo) // just after midnight
	today := time.Date(2026, 3, 18, 0, 0, 0, 0, saoPaulo)

	if err := dnd.AcceptDrop(now, saoPaulo, today); err != nil {
		t.Errorf("drop ending at midnight today rejected: %v", err)
	}
	if err := dnd.AcceptDrop(now, saoPaulo, today.Add(-time.Second)); err != schedule.ErrPastInterval {
		t.Errorf("drop ending yesterday error = %v, want ErrPastInterval", err)
	}
	if err := dnd.AcceptSelect(now, saoPaulo, today.Add(time.Hour)); err != nil {
		t.Errorf("select today rejected: %v", err)
	}
	if err := dnd.AcceptSelect(now, saoPaulo, today.Add(-time.Hour)); err != schedule.ErrPastInterval {
		t.Errorf("select yesterday error = %v, want ErrPastInterval", err)
	}

	// A gesture that began before midnight is judged by the time it is released.
	pickedUp := now.Add(-10 * time.Minute)
	lateSlot := today.Add(-time.Minute)
	if err := dnd.AcceptDrop(pickedUp, saoPaulo, lateSlot); err != nil {
		t.Fatalf("at pick-up time the slot was valid: %v", err)
	}
	if err := dnd.AcceptDrop(now, saoPaulo, lateSlot); err != schedule.ErrPastInterval {
		t.Errorf("at release time error = %v, want ErrPastInterval", err)
	}
}
