package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"boxdesk/internal/adapters/ics"
	"boxdesk/internal/application/orchestrators"
	"boxdesk/internal/application/scheduling"
	"boxdesk/internal/domain/classtype"
	"boxdesk/internal/domain/dnd"
	"boxdesk/internal/domain/schedule"
)

const anchorLayout = "2006-01-02"

type eventProps struct {
	RoomID      string `json:"roomId"`
	ClassTypeID string `json:"classTypeId"`
	CoachID     string `json:"coachId,omitempty"`
	Capacity    int    `json:"capacity"`
}

// eventJSON is the calendar widget's event shape.
type eventJSON struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	Editable        bool       `json:"editable"`
	BackgroundColor string     `json:"backgroundColor"`
	ExtendedProps   eventProps `json:"extendedProps"`
}

func toEventJSON(e schedule.Event) eventJSON {
	return eventJSON{
		ID:              e.ID,
		Title:           e.Title,
		Start:           e.Start,
		End:             e.End,
		Editable:        e.Editable,
		BackgroundColor: e.Color,
		ExtendedProps: eventProps{
			RoomID:      e.RoomID,
			ClassTypeID: e.ClassTypeID,
			CoachID:     e.CoachID,
			Capacity:    e.Capacity,
		},
	}
}

func toEventsJSON(events []schedule.Event) []eventJSON {
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, toEventJSON(e))
	}
	return out
}

type columnJSON struct {
	roomJSON
	Events []eventJSON `json:"events"`
}

type weekJSON struct {
	From    time.Time               `json:"from"`
	To      time.Time               `json:"to"`
	Dirty   bool                    `json:"dirty"`
	Rooms   []columnJSON            `json:"rooms"`
	Palette []classtype.PaletteItem `json:"palette"`
	Coaches []coachJSON             `json:"coaches"`
}

func toWeekJSON(w scheduling.Week) weekJSON {
	out := weekJSON{
		From:    w.From,
		To:      w.To,
		Dirty:   w.Dirty,
		Rooms:   make([]columnJSON, 0, len(w.Columns)),
		Palette: w.Palette(),
		Coaches: make([]coachJSON, 0, len(w.Coaches)),
	}
	for _, c := range w.Columns {
		out.Rooms = append(out.Rooms, columnJSON{
			roomJSON: roomJSON{ID: c.Room.ID, Name: c.Room.Name, Color: c.Room.Color},
			Events:   toEventsJSON(c.Events),
		})
	}
	for _, c := range w.Coaches {
		out.Coaches = append(out.Coaches, coachJSON{ID: c.ID, Name: c.Name, Role: c.Role})
	}
	return out
}

// scheduleError maps session errors to responses. Validation failures never change state,
// so the client is told to revert the gesture.
func scheduleError(w http.ResponseWriter, err error) {
	var commitErr *orchestrators.CommitError
	switch {
	case errors.Is(err, schedule.ErrNotEditable),
		errors.Is(err, schedule.ErrPastInterval),
		errors.Is(err, schedule.ErrEventNotFound),
		errors.Is(err, schedule.ErrInvalidInterval),
		errors.Is(err, schedule.ErrPartialMinute),
		errors.Is(err, schedule.ErrRoomNotFound),
		errors.Is(err, schedule.ErrNegativeCapacity),
		errors.Is(err, scheduling.ErrUnknownClassType),
		errors.Is(err, scheduling.ErrUnknownCoach),
		errors.Is(err, dnd.ErrUnknownSource),
		errors.Is(err, dnd.ErrBadPayload):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Revert: true})
	case errors.Is(err, scheduling.ErrNotLoaded):
		writeJSON(w, http.StatusConflict, errorBody{Error: "load the week first", Revert: true})
	case errors.As(err, &commitErr):
		// Details are logged by the session; the client only learns that it failed.
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "could not save the schedule", Retry: true})
	case errors.Is(err, scheduling.ErrFetchWeek):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "could not load the week", Retry: true})
	default:
		internalError(w, err)
	}
}

func badJSON(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Revert: true})
}

// handleScheduleWeek handles GET /api/schedule/week?anchor=YYYY-MM-DD[&reload=1].
// The working state is returned as is unless another week is requested or a reload is forced;
// loading discards unsaved changes.
func handleScheduleWeek(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	s := ws.Schedule
	q := r.URL.Query()

	week, err := s.Week()
	loaded := err == nil
	anchor := timeNow()
	if loaded {
		anchor = week.From
	}
	if a := q.Get("anchor"); a != "" {
		d, perr := time.ParseInLocation(anchorLayout, a, s.Location())
		if perr != nil {
			http.Error(w, "anchor must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		anchor = d
	}

	from, _ := schedule.WeekRange(anchor, s.Location())
	if !loaded || q.Get("reload") == "1" || !from.Equal(week.From) {
		if week, err = s.Load(r.Context(), anchor); err != nil {
			scheduleError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toWeekJSON(week))
}

// handleScheduleICS handles GET /api/schedule/week.ics
func handleScheduleICS(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	week, err := ws.Schedule.Week()
	if errors.Is(err, scheduling.ErrNotLoaded) {
		week, err = ws.Schedule.Load(r.Context(), timeNow())
	}
	if err != nil {
		scheduleError(w, err)
		return
	}
	names := ics.Names{Rooms: map[string]string{}, Coaches: map[string]string{}}
	for _, c := range week.Columns {
		names.Rooms[c.Room.ID] = c.Room.Name
	}
	for _, c := range week.Coaches {
		names.Coaches[c.ID] = c.Name
	}
	calName := "Schedule " + week.From.Format(anchorLayout)
	if b, err := stores.BoxStore.GetByID(r.Context(), ws.BoxID); err == nil {
		calName = b.Name + " " + week.From.Format(anchorLayout)
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="week-`+week.From.Format(anchorLayout)+`.ics"`)
	w.Write([]byte(ics.ExportWeek(calName, week.Events(), names, timeNow())))
}

type pendingJSON struct {
	Changed []eventJSON `json:"changed"`
	Deleted []string    `json:"deleted"`
	Dirty   bool        `json:"dirty"`
}

// handleSchedulePending handles GET /api/schedule/pending
func handleSchedulePending(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	p := ws.Schedule.Pending()
	deleted := p.Deleted
	if deleted == nil {
		deleted = []string{}
	}
	writeJSON(w, http.StatusOK, pendingJSON{Changed: toEventsJSON(p.Changed), Deleted: deleted, Dirty: p.Dirty})
}

// handleScheduleSelect handles POST /api/schedule/select
func handleScheduleSelect(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	var input struct {
		RoomID      string    `json:"roomId"`
		Start       time.Time `json:"start"`
		End         time.Time `json:"end"`
		ClassTypeID string    `json:"classTypeId"`
		CoachID     string    `json:"coachId"`
		Capacity    int       `json:"capacity"`
	}
	if err := strictDecode(r, &input); err != nil {
		badJSON(w)
		return
	}
	ev, err := ws.Schedule.Select(scheduling.SelectInput{
		RoomID:      input.RoomID,
		Start:       input.Start,
		End:         input.End,
		ClassTypeID: input.ClassTypeID,
		CoachID:     input.CoachID,
		Capacity:    input.Capacity,
	})
	if err != nil {
		scheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventJSON(ev))
}

type dropResult struct {
	Applied bool       `json:"applied"`
	Event   *eventJSON `json:"event,omitempty"`
}

func writeDrop(w http.ResponseWriter, ev schedule.Event, applied bool, created bool) {
	if !applied {
		writeJSON(w, http.StatusOK, dropResult{})
		return
	}
	out := toEventJSON(ev)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dropResult{Applied: true, Event: &out})
}

// handleScheduleReceive handles POST /api/schedule/receive: a palette item dropped on the grid.
func handleScheduleReceive(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	var input struct {
		RoomID  string          `json:"roomId"`
		Start   time.Time       `json:"start"`
		End     time.Time       `json:"end"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := strictDecode(r, &input); err != nil {
		badJSON(w)
		return
	}
	if len(input.Payload) == 0 {
		scheduleError(w, dnd.ErrBadPayload)
		return
	}
	src, err := dnd.ParseSource("", input.Payload)
	if err != nil {
		scheduleError(w, err)
		return
	}
	ev, applied, err := ws.Schedule.Drop(src, dnd.GridSlot{RoomID: input.RoomID, Start: input.Start, End: input.End})
	if err != nil {
		scheduleError(w, err)
		return
	}
	writeDrop(w, ev, applied, true)
}

// handleScheduleDrop handles POST /api/schedule/drop: an existing event moved on the grid.
func handleScheduleDrop(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	var input struct {
		EventID string    `json:"eventId"`
		RoomID  string    `json:"roomId"`
		Start   time.Time `json:"start"`
		End     time.Time `json:"end"`
	}
	if err := strictDecode(r, &input); err != nil {
		badJSON(w)
		return
	}
	src, err := dnd.ParseSource(input.EventID, nil)
	if err != nil {
		scheduleError(w, err)
		return
	}
	if _, ok := src.(dnd.ExistingEvent); !ok {
		scheduleError(w, dnd.ErrUnknownSource)
		return
	}
	ev, applied, err := ws.Schedule.Drop(src, dnd.GridSlot{RoomID: input.RoomID, Start: input.Start, End: input.End})
	if err != nil {
		scheduleError(w, err)
		return
	}
	writeDrop(w, ev, applied, false)
}

// handleScheduleResize handles POST /api/schedule/resize
func handleScheduleResize(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	var input struct {
		EventID string    `json:"eventId"`
		Start   time.Time `json:"start"`
		End     time.Time `json:"end"`
	}
	if err := strictDecode(r, &input); err != nil {
		badJSON(w)
		return
	}
	ev, err := ws.Schedule.Resize(input.EventID, input.Start, input.End)
	if err != nil {
		scheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventJSON(ev))
}

// handleScheduleEdit handles PUT /api/schedule/events/{id} from the edit modal.
func handleScheduleEdit(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	// omitted fields keep their current value
	var input struct {
		RoomID   string    `json:"roomId"`
		Start    time.Time `json:"start"`
		End      time.Time `json:"end"`
		CoachID  *string   `json:"coachId"`
		Capacity *int      `json:"capacity"`
	}
	if err := strictDecode(r, &input); err != nil {
		badJSON(w)
		return
	}
	ev, err := ws.Schedule.Edit(pathID(r), scheduling.EditInput{
		RoomID:   input.RoomID,
		Start:    input.Start,
		End:      input.End,
		CoachID:  input.CoachID,
		Capacity: input.Capacity,
	})
	if err != nil {
		scheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventJSON(ev))
}

// handleScheduleDelete handles DELETE /api/schedule/events/{id}
func handleScheduleDelete(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	if err := ws.Schedule.Delete(pathID(r)); err != nil {
		scheduleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commitJSON struct {
	Upserted int `json:"upserted"`
	Deleted  int `json:"deleted"`
}

// handleScheduleCommit handles POST /api/schedule/commit
func handleScheduleCommit(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	res, err := ws.Schedule.Commit(r.Context())
	if err != nil {
		scheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commitJSON{Upserted: res.Upserted, Deleted: res.Deleted})
}
