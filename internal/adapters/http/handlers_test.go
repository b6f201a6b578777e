package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"boxdesk/internal/adapters/http/middleware"
	accountStore "boxdesk/internal/adapters/storage/account"
	boxStore "boxdesk/internal/adapters/storage/box"
	classTypeStore "boxdesk/internal/adapters/storage/classtype"
	coachStore "boxdesk/internal/adapters/storage/coach"
	roomStore "boxdesk/internal/adapters/storage/room"
	savedSectionStore "boxdesk/internal/adapters/storage/savedsection"
	scheduleStore "boxdesk/internal/adapters/storage/schedule"
	"boxdesk/internal/adapters/storage/storagetest"
	"boxdesk/internal/application/planning"
	"boxdesk/internal/application/scheduling"
	"boxdesk/internal/application/workspace"
	accountDomain "boxdesk/internal/domain/account"
)

const (
	testEmail    = "owner@example.com"
	testPassword = "correct horse battery"
)

var brt = time.FixedZone("BRT", -3*60*60)

// wednesday is the fixed "now" for every request in this file.
var wednesday = time.Date(2026, 3, 18, 10, 0, 0, 0, brt)

type harness struct {
	t      *testing.T
	db     *sql.DB
	h      http.Handler
	cookie *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := storagetest.Open(t)
	storagetest.SeedBox(t, db, "box-1")

	accounts := accountStore.NewSQLiteStore(db)
	acct := accountDomain.Account{ID: "acct-1", BoxID: "box-1", Email: testEmail, Role: accountDomain.RoleOwner, CreatedAt: wednesday}
	if err := acct.SetPassword(testPassword); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if err := accounts.Save(context.Background(), acct); err != nil {
		t.Fatalf("save account: %v", err)
	}

	clock := func() time.Time { return wednesday }
	prevNow := timeNow
	timeNow = clock
	t.Cleanup(func() { timeNow = prevNow })

	s := &Stores{
		AccountStore:   accounts,
		BoxStore:       boxStore.NewSQLiteStore(db),
		RoomStore:      roomStore.NewSQLiteStore(db),
		ClassTypeStore: classTypeStore.NewSQLiteStore(db),
		CoachStore:     coachStore.NewSQLiteStore(db),
	}
	plan := planning.NewService(savedSectionStore.NewSQLiteStore(db), clock)
	registry := workspace.NewRegistry(workspace.NewFactory(workspace.FactoryDeps{
		Boxes: s.BoxStore,
		Schedule: scheduling.Stores{
			Rooms:      s.RoomStore,
			ClassTypes: s.ClassTypeStore,
			Coaches:    s.CoachStore,
			Instances:  scheduleStore.NewSQLiteStore(db),
		},
		Planning: plan,
		Location: brt,
		Now:      clock,
	}), time.Hour, clock)

	h, err := NewMux(Deps{
		Stores:             s,
		Workspaces:         registry,
		Planning:           plan,
		RateLimitPerSecond: 1000,
	})
	if err != nil {
		t.Fatalf("NewMux: %v", err)
	}
	return &harness{t: t, db: db, h: h}
}

// do sends a JSON request, with the login cookie when there is one.
func (h *harness) do(method, path string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	return rec
}

// browser sends a bodyless request the way fetch does: no Content-Type,
// same-origin fetch metadata.
func (h *harness) browser(method, path string) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("Origin", "http://example.com")
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login() {
	h.t.Helper()
	rec := h.do("POST", "/api/login", map[string]string{"email": testEmail, "password": testPassword})
	if rec.Code != http.StatusOK {
		h.t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CookieName {
			h.cookie = c
		}
	}
	if h.cookie == nil {
		h.t.Fatal("login did not set a session cookie")
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func wodPayload(start time.Time) map[string]any {
	return map[string]any{
		"roomId": "box-1-room",
		"start":  start,
		"end":    start.Add(time.Hour),
		"payload": map[string]any{
			"classTypeId": "box-1-wod", "title": "WOD", "color": "#e53935",
			"durationMinutes": 60, "capacity": 15,
		},
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newHarness(t)
	rec := h.do("POST", "/api/login", map[string]string{"email": testEmail, "password": "not the password"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRoutes_RequireLogin(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/api/me", "/api/schedule/week", "/api/planner/day", "/api/toasts"} {
		if rec := h.do("GET", path, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", path, rec.Code)
		}
	}
	if rec := h.do("GET", "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
}

func TestSchedule_ReceivePendingCommit(t *testing.T) {
	h := newHarness(t)
	h.login()

	rec := h.do("GET", "/api/schedule/week?anchor=2026-03-18", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("week status = %d, body = %s", rec.Code, rec.Body.String())
	}
	week := decode[weekJSON](t, rec)
	if len(week.Rooms) != 1 || week.Rooms[0].ID != "box-1-room" || len(week.Rooms[0].Events) != 0 {
		t.Fatalf("rooms = %+v, want one empty Main Floor column", week.Rooms)
	}
	if len(week.Palette) != 1 || week.Palette[0].ClassTypeID != "box-1-wod" {
		t.Errorf("palette = %+v", week.Palette)
	}

	thursday := time.Date(2026, 3, 19, 9, 0, 0, 0, brt)
	rec = h.do("POST", "/api/schedule/receive", wodPayload(thursday))
	if rec.Code != http.StatusCreated {
		t.Fatalf("receive status = %d, body = %s", rec.Code, rec.Body.String())
	}
	drop := decode[dropResult](t, rec)
	if !drop.Applied || drop.Event == nil || drop.Event.ExtendedProps.ClassTypeID != "box-1-wod" {
		t.Fatalf("drop = %+v", drop)
	}

	pending := decode[pendingJSON](t, h.do("GET", "/api/schedule/pending", nil))
	if !pending.Dirty || len(pending.Changed) != 1 {
		t.Fatalf("pending = %+v, want one staged event", pending)
	}

	rec = h.do("POST", "/api/schedule/commit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("commit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := decode[commitJSON](t, rec); got.Upserted != 1 {
		t.Errorf("commit = %+v, want 1 upsert", got)
	}
	var rows int
	if err := h.db.QueryRow("SELECT COUNT(*) FROM class_instance WHERE box_id = 'box-1'").Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Errorf("class_instance rows = %d, want 1", rows)
	}

	pending = decode[pendingJSON](t, h.do("GET", "/api/schedule/pending", nil))
	if pending.Dirty {
		t.Errorf("pending after commit = %+v, want clean", pending)
	}
	week = decode[weekJSON](t, h.do("GET", "/api/schedule/week", nil))
	if len(week.Rooms[0].Events) != 1 || week.Rooms[0].Events[0].ID != drop.Event.ID {
		t.Errorf("events after commit = %+v, want the committed event", week.Rooms[0].Events)
	}

	toasts := decode[[]toastJSON](t, h.do("GET", "/api/toasts", nil))
	if len(toasts) == 0 || toasts[len(toasts)-1].Level != "success" {
		t.Errorf("toasts = %+v, want a success toast", toasts)
	}
}

func TestSchedule_RejectsPastDrop(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.do("GET", "/api/schedule/week?anchor=2026-03-18", nil)

	tuesday := time.Date(2026, 3, 17, 9, 0, 0, 0, brt)
	rec := h.do("POST", "/api/schedule/receive", wodPayload(tuesday))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", rec.Code, rec.Body.String())
	}
	if body := decode[errorBody](t, rec); !body.Revert {
		t.Errorf("body = %+v, want revert", body)
	}
	if pending := decode[pendingJSON](t, h.do("GET", "/api/schedule/pending", nil)); pending.Dirty {
		t.Error("a rejected drop must not stage anything")
	}
}

func TestSchedule_GestureBeforeLoad(t *testing.T) {
	h := newHarness(t)
	h.login()
	rec := h.do("POST", "/api/schedule/receive", wodPayload(time.Date(2026, 3, 19, 9, 0, 0, 0, brt)))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestSchedule_WeekICS(t *testing.T) {
	h := newHarness(t)
	h.login()
	rec := h.do("GET", "/api/schedule/week.ics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "BEGIN:VCALENDAR") {
		t.Errorf("body is not a calendar: %q", rec.Body.String())
	}
}

func TestPlanner_Flow(t *testing.T) {
	h := newHarness(t)
	h.login()

	rec := h.do("POST", "/api/planner/drop", map[string]string{"sourceId": "tpl-wod", "targetId": "day"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("drop status = %d, body = %s", rec.Code, rec.Body.String())
	}
	dropped := decode[struct {
		Changed bool `json:"changed"`
		Created *struct {
			ID string `json:"id"`
		} `json:"created"`
	}](t, rec)
	if !dropped.Changed || dropped.Created == nil {
		t.Fatalf("drop = %+v", dropped)
	}
	id := dropped.Created.ID

	rec = h.do("PATCH", "/api/planner/sections/"+id, map[string]string{"text": "**21-15-9** <script>"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", rec.Code, rec.Body.String())
	}
	rec = h.do("GET", "/api/planner/preview?id="+id, nil)
	preview := decode[planning.Preview](t, rec)
	if !strings.Contains(preview.Text, "<strong>21-15-9</strong>") || strings.Contains(preview.Text, "<script>") {
		t.Errorf("preview = %q", preview.Text)
	}

	if rec = h.do("POST", "/api/planner/sections/"+id+"/save", nil); rec.Code != http.StatusCreated {
		t.Fatalf("first save status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec = h.do("POST", "/api/planner/sections/"+id+"/save", nil); rec.Code != http.StatusOK {
		t.Errorf("second save status = %d, want 200", rec.Code)
	}
	saved := decode[[]struct {
		ID string `json:"id"`
	}](t, h.do("GET", "/api/planner/saved", nil))
	if len(saved) != 1 {
		t.Fatalf("saved = %+v, want one entry", saved)
	}

	rec = h.do("POST", "/api/planner/drop", map[string]string{"sourceId": saved[0].ID, "targetId": "day"})
	if rec.Code != http.StatusCreated {
		t.Errorf("saved drop status = %d, body = %s", rec.Code, rec.Body.String())
	}

	if rec = h.do("POST", "/api/planner/drop", map[string]string{"sourceId": "bogus", "targetId": "day"}); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown source status = %d, want 422", rec.Code)
	}
	if rec = h.do("DELETE", "/api/planner/sections/sec-missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("remove missing status = %d, want 404", rec.Code)
	}
	if rec = h.do("DELETE", "/api/planner/saved/"+saved[0].ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete saved status = %d, want 204", rec.Code)
	}
}

func TestLogout_DropsSession(t *testing.T) {
	h := newHarness(t)
	h.login()
	if rec := h.do("GET", "/api/me", nil); rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	if rec := h.do("POST", "/api/logout", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}
	if rec := h.do("GET", "/api/me", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout status = %d, want 401", rec.Code)
	}
}

func TestBodylessCalls_PassCSRF(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.do("GET", "/api/schedule/week?anchor=2026-03-18", nil)

	thursday := time.Date(2026, 3, 19, 9, 0, 0, 0, brt)
	drop := decode[dropResult](t, h.do("POST", "/api/schedule/receive", wodPayload(thursday)))
	if rec := h.browser("POST", "/api/schedule/commit"); rec.Code != http.StatusOK {
		t.Fatalf("commit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := h.browser("DELETE", "/api/schedule/events/"+drop.Event.ID); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := h.browser("POST", "/api/schedule/commit"); rec.Code != http.StatusOK {
		t.Errorf("second commit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := h.browser("POST", "/api/logout"); rec.Code != http.StatusNoContent {
		t.Errorf("logout status = %d", rec.Code)
	}
}

func TestCrossSiteCalls_Rejected(t *testing.T) {
	h := newHarness(t)
	h.login()
	req := httptest.NewRequest("POST", "/api/schedule/commit", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.AddCookie(h.cookie)
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("cross-site commit status = %d, want 403", rec.Code)
	}
}

func TestScheduleEdit_OmittedCapacityKept(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.do("GET", "/api/schedule/week?anchor=2026-03-18", nil)
	drop := decode[dropResult](t, h.do("POST", "/api/schedule/receive", wodPayload(time.Date(2026, 3, 19, 9, 0, 0, 0, brt))))

	newEnd := time.Date(2026, 3, 19, 10, 30, 0, 0, brt)
	rec := h.do("PUT", "/api/schedule/events/"+drop.Event.ID, map[string]any{"end": newEnd})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body = %s", rec.Code, rec.Body.String())
	}
	got := decode[eventJSON](t, rec)
	if got.ExtendedProps.Capacity != 15 || !got.End.Equal(newEnd) {
		t.Errorf("edited = %+v, want capacity 15 kept and end moved", got)
	}
}
