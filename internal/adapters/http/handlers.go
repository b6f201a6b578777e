package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"boxdesk/internal/adapters/http/middleware"
	"boxdesk/internal/application/orchestrators"
	"boxdesk/internal/application/workspace"
	"boxdesk/internal/domain/classtype"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode_failed", "error", err)
	}
}

// errorBody is what gesture endpoints return on rejection. Revert tells the widget
// to snap the element back; Retry marks a transient failure.
type errorBody struct {
	Error  string `json:"error"`
	Revert bool   `json:"revert,omitempty"`
	Retry  bool   `json:"retry,omitempty"`
}

// currentWorkspace returns the caller's workspace. RequireAuth has already run.
func currentWorkspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	staff, ok := middleware.StaffFrom(r.Context())
	if !ok {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return nil, false
	}
	ws, err := workspaces.Get(r.Context(), staff.Token, staff.BoxID)
	if err != nil {
		internalError(w, err)
		return nil, false
	}
	return ws, true
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

// handleLogin handles POST /api/login with a JSON body.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := strictDecode(r, &input); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    input.Email,
		Password: input.Password,
	}, orchestrators.LoginDeps{AccountStore: stores.AccountStore, Now: timeNow})
	if errors.Is(err, orchestrators.ErrInvalidCredentials) || errors.Is(err, orchestrators.ErrAccountLocked) {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	if _, err := sessions.SignIn(w, middleware.Staff{
		AccountID: result.AccountID,
		BoxID:     result.BoxID,
		Email:     result.Email,
		Role:      result.Role,
	}); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meJSON{AccountID: result.AccountID, BoxID: result.BoxID, Email: result.Email, Role: result.Role})
}

// handleLogout handles POST /api/logout. Unsaved changes are discarded.
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessions.SignOut(w, r); token != "" {
		workspaces.Remove(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

type meJSON struct {
	AccountID string `json:"accountId"`
	BoxID     string `json:"boxId"`
	BoxName   string `json:"boxName,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// handleMe handles GET /api/me
func handleMe(w http.ResponseWriter, r *http.Request) {
	staff, _ := middleware.StaffFrom(r.Context())
	b, err := stores.BoxStore.GetByID(r.Context(), staff.BoxID)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meJSON{
		AccountID: staff.AccountID, BoxID: staff.BoxID, BoxName: b.Name, Timezone: b.Timezone,
		Email: staff.Email, Role: staff.Role,
	})
}

type roomJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// handleRooms handles GET /api/rooms
func handleRooms(w http.ResponseWriter, r *http.Request) {
	staff, _ := middleware.StaffFrom(r.Context())
	rooms, err := stores.RoomStore.ListByBox(r.Context(), staff.BoxID)
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]roomJSON, 0, len(rooms))
	for _, rm := range rooms {
		out = append(out, roomJSON{ID: rm.ID, Name: rm.Name, Color: rm.Color})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleClassTypes handles GET /api/class-types. Each entry is the palette drag payload.
func handleClassTypes(w http.ResponseWriter, r *http.Request) {
	staff, _ := middleware.StaffFrom(r.Context())
	cts, err := stores.ClassTypeStore.ListByBox(r.Context(), staff.BoxID)
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]classtype.PaletteItem, 0, len(cts))
	for _, ct := range cts {
		out = append(out, ct.Palette())
	}
	writeJSON(w, http.StatusOK, out)
}

type coachJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// handleCoaches handles GET /api/coaches
func handleCoaches(w http.ResponseWriter, r *http.Request) {
	staff, _ := middleware.StaffFrom(r.Context())
	coaches, err := stores.CoachStore.ListByBox(r.Context(), staff.BoxID)
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]coachJSON, 0, len(coaches))
	for _, c := range coaches {
		out = append(out, coachJSON{ID: c.ID, Name: c.Name, Role: c.Role})
	}
	writeJSON(w, http.StatusOK, out)
}

type toastJSON struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// handleToasts handles GET /api/toasts, draining the caller's queue.
func handleToasts(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r)
	if !ok {
		return
	}
	toasts := ws.Toasts.Drain()
	out := make([]toastJSON, 0, len(toasts))
	for _, t := range toasts {
		out = append(out, toastJSON{Level: string(t.Level), Message: t.Message, At: t.At})
	}
	writeJSON(w, http.StatusOK, out)
}

// pathID returns the trimmed {id} wildcard.
func pathID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}
