package web

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"boxdesk/internal/adapters/http/middleware"
	accountStore "boxdesk/internal/adapters/storage/account"
	boxStore "boxdesk/internal/adapters/storage/box"
	classTypeStore "boxdesk/internal/adapters/storage/classtype"
	coachStore "boxdesk/internal/adapters/storage/coach"
	roomStore "boxdesk/internal/adapters/storage/room"
	"boxdesk/internal/application/planning"
	"boxdesk/internal/application/workspace"
)

// Stores holds the storage dependencies handlers read directly.
type Stores struct {
	AccountStore   accountStore.Store
	BoxStore       boxStore.Store
	RoomStore      roomStore.Store
	ClassTypeStore classTypeStore.Store
	CoachStore     coachStore.Store
}

// Deps configures NewMux.
type Deps struct {
	Stores     *Stores
	Workspaces *workspace.Registry
	Planning   *planning.Service

	// StaticDir is served at / when set.
	StaticDir string

	CSRFKey        string
	Production     bool
	TrustedOrigins []string

	RateLimitPerSecond int
	SlowRequestMs      int
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.Sessions

// Per-login working state (set by NewMux)
var workspaces *workspace.Registry

var planningService *planning.Service

// loadCSRFKey decodes a 64-character hex secret, or uses the first 32 bytes of a raw one.
// Outside production an empty key is replaced by a random per-process key.
func loadCSRFKey(raw string, production bool) ([]byte, error) {
	if key, err := hex.DecodeString(raw); err == nil && len(key) == 32 {
		return key, nil
	}
	if len(raw) >= 32 {
		return []byte(raw[:32]), nil
	}
	if production {
		return nil, errors.New("csrf_key is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	slog.Warn("csrf_key_generated", "reason", "csrf_key not set; form sessions will not survive restart")
	return key, nil
}

// NewMux wires HTTP handlers for the app.
func NewMux(deps Deps) (http.Handler, error) {
	stores = deps.Stores
	workspaces = deps.Workspaces
	planningService = deps.Planning
	sessions = middleware.NewSessions(middleware.DefaultSessionTTL, deps.Production)

	csrfKey, err := loadCSRFKey(deps.CSRFKey, deps.Production)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	if deps.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(deps.StaticDir)))
	}
	registerRoutes(mux)

	rate := deps.RateLimitPerSecond
	if rate <= 0 {
		rate = 10
	}
	limiter := middleware.NewRateLimiter(rate, time.Second)

	// Outermost last: Timing -> Auth -> RateLimit -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, deps.Production, deps.TrustedOrigins),
		middleware.RateLimit(limiter),
		middleware.Auth(sessions),
		middleware.Timing(deps.SlowRequestMs),
	), nil
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("POST /api/login", handleLogin)
	mux.HandleFunc("POST /api/logout", handleLogout)

	authed := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireStaff(h))
	}
	authed("GET /api/me", handleMe)
	authed("GET /api/rooms", handleRooms)
	authed("GET /api/class-types", handleClassTypes)
	authed("GET /api/coaches", handleCoaches)
	authed("GET /api/toasts", handleToasts)

	authed("GET /api/schedule/week", handleScheduleWeek)
	authed("GET /api/schedule/week.ics", handleScheduleICS)
	authed("GET /api/schedule/pending", handleSchedulePending)
	authed("POST /api/schedule/select", handleScheduleSelect)
	authed("POST /api/schedule/receive", handleScheduleReceive)
	authed("POST /api/schedule/drop", handleScheduleDrop)
	authed("POST /api/schedule/resize", handleScheduleResize)
	authed("PUT /api/schedule/events/{id}", handleScheduleEdit)
	authed("DELETE /api/schedule/events/{id}", handleScheduleDelete)
	authed("POST /api/schedule/commit", handleScheduleCommit)

	authed("GET /api/planner/day", handlePlannerDay)
	authed("GET /api/planner/templates", handlePlannerTemplates)
	authed("GET /api/planner/saved", handlePlannerSaved)
	authed("DELETE /api/planner/saved/{id}", handlePlannerDeleteSaved)
	authed("GET /api/planner/preview", handlePlannerPreview)
	authed("POST /api/planner/drop", handlePlannerDrop)
	authed("PATCH /api/planner/sections/{id}", handlePlannerUpdate)
	authed("DELETE /api/planner/sections/{id}", handlePlannerRemove)
	authed("POST /api/planner/sections/{id}/associations", handlePlannerAddAssociation)
	authed("DELETE /api/planner/sections/{id}/associations/{index}", handlePlannerRemoveAssociation)
	authed("POST /api/planner/sections/{id}/save", handlePlannerSave)
}
