// Package workspace keeps one working session per signed-in staff token and
// evicts the ones left idle.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"boxdesk/internal/adapters/notify"
	"boxdesk/internal/application/planning"
	"boxdesk/internal/application/scheduling"

	"github.com/robfig/cron/v3"
)

// DefaultTTL is how long an untouched workspace survives.
const DefaultTTL = 2 * time.Hour

// DefaultReapSpec runs the reaper once a minute.
const DefaultReapSpec = "@every 1m"

// Workspace is everything one staff member is editing: the week, the planned day and
// the toasts queued for their browser.
type Workspace struct {
	BoxID    string
	Schedule *scheduling.Session
	Planner  *planning.Planner
	Toasts   *notify.ToastBuffer

	lastSeen time.Time
}

// Factory builds a fresh workspace for a box.
type Factory func(ctx context.Context, boxID string) (*Workspace, error)

// Registry maps session tokens to workspaces.
type Registry struct {
	create Factory
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	items map[string]*Workspace

	cron *cron.Cron
}

// NewRegistry creates a registry. ttl <= 0 uses DefaultTTL; now defaults to time.Now.
func NewRegistry(create Factory, ttl time.Duration, now func() time.Time) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{create: create, ttl: ttl, now: now, items: make(map[string]*Workspace)}
}

// Get returns the workspace for token, creating it on first use, and marks it as seen.
// PRE: token and boxID are non-empty
// POST: a workspace for another box is never returned
func (r *Registry) Get(ctx context.Context, token, boxID string) (*Workspace, error) {
	r.mu.Lock()
	if ws, ok := r.items[token]; ok && ws.BoxID == boxID {
		ws.lastSeen = r.now()
		r.mu.Unlock()
		return ws, nil
	}
	r.mu.Unlock()

	ws, err := r.create(ctx, boxID)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	ws.BoxID = boxID

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another request for the same token may have won the race.
	if existing, ok := r.items[token]; ok && existing.BoxID == boxID {
		existing.lastSeen = r.now()
		return existing, nil
	}
	ws.lastSeen = r.now()
	r.items[token] = ws
	slog.Debug("workspace_event", "event", "created", "box_id", boxID)
	return ws, nil
}

// Remove drops the workspace for token, discarding unsaved changes.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, token)
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Reap evicts every workspace idle for longer than the TTL.
// The registry lock is released before evicted sessions are inspected, since a
// session mid-commit holds its own lock across database calls.
// POST: returns the number of workspaces evicted
func (r *Registry) Reap() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	var evicted []*Workspace
	for token, ws := range r.items {
		if ws.lastSeen.Before(cutoff) {
			evicted = append(evicted, ws)
			delete(r.items, token)
		}
	}
	remaining := len(r.items)
	r.mu.Unlock()

	for _, ws := range evicted {
		if ws.Schedule != nil && ws.Schedule.Pending().Dirty {
			slog.Info("workspace_event", "event", "unsaved_discarded", "box_id", ws.BoxID)
		}
	}
	if len(evicted) > 0 {
		slog.Info("workspace_event", "event", "reaped", "count", len(evicted), "remaining", remaining)
	}
	return len(evicted)
}

// Start schedules Reap on spec (standard cron syntax or descriptors such as "@every 1m").
func (r *Registry) Start(spec string) error {
	if spec == "" {
		spec = DefaultReapSpec
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.Reap() }); err != nil {
		return fmt.Errorf("schedule reaper %q: %w", spec, err)
	}
	c.Start()
	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()
	return nil
}

// Stop halts the reaper and waits for a running reap to finish.
func (r *Registry) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
