// Package planning persists a box's saved sections and holds each session's working day.
package planning

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"boxdesk/internal/adapters/storage/savedsection"
	"boxdesk/internal/domain/planner"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// Service is the box-wide saved section library backed by a store.
type Service struct {
	store savedsection.Store
	now   func() time.Time
	md    goldmark.Markdown

	// boxLocks serializes list-dedup-write per box; values are *sync.Mutex.
	boxLocks sync.Map
}

func (s *Service) lockBox(boxID string) func() {
	m, _ := s.boxLocks.LoadOrStore(boxID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// NewService creates a Service. now defaults to time.Now.
func NewService(store savedsection.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store: store,
		now:   now,
		md:    goldmark.New(goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps())),
	}
}

// Library loads the box's saved sections, deduplicated by label.
func (s *Service) Library(ctx context.Context, boxID string) (*planner.Library, error) {
	saved, err := s.store.ListByBox(ctx, boxID)
	if err != nil {
		return nil, fmt.Errorf("list saved sections: %w", err)
	}
	return planner.NewLibrary(boxID, saved), nil
}

// Saved lists the box's saved sections.
func (s *Service) Saved(ctx context.Context, boxID string) ([]planner.SavedSection, error) {
	lib, err := s.Library(ctx, boxID)
	if err != nil {
		return nil, err
	}
	return lib.List(), nil
}

// SaveAsTemplate stores section in the box library, overwriting any entry with the same label.
// POST: exactly one row is written; created is false when an entry was overwritten
func (s *Service) SaveAsTemplate(ctx context.Context, boxID string, section planner.Section) (planner.SavedSection, bool, error) {
	defer s.lockBox(boxID)()

	lib, err := s.Library(ctx, boxID)
	if err != nil {
		return planner.SavedSection{}, false, err
	}
	saved, created, err := lib.SaveAsTemplate(section, s.now())
	if err != nil {
		return planner.SavedSection{}, false, err
	}
	if err := s.store.Save(ctx, saved); err != nil {
		return planner.SavedSection{}, false, fmt.Errorf("save section %s: %w", saved.ID, err)
	}
	slog.Info("planner_event", "event", "section_saved", "box_id", boxID, "saved_id", saved.ID, "created", created)
	return saved, created, nil
}

// DeleteSaved removes a saved section from the box library.
func (s *Service) DeleteSaved(ctx context.Context, boxID, id string) error {
	if err := s.store.Delete(ctx, boxID, id); err != nil {
		return fmt.Errorf("delete saved section %s: %w", id, err)
	}
	slog.Info("planner_event", "event", "saved_deleted", "box_id", boxID, "saved_id", id)
	return nil
}

// Preview is the rendered HTML for a section's text and coach notes.
type Preview struct {
	Text       string `json:"text"`
	CoachNotes string `json:"coachNotes"`
}

// Preview renders section markdown. Raw HTML in the source is not passed through.
func (s *Service) Preview(section planner.Section) (Preview, error) {
	text, err := s.render(section.Text)
	if err != nil {
		return Preview{}, err
	}
	notes, err := s.render(section.CoachNotes)
	if err != nil {
		return Preview{}, err
	}
	return Preview{Text: text, CoachNotes: notes}, nil
}

func (s *Service) render(src string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
