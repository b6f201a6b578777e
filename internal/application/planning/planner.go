package planning

import (
	"context"
	"log/slog"
	"sync"

	"boxdesk/internal/domain/dnd"
	"boxdesk/internal/domain/planner"
)

// Planner is one session's working day. Saved sections are read through the service
// so a template saved from another session is visible on the next drop.
type Planner struct {
	svc   *Service
	boxID string

	mu  sync.Mutex
	day *planner.Day
}

// NewPlanner creates an empty working day for boxID.
func (s *Service) NewPlanner(boxID string) *Planner {
	return &Planner{svc: s, boxID: boxID, day: planner.NewDay()}
}

// Drop applies a planner gesture identified by DOM-style source and target IDs.
// changed is false when the pair is not a recognised gesture.
func (p *Planner) Drop(ctx context.Context, sourceID, targetID string) (created *planner.Section, changed bool, err error) {
	src, err := dnd.ParseSource(sourceID, nil)
	if err != nil {
		return nil, false, err
	}
	tgt, err := dnd.ParseTarget(targetID)
	if err != nil {
		return nil, false, err
	}

	var lookup planner.SavedLookup = planner.NewLibrary(p.boxID, nil)
	if _, ok := src.(dnd.SavedTemplate); ok {
		lib, err := p.svc.Library(ctx, p.boxID)
		if err != nil {
			return nil, false, err
		}
		lookup = lib
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	created, changed, err = p.day.Apply(src, tgt, lookup)
	if err != nil {
		return nil, false, err
	}
	if created != nil {
		slog.Debug("planner_event", "event", "section_added", "box_id", p.boxID, "section_id", created.ID, "source", sourceID)
	}
	return created, changed, nil
}

// Sections returns the working day in order.
func (p *Planner) Sections() []planner.Section {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.day.Sections()
}

// Get returns one working section.
func (p *Planner) Get(id string) (planner.Section, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.day.Get(id)
}

// Update edits a section's label, color, text or coach notes.
func (p *Planner) Update(id string, patch planner.SectionPatch) (planner.Section, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.day.Update(id, patch)
}

// Remove deletes a section from the working day.
func (p *Planner) Remove(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.day.Remove(id)
}

// AddAssociation appends an exercise association to a section.
func (p *Planner) AddAssociation(id string, a planner.Association) (planner.Section, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.day.AddAssociation(id, a)
}

// RemoveAssociation drops the association at index.
func (p *Planner) RemoveAssociation(id string, index int) (planner.Section, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.day.RemoveAssociation(id, index)
}

// Save stores a working section in the box library.
func (p *Planner) Save(ctx context.Context, id string) (planner.SavedSection, bool, error) {
	section, ok := p.Get(id)
	if !ok {
		return planner.SavedSection{}, false, planner.ErrSectionNotFound
	}
	return p.svc.SaveAsTemplate(ctx, p.boxID, section)
}

// Preview renders one working section's markdown.
func (p *Planner) Preview(id string) (Preview, error) {
	section, ok := p.Get(id)
	if !ok {
		return Preview{}, planner.ErrSectionNotFound
	}
	return p.svc.Preview(section)
}
