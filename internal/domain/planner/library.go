package planner

import "time"

// Library is a box's saved sections, deduplicated by normalized label.
// INVARIANT: no two entries share NormalizeLabel(Label).
type Library struct {
	boxID string
	saved []SavedSection
}

// NewLibrary wraps previously persisted sections. Later duplicates of a label are dropped.
func NewLibrary(boxID string, saved []SavedSection) *Library {
	l := &Library{boxID: boxID}
	seen := make(map[string]bool, len(saved))
	for _, s := range saved {
		key := NormalizeLabel(s.Label)
		if seen[key] {
			continue
		}
		seen[key] = true
		l.saved = append(l.saved, cloneSaved(s))
	}
	return l
}

// Get returns a copy of the saved section with id.
func (l *Library) Get(id string) (SavedSection, bool) {
	for _, s := range l.saved {
		if s.ID == id {
			return cloneSaved(s), true
		}
	}
	return SavedSection{}, false
}

// List returns copies of every saved section.
func (l *Library) List() []SavedSection {
	out := make([]SavedSection, len(l.saved))
	for i, s := range l.saved {
		out[i] = cloneSaved(s)
	}
	return out
}

// SaveAsTemplate stores a working section in the library.
// PRE: section.Label is non-blank
// POST: a new sav-* entry is appended, or the entry with the same normalized label is
// overwritten in place keeping its ID; created reports which
func (l *Library) SaveAsTemplate(section Section, now time.Time) (saved SavedSection, created bool, err error) {
	key := NormalizeLabel(section.Label)
	if key == "" {
		return SavedSection{}, false, ErrEmptyLabel
	}
	next := SavedSection{
		BoxID:        l.boxID,
		Label:        section.Label,
		Color:        section.Color,
		Placeholder:  section.Placeholder,
		Text:         section.Text,
		Associations: cloneAssociations(section.Associations),
		CoachNotes:   section.CoachNotes,
		UpdatedAt:    now,
	}
	for i, s := range l.saved {
		if NormalizeLabel(s.Label) == key {
			next.ID = s.ID
			if err := next.Validate(); err != nil {
				return SavedSection{}, false, err
			}
			l.saved[i] = next
			return cloneSaved(next), false, nil
		}
	}
	next.ID = NewSavedID()
	if err := next.Validate(); err != nil {
		return SavedSection{}, false, err
	}
	l.saved = append(l.saved, next)
	return cloneSaved(next), true, nil
}
