package planner

import (
	"boxdesk/internal/domain/dnd"
)

// SavedLookup resolves saved sections by ID when instantiating them.
type SavedLookup interface {
	Get(id string) (SavedSection, bool)
}

// SectionPatch carries optional edits; nil fields are left alone.
type SectionPatch struct {
	Label      *string `json:"label"`
	Color      *string `json:"color"`
	Text       *string `json:"text"`
	CoachNotes *string `json:"coachNotes"`
}

// Day is the ordered list of working sections for one planned day.
// Sections returned to callers are deep copies.
type Day struct {
	sections []Section
}

// NewDay creates an empty day.
func NewDay() *Day {
	return &Day{}
}

// Sections returns a deep copy of the day in order.
func (d *Day) Sections() []Section {
	out := make([]Section, len(d.sections))
	for i, s := range d.sections {
		out[i] = cloneSection(s)
	}
	return out
}

// Get returns a copy of one section.
func (d *Day) Get(id string) (Section, bool) {
	if i := d.index(id); i >= 0 {
		return cloneSection(d.sections[i]), true
	}
	return Section{}, false
}

// Apply dispatches a planner gesture.
// PRE: src and tgt come from dnd.ParseSource / dnd.ParseTarget
// POST: returns the created section for instantiations; changed is false for no-op pairs
func (d *Day) Apply(src dnd.Source, tgt dnd.Target, saved SavedLookup) (created *Section, changed bool, err error) {
	switch a := dnd.Classify(src, tgt, "").(type) {
	case dnd.InstantiateTemplate:
		tpl, ok := FindTemplate(a.TemplateID)
		if !ok {
			return nil, false, ErrTemplateNotFound
		}
		s := Section{
			ID:           NewSectionID(),
			Label:        tpl.Label,
			Color:        tpl.Color,
			Placeholder:  tpl.Placeholder,
			Associations: []Association{},
		}
		d.sections = append(d.sections, s)
		out := cloneSection(s)
		return &out, true, nil
	case dnd.InstantiateSaved:
		if saved == nil {
			return nil, false, ErrSavedNotFound
		}
		sv, ok := saved.Get(a.SavedID)
		if !ok {
			return nil, false, ErrSavedNotFound
		}
		s := Section{
			ID:           NewSectionID(),
			Label:        sv.Label,
			Color:        sv.Color,
			Text:         sv.Text,
			Placeholder:  sv.Placeholder,
			Associations: cloneAssociations(sv.Associations),
			CoachNotes:   sv.CoachNotes,
		}
		d.sections = append(d.sections, s)
		out := cloneSection(s)
		return &out, true, nil
	case dnd.ReorderSection:
		if err := d.Reorder(a.SectionID, a.TargetID); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}
	return nil, false, nil
}

// Reorder moves sectionID to the index held by targetID. Intervening sections shift by one.
func (d *Day) Reorder(sectionID, targetID string) error {
	from := d.index(sectionID)
	to := d.index(targetID)
	if from < 0 || to < 0 {
		return ErrSectionNotFound
	}
	if from == to {
		return nil
	}
	moved := d.sections[from]
	rest := append(d.sections[:from:from], d.sections[from+1:]...)
	next := make([]Section, 0, len(d.sections))
	next = append(next, rest[:to]...)
	next = append(next, moved)
	next = append(next, rest[to:]...)
	d.sections = next
	return nil
}

// Remove deletes a section from the day.
func (d *Day) Remove(id string) error {
	i := d.index(id)
	if i < 0 {
		return ErrSectionNotFound
	}
	d.sections = append(d.sections[:i:i], d.sections[i+1:]...)
	return nil
}

// Update applies a patch to one section.
func (d *Day) Update(id string, p SectionPatch) (Section, error) {
	i := d.index(id)
	if i < 0 {
		return Section{}, ErrSectionNotFound
	}
	s := d.sections[i]
	if p.Label != nil {
		if len(*p.Label) > MaxLabelLength {
			return Section{}, ErrLabelTooLong
		}
		s.Label = *p.Label
	}
	if p.Color != nil {
		s.Color = *p.Color
	}
	if p.Text != nil {
		s.Text = *p.Text
	}
	if p.CoachNotes != nil {
		s.CoachNotes = *p.CoachNotes
	}
	d.sections[i] = s
	return cloneSection(s), nil
}

// AddAssociation appends an association to a section.
func (d *Day) AddAssociation(id string, a Association) (Section, error) {
	if err := a.Validate(); err != nil {
		return Section{}, err
	}
	i := d.index(id)
	if i < 0 {
		return Section{}, ErrSectionNotFound
	}
	d.sections[i].Associations = append(cloneAssociations(d.sections[i].Associations), a)
	return cloneSection(d.sections[i]), nil
}

// RemoveAssociation drops the association at index from a section.
func (d *Day) RemoveAssociation(id string, index int) (Section, error) {
	i := d.index(id)
	if i < 0 {
		return Section{}, ErrSectionNotFound
	}
	as := d.sections[i].Associations
	if index < 0 || index >= len(as) {
		return Section{}, ErrAssociationIndex
	}
	next := make([]Association, 0, len(as)-1)
	next = append(next, as[:index]...)
	next = append(next, as[index+1:]...)
	d.sections[i].Associations = next
	return cloneSection(d.sections[i]), nil
}

func (d *Day) index(id string) int {
	for i, s := range d.sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}
