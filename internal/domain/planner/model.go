// Package planner models a coach's workout day: an ordered list of sections
// built from palette templates or saved sections, and the box's saved library.
package planner

import (
	"errors"
	"strings"
	"time"

	"boxdesk/internal/domain/dnd"

	"github.com/google/uuid"
)

// Domain errors
var (
	ErrEmptyLabel       = errors.New("section label cannot be empty")
	ErrEmptyBoxID       = errors.New("saved section must belong to a box")
	ErrSectionNotFound  = errors.New("section not found")
	ErrSavedNotFound    = errors.New("saved section not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrEmptyWorkoutType = errors.New("association needs a workout type")
	ErrEmptyResultType  = errors.New("association needs a result type")
	ErrAssociationIndex = errors.New("association index out of range")
	ErrLabelTooLong     = errors.New("section label cannot exceed 80 characters")
)

// MaxLabelLength bounds section labels.
const MaxLabelLength = 80

// Association links a section to a scored workout.
type Association struct {
	WorkoutType string `json:"workoutType"`
	ResultType  string `json:"resultType"`
	Value       string `json:"value,omitempty"`
	Exercise    string `json:"exercise,omitempty"`
	Sets        string `json:"sets,omitempty"`
}

// Validate checks an association before it is attached.
func (a Association) Validate() error {
	if strings.TrimSpace(a.WorkoutType) == "" {
		return ErrEmptyWorkoutType
	}
	if strings.TrimSpace(a.ResultType) == "" {
		return ErrEmptyResultType
	}
	return nil
}

// Section is one block of a working day (sec-*).
type Section struct {
	ID           string        `json:"id"`
	Label        string        `json:"label"`
	Color        string        `json:"color"`
	Text         string        `json:"text"`
	Placeholder  string        `json:"placeholder"`
	Associations []Association `json:"associations"`
	CoachNotes   string        `json:"coachNotes"`
}

// SavedSection is a reusable section kept in the box's library (sav-*).
type SavedSection struct {
	ID           string        `json:"id"`
	BoxID        string        `json:"-"`
	Label        string        `json:"label"`
	Color        string        `json:"color"`
	Placeholder  string        `json:"placeholder"`
	Text         string        `json:"text"`
	Associations []Association `json:"associations"`
	CoachNotes   string        `json:"coachNotes"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Validate checks if the SavedSection has valid data.
// PRE: SavedSection struct is populated
// POST: Returns nil if valid, error otherwise
func (s *SavedSection) Validate() error {
	if strings.TrimSpace(s.BoxID) == "" {
		return ErrEmptyBoxID
	}
	if strings.TrimSpace(s.Label) == "" {
		return ErrEmptyLabel
	}
	if len(s.Label) > MaxLabelLength {
		return ErrLabelTooLong
	}
	return nil
}

// Template is a built-in palette entry (tpl-*).
type Template struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	Placeholder string `json:"placeholder"`
}

var templates = []Template{
	{ID: dnd.PrefixTemplate + "warmup", Label: "Aquecimento", Color: "#fb8c00", Placeholder: "3 rounds: 200m run, 10 air squats, 10 PVC pass-throughs"},
	{ID: dnd.PrefixTemplate + "skill", Label: "Técnica", Color: "#8e24aa", Placeholder: "Movimento do dia e progressões"},
	{ID: dnd.PrefixTemplate + "strength", Label: "Força", Color: "#1e88e5", Placeholder: "Back squat 5x5 @ 75%"},
	{ID: dnd.PrefixTemplate + "wod", Label: "WOD", Color: "#e53935", Placeholder: "AMRAP 12: 10 wall balls, 10 box jumps"},
	{ID: dnd.PrefixTemplate + "cooldown", Label: "Desaquecimento", Color: "#43a047", Placeholder: "Mobilidade e alongamento"},
}

// Templates returns the built-in palette in display order.
func Templates() []Template {
	out := make([]Template, len(templates))
	copy(out, templates)
	return out
}

// FindTemplate looks a palette template up by ID.
func FindTemplate(id string) (Template, bool) {
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// NormalizeLabel is the dedup key for saved sections.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// NewSectionID returns a fresh working section ID.
func NewSectionID() string {
	return dnd.PrefixSection + uuid.NewString()
}

// NewSavedID returns a fresh saved section ID.
func NewSavedID() string {
	return dnd.PrefixSaved + uuid.NewString()
}

func cloneAssociations(in []Association) []Association {
	out := make([]Association, len(in))
	copy(out, in)
	return out
}

func cloneSection(s Section) Section {
	s.Associations = cloneAssociations(s.Associations)
	return s
}

func cloneSaved(s SavedSection) SavedSection {
	s.Associations = cloneAssociations(s.Associations)
	return s
}
