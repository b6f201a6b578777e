package classtype

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain errors
var (
	ErrEmptyName         = errors.New("class type name cannot be empty")
	ErrEmptyBoxID        = errors.New("box ID cannot be empty")
	ErrNegativeDuration  = errors.New("default duration cannot be negative")
	ErrNegativeCapacity  = errors.New("default capacity cannot be negative")
	ErrInvalidColor      = errors.New("color must be a hex value like #1e88e5")
	ErrDurationTooLong   = errors.New("default duration cannot exceed one day")
	ErrEmptyPaletteID    = errors.New("palette item is missing its class type ID")
	ErrEmptyPaletteTitle = errors.New("palette item is missing its title")
)

// Max length constants.
const (
	MaxNameLength      = 100
	MaxDurationMinutes = 24 * 60
)

// DefaultColor is used when a class type has no color of its own.
const DefaultColor = "#3788d8"

// ClassType is a kind of class a box runs (WOD, Weightlifting, Open Box...).
// Its name becomes the title of every event created from it.
type ClassType struct {
	ID    string
	BoxID string
	Name  string
	Color string

	// Defaults copied onto new calendar events; zero means "not set".
	DefaultDurationMinutes int
	DefaultCapacity        int

	CreatedAt time.Time
}

// Validate checks if the ClassType has valid data.
// PRE: ClassType struct is populated
// POST: Returns nil if valid, error otherwise
func (c *ClassType) Validate() error {
	if strings.TrimSpace(c.BoxID) == "" {
		return ErrEmptyBoxID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > MaxNameLength {
		return fmt.Errorf("class type name cannot exceed %d characters", MaxNameLength)
	}
	if c.DefaultDurationMinutes < 0 {
		return ErrNegativeDuration
	}
	if c.DefaultDurationMinutes > MaxDurationMinutes {
		return ErrDurationTooLong
	}
	if c.DefaultCapacity < 0 {
		return ErrNegativeCapacity
	}
	if c.Color != "" && !IsHexColor(c.Color) {
		return ErrInvalidColor
	}
	return nil
}

// DisplayColor returns the class type color or the calendar default.
func (c ClassType) DisplayColor() string {
	if c.Color == "" {
		return DefaultColor
	}
	return c.Color
}

// PaletteItem is the JSON payload a palette entry carries on drag start.
type PaletteItem struct {
	ClassTypeID     string `json:"classTypeId"`
	Title           string `json:"title"`
	Color           string `json:"color"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	Capacity        int    `json:"capacity,omitempty"`
}

// Palette returns the drag payload describing this class type.
func (c ClassType) Palette() PaletteItem {
	return PaletteItem{
		ClassTypeID:     c.ID,
		Title:           c.Name,
		Color:           c.DisplayColor(),
		DurationMinutes: c.DefaultDurationMinutes,
		Capacity:        c.DefaultCapacity,
	}
}

// Validate checks a decoded drag payload.
func (p PaletteItem) Validate() error {
	if strings.TrimSpace(p.ClassTypeID) == "" {
		return ErrEmptyPaletteID
	}
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyPaletteTitle
	}
	if p.DurationMinutes < 0 || p.DurationMinutes > MaxDurationMinutes {
		return ErrNegativeDuration
	}
	if p.Capacity < 0 {
		return ErrNegativeCapacity
	}
	return nil
}

// IsHexColor reports whether s looks like #rgb or #rrggbb.
func IsHexColor(s string) bool {
	if len(s) != 4 && len(s) != 7 {
		return false
	}
	if s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
