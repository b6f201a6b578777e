package room

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrEmptyName   = errors.New("room name cannot be empty")
	ErrEmptyBoxID  = errors.New("box ID cannot be empty")
	ErrNameTooLong = errors.New("room name cannot exceed 100 characters")
)

// MaxNameLength bounds room names.
const MaxNameLength = 100

// Room is a space inside a box where classes run. Each room is one calendar column.
type Room struct {
	ID        string
	BoxID     string
	Name      string
	Color     string
	CreatedAt time.Time
}

// Validate checks if the Room has valid data.
// PRE: Room struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Room) Validate() error {
	if strings.TrimSpace(r.BoxID) == "" {
		return ErrEmptyBoxID
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if len(r.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}
