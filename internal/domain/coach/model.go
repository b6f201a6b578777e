package coach

import (
	"errors"
	"strings"
	"time"
)

// Role constants for coaching staff.
const (
	RoleHeadCoach = "head_coach"
	RoleCoach     = "coach"
	RoleIntern    = "intern"
)

// Domain errors
var (
	ErrEmptyName   = errors.New("coach name cannot be empty")
	ErrEmptyBoxID  = errors.New("box ID cannot be empty")
	ErrInvalidRole = errors.New("role must be one of: head_coach, coach, intern")
)

// Coach is a staff member who can be assigned to lead a class.
type Coach struct {
	ID        string
	BoxID     string
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
}

// Validate checks if the Coach has valid data.
func (c *Coach) Validate() error {
	if strings.TrimSpace(c.BoxID) == "" {
		return ErrEmptyBoxID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	switch c.Role {
	case RoleHeadCoach, RoleCoach, RoleIntern:
		return nil
	}
	return ErrInvalidRole
}
