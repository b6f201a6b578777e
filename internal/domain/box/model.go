package box

import (
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrEmptyName       = errors.New("box name cannot be empty")
	ErrInvalidTimezone = errors.New("box timezone is not a valid IANA zone")
)

// DefaultTimezone is used when a box has not set one.
const DefaultTimezone = "America/Sao_Paulo"

// Box is a tenant: one gym with its own rooms, class types and staff.
type Box struct {
	ID       string
	Name     string
	Timezone string
}

// Validate checks if the Box has valid data.
// PRE: Box struct is populated
// POST: Returns nil if valid, error otherwise
func (b *Box) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if b.Timezone != "" {
		if _, err := time.LoadLocation(b.Timezone); err != nil {
			return ErrInvalidTimezone
		}
	}
	return nil
}

// Location resolves the box's display zone, falling back to fallback when unset or unknown.
func (b Box) Location(fallback *time.Location) *time.Location {
	if b.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}
