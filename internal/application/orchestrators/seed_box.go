package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"boxdesk/internal/domain/account"
	"boxdesk/internal/domain/box"
	"boxdesk/internal/domain/classtype"
	"boxdesk/internal/domain/coach"
	"boxdesk/internal/domain/room"

	"github.com/google/uuid"
)

// SeedBoxDeps holds stores needed for dev seeding.
type SeedBoxDeps struct {
	BoxStore interface {
		Save(ctx context.Context, b box.Box) error
		List(ctx context.Context) ([]box.Box, error)
	}
	RoomStore interface {
		Save(ctx context.Context, r room.Room) error
	}
	ClassTypeStore interface {
		Save(ctx context.Context, c classtype.ClassType) error
	}
	CoachStore interface {
		Save(ctx context.Context, c coach.Coach) error
	}
	AccountStore interface {
		Save(ctx context.Context, a account.Account) error
		GetByEmail(ctx context.Context, email string) (account.Account, error)
	}
	Now        func() time.Time
	GenerateID func() string
}

// SeedBoxInput names the box and its owner login.
type SeedBoxInput struct {
	BoxName       string
	Timezone      string
	AdminEmail    string
	AdminPassword string
}

// SeedBoxResult reports what was created. Seeded is false when a box already existed.
type SeedBoxResult struct {
	BoxID  string
	Seeded bool
}

type seedClassType struct {
	Name     string
	Color    string
	Duration int
	Capacity int
}

func seedClassTypes() []seedClassType {
	return []seedClassType{
		{Name: "WOD", Color: "#e53935", Duration: 60, Capacity: 15},
		{Name: "Weightlifting", Color: "#1e88e5", Duration: 60, Capacity: 10},
		{Name: "Gymnastics", Color: "#8e24aa", Duration: 45, Capacity: 12},
		{Name: "Mobility", Color: "#43a047", Duration: 30, Capacity: 20},
		{Name: "Open Box", Color: "#757575", Duration: 0, Capacity: 20},
	}
}

// ExecuteSeedBox creates a default box with rooms, class types, coaches and an owner account.
// PRE: input.AdminPassword satisfies account.SetPassword
// POST: idempotent; does nothing if any box exists
func ExecuteSeedBox(ctx context.Context, input SeedBoxInput, deps SeedBoxDeps) (SeedBoxResult, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	newID := uuid.NewString
	if deps.GenerateID != nil {
		newID = deps.GenerateID
	}

	existing, err := deps.BoxStore.List(ctx)
	if err != nil {
		return SeedBoxResult{}, fmt.Errorf("list boxes: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("seed_event", "event", "seed_skipped", "reason", "box_exists", "box_id", existing[0].ID)
		return SeedBoxResult{BoxID: existing[0].ID}, nil
	}

	b := box.Box{ID: newID(), Name: input.BoxName, Timezone: input.Timezone}
	if err := b.Validate(); err != nil {
		return SeedBoxResult{}, err
	}
	if err := deps.BoxStore.Save(ctx, b); err != nil {
		return SeedBoxResult{}, fmt.Errorf("save box: %w", err)
	}

	// created_at orders rooms; space them so "Main Floor" is always first
	base := now()
	for i, name := range []string{"Main Floor", "Studio B"} {
		r := room.Room{ID: newID(), BoxID: b.ID, Name: name, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := deps.RoomStore.Save(ctx, r); err != nil {
			return SeedBoxResult{}, fmt.Errorf("save room %s: %w", name, err)
		}
	}

	for _, def := range seedClassTypes() {
		ct := classtype.ClassType{
			ID: newID(), BoxID: b.ID, Name: def.Name, Color: def.Color,
			DefaultDurationMinutes: def.Duration, DefaultCapacity: def.Capacity, CreatedAt: base,
		}
		if err := ct.Validate(); err != nil {
			return SeedBoxResult{}, fmt.Errorf("class type %s: %w", def.Name, err)
		}
		if err := deps.ClassTypeStore.Save(ctx, ct); err != nil {
			return SeedBoxResult{}, fmt.Errorf("save class type %s: %w", def.Name, err)
		}
	}

	for _, c := range []coach.Coach{
		{Name: "Ana Souza", Email: "ana@example.com", Role: coach.RoleHeadCoach},
		{Name: "Bruno Lima", Email: "bruno@example.com", Role: coach.RoleCoach},
	} {
		c.ID, c.BoxID, c.CreatedAt = newID(), b.ID, base
		if err := deps.CoachStore.Save(ctx, c); err != nil {
			return SeedBoxResult{}, fmt.Errorf("save coach %s: %w", c.Name, err)
		}
	}

	if input.AdminEmail != "" {
		if _, err := deps.AccountStore.GetByEmail(ctx, input.AdminEmail); err == nil {
			slog.Info("seed_event", "event", "admin_exists", "email", input.AdminEmail)
		} else {
			acct := account.Account{ID: newID(), BoxID: b.ID, Email: input.AdminEmail, Role: account.RoleOwner, CreatedAt: base}
			if err := acct.SetPassword(input.AdminPassword); err != nil {
				return SeedBoxResult{}, fmt.Errorf("admin password: %w", err)
			}
			if err := acct.Validate(); err != nil {
				return SeedBoxResult{}, err
			}
			if err := deps.AccountStore.Save(ctx, acct); err != nil {
				return SeedBoxResult{}, fmt.Errorf("save admin: %w", err)
			}
		}
	}

	slog.Info("seed_event", "event", "box_seeded", "box_id", b.ID, "name", b.Name)
	return SeedBoxResult{BoxID: b.ID, Seeded: true}, nil
}
