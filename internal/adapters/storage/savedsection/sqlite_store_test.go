package savedsection

import (
	"context"
	"testing"
	"time"

	"boxdesk/internal/adapters/storage/storagetest"
	domain "boxdesk/internal/domain/planner"
)

// TestSQLiteStore_SaveOverwritesInPlace tests JSON associations and ID-stable overwrite.
func TestSQLiteStore_SaveOverwritesInPlace(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.SeedBox(t, db, "box-1")
	storagetest.SeedBox(t, db, "box-2")
	store := NewSQLiteStore(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 16, 7, 0, 0, 0, time.UTC)

	first := domain.SavedSection{
		ID: "sav-1", BoxID: "box-1", Label: "Força", Color: "#1e88e5", Text: "Back squat 5x5",
		Associations: []domain.Association{{WorkoutType: "strength", ResultType: "load", Exercise: "back squat", Sets: "5x5"}},
		UpdatedAt:    now,
	}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	store.Save(ctx, domain.SavedSection{ID: "sav-2", BoxID: "box-1", Label: "WOD", UpdatedAt: now})
	store.Save(ctx, domain.SavedSection{ID: "sav-3", BoxID: "box-2", Label: "Other box", UpdatedAt: now})

	second := first
	second.Label = "força"
	second.Text = "Press 5x5"
	second.Associations = nil
	second.UpdatedAt = now.Add(time.Hour)
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save(overwrite): %v", err)
	}

	got, err := store.ListByBox(ctx, "box-1")
	if err != nil {
		t.Fatalf("ListByBox: %v", err)
	}
	if len(got) != 2 || got[0].ID != "sav-1" || got[1].ID != "sav-2" {
		t.Fatalf("ListByBox = %+v", got)
	}
	if got[0].Label != "força" || got[0].Text != "Press 5x5" || len(got[0].Associations) != 0 || !got[0].UpdatedAt.Equal(second.UpdatedAt) {
		t.Errorf("overwrite not applied: %+v", got[0])
	}

	if err := store.Delete(ctx, "box-1", "sav-2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ = store.ListByBox(ctx, "box-1")
	if len(got) != 1 {
		t.Errorf("len after delete = %d, want 1", len(got))
	}
}

// TestSQLiteStore_AssociationsRoundTrip tests association field preservation.
func TestSQLiteStore_AssociationsRoundTrip(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.SeedBox(t, db, "box-1")
	store := NewSQLiteStore(db)
	ctx := context.Background()

	want := []domain.Association{
		{WorkoutType: "for_time", ResultType: "time", Value: "12:00", Exercise: "thrusters"},
		{WorkoutType: "amrap", ResultType: "rounds", Sets: "1"},
	}
	store.Save(ctx, domain.SavedSection{ID: "sav-1", BoxID: "box-1", Label: "WOD", Associations: want, UpdatedAt: time.Now()})

	got, _ := store.ListByBox(ctx, "box-1")
	if len(got) != 1 || len(got[0].Associations) != 2 || got[0].Associations[0] != want[0] || got[0].Associations[1] != want[1] {
		t.Errorf("associations = %+v, want %+v", got, want)
	}
}

func TestSQLiteStore_SameLabelUnderNewIDKeepsFirstRow(t *testing.T) {
	db := storagetest.Open(t)
	storagetest.SeedBox(t, db, "box-1")
	storagetest.SeedBox(t, db, "box-2")
	store := NewSQLiteStore(db)
	ctx := context.Background()
	now := time.Date(2026, 3, 16, 7, 0, 0, 0, time.UTC)

	for _, sv := range []domain.SavedSection{
		{ID: "sav-a", BoxID: "box-1", Label: "Força", Text: "first", UpdatedAt: now},
		{ID: "sav-b", BoxID: "box-1", Label: "  FORÇA ", Text: "second", UpdatedAt: now},
		{ID: "sav-c", BoxID: "box-2", Label: "Força", UpdatedAt: now},
	} {
		if err := store.Save(ctx, sv); err != nil {
			t.Fatalf("Save(%s): %v", sv.ID, err)
		}
	}

	got, _ := store.ListByBox(ctx, "box-1")
	if len(got) != 1 || got[0].ID != "sav-a" || got[0].Text != "second" {
		t.Errorf("box-1 = %+v, want sav-a overwritten with the second save", got)
	}
	if other, _ := store.ListByBox(ctx, "box-2"); len(other) != 1 {
		t.Errorf("box-2 rows = %d, want 1 (labels are unique per box only)", len(other))
	}
}
