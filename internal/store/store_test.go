package store

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/claude/ironlog/internal/models"
)

func openTestStore(t *testing.T) *DB {
	t.Helper()
	s, err := Open(t.TempDir(), slog.Default())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestLoadEmptySlot verifies that an absent session slot yields nil, nil.
func TestLoadEmptySlot(t *testing.T) {
	s := openTestStore(t)

	sess, err := s.LoadSession(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != nil {
		t.Errorf("expected no session, got %+v", sess)
	}
}

// TestSaveLoadRoundTrip verifies that a saved session reads back with its
// exercises, sets and derived fields intact.
func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := &models.Session{
		Name:      "Push Day",
		StartedAt: time.Date(2026, 2, 14, 18, 0, 0, 0, time.UTC),
		Exercises: []models.PerformedExercise{
			{
				Exercise:    models.ExerciseRef{Name: "Bench Press", MuscleGroup: "Chest"},
				RestSeconds: 120,
				Sets: []models.Set{
					{Reps: 8, Weight: 60, Status: models.SetCompleted},
					{Reps: 8, Weight: 60, Status: models.SetPending},
				},
			},
		},
		TotalVolumeKg:  480,
		ElapsedSeconds: 315,
	}

	if err := s.SaveSession(ctx, sess); err != nil {
		t.Fatalf("saving session: %v", err)
	}

	got, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	if got == nil {
		t.Fatal("expected a session, got nil")
	}
	if got.Name != "Push Day" {
		t.Errorf("name = %q, want %q", got.Name, "Push Day")
	}
	if got.TotalVolumeKg != 480 {
		t.Errorf("volume = %d, want 480", got.TotalVolumeKg)
	}
	if len(got.Exercises) != 1 || len(got.Exercises[0].Sets) != 2 {
		t.Fatalf("exercises/sets not preserved: %+v", got.Exercises)
	}
	if got.Exercises[0].Sets[0].Status != models.SetCompleted {
		t.Errorf("set status = %q, want completed", got.Exercises[0].Sets[0].Status)
	}
}

// TestSaveOverwritesSlot verifies the store is single-slot: a second save
// replaces the first.
func TestSaveOverwritesSlot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveSession(ctx, &models.Session{Name: "first"}); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if err := s.SaveSession(ctx, &models.Session{Name: "second"}); err != nil {
		t.Fatalf("saving: %v", err)
	}

	got, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if got.Name != "second" {
		t.Errorf("name = %q, want %q", got.Name, "second")
	}
}

// TestClearSession verifies that clearing removes both the session slot and
// the minimized flag.
func TestClearSession(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveSession(ctx, &models.Session{Name: "doomed"}); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if err := s.SetMinimized(ctx, true); err != nil {
		t.Fatalf("setting flag: %v", err)
	}

	if err := s.ClearSession(ctx); err != nil {
		t.Fatalf("clearing: %v", err)
	}

	sess, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if sess != nil {
		t.Error("session slot should be empty after clear")
	}
	minimized, err := s.Minimized(ctx)
	if err != nil {
		t.Fatalf("reading flag: %v", err)
	}
	if minimized {
		t.Error("minimized flag should be cleared")
	}
}

// TestMinimizedFlag verifies the flag round-trips and defaults to false.
func TestMinimizedFlag(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	minimized, err := s.Minimized(ctx)
	if err != nil {
		t.Fatalf("reading flag: %v", err)
	}
	if minimized {
		t.Error("flag should default to false")
	}

	if err := s.SetMinimized(ctx, true); err != nil {
		t.Fatalf("setting flag: %v", err)
	}
	minimized, err = s.Minimized(ctx)
	if err != nil {
		t.Fatalf("reading flag: %v", err)
	}
	if !minimized {
		t.Error("flag should be true after SetMinimized(true)")
	}

	if err := s.SetMinimized(ctx, false); err != nil {
		t.Fatalf("setting flag: %v", err)
	}
	minimized, err = s.Minimized(ctx)
	if err != nil {
		t.Fatalf("reading flag: %v", err)
	}
	if minimized {
		t.Error("flag should be false after SetMinimized(false)")
	}
}

// TestCorruptSlotTreatedAsAbsent verifies that unreadable slot contents are
// discarded instead of crashing the engine.
func TestCorruptSlotTreatedAsAbsent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO active_session (slot, payload) VALUES (1, ?)`,
		[]byte("{not json"))
	if err != nil {
		t.Fatalf("seeding corrupt payload: %v", err)
	}

	sess, err := s.LoadSession(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != nil {
		t.Errorf("corrupt slot should read as no session, got %+v", sess)
	}
}

// TestSurvivesReopen verifies read-after-write across a store reopen,
// simulating a process restart.
func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, slog.Default())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if err := s.SaveSession(ctx, &models.Session{Name: "persisted", ElapsedSeconds: 42}); err != nil {
		t.Fatalf("saving: %v", err)
	}
	if err := s.SetMinimized(ctx, true); err != nil {
		t.Fatalf("setting flag: %v", err)
	}
	s.Close()

	s2, err := Open(dir, slog.Default())
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer s2.Close()

	got, err := s2.LoadSession(ctx)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if got == nil || got.Name != "persisted" {
		t.Fatalf("session did not survive reopen: %+v", got)
	}
	minimized, err := s2.Minimized(ctx)
	if err != nil {
		t.Fatalf("reading flag: %v", err)
	}
	if !minimized {
		t.Error("minimized flag did not survive reopen")
	}
}
