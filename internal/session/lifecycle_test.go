package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/google/uuid"
)

// fakeSaver records finished workouts and can be told to fail.
type fakeSaver struct {
	mu   sync.Mutex
	fail bool
	got  []models.FinishedWorkout
	id   uuid.UUID
}

func (f *fakeSaver) SaveWorkout(_ context.Context, w models.FinishedWorkout) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return uuid.Nil, errors.New("archive rejected the workout")
	}
	f.got = append(f.got, w)
	return f.id, nil
}

func newTestController(t *testing.T) (*Controller, *Engine, *memStore, *fakeSaver) {
	t.Helper()
	st := &memStore{}
	eng := NewEngine(st, slog.Default())
	t.Cleanup(eng.reset)
	saver := &fakeSaver{id: uuid.New()}
	ctrl := NewController(eng, st, saver, slog.Default())
	return ctrl, eng, st, saver
}

// storeState serializes both persistence slots for byte-for-byte
// comparison.
func storeState(t *testing.T, st *memStore) string {
	t.Helper()
	st.mu.Lock()
	defer st.mu.Unlock()
	payload, err := json.Marshal(map[string]any{"session": st.sess, "minimized": st.minimized})
	if err != nil {
		t.Fatalf("marshaling store state: %v", err)
	}
	return string(payload)
}

// seedSession starts a session with two exercises and five completed sets.
func seedSession(t *testing.T, ctrl *Controller, eng *Engine) {
	t.Helper()
	ctx := context.Background()
	ctrl.Start(ctx)
	if err := eng.AddExercises(ctx, []ExercisePick{pick("Squat"), pick("Bench")}); err != nil {
		t.Fatalf("adding exercises: %v", err)
	}
	for range 2 {
		if err := eng.AddSet(ctx, 0); err != nil {
			t.Fatalf("adding set: %v", err)
		}
	}
	if err := eng.AddSet(ctx, 1); err != nil {
		t.Fatalf("adding set: %v", err)
	}
	// Five sets total; complete them all.
	for ex, sets := range map[int]int{0: 3, 1: 2} {
		for i := range sets {
			if _, err := eng.ToggleSetCompletion(context.Background(), ex, i); err != nil {
				t.Fatalf("toggling %d/%d: %v", ex, i, err)
			}
		}
	}
}

// TestFinalizeSuccess verifies the full happy path: the saver receives the
// record with floored minutes and exact volume, both slots clear, and the
// machine returns to NoSession.
func TestFinalizeSuccess(t *testing.T) {
	ctrl, eng, st, saver := newTestController(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return base }
	seedSession(t, ctrl, eng)
	if err := ctrl.Minimize(ctx); err != nil {
		t.Fatalf("minimize: %v", err)
	}

	eng.now = func() time.Time { return base.Add(150 * time.Second) }
	wantVolume := func() int {
		v, _ := eng.Snapshot()
		return models.TotalVolumeKg(v.Session.Exercises)
	}()

	id, record, err := ctrl.Finalize(ctx, "Leg Day", "tough")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if id != saver.id {
		t.Errorf("workout id = %v, want %v", id, saver.id)
	}
	if record.Name != "Leg Day" || record.Notes != "tough" {
		t.Errorf("record metadata = %q/%q, want Leg Day/tough", record.Name, record.Notes)
	}
	if record.DurationMinutes != 2 {
		t.Errorf("duration = %d minutes, want 2 (floor of 150s)", record.DurationMinutes)
	}
	if record.TotalVolumeKg != wantVolume {
		t.Errorf("volume = %d, want %d", record.TotalVolumeKg, wantVolume)
	}
	if len(saver.got) != 1 {
		t.Fatalf("saver received %d records, want 1", len(saver.got))
	}

	if st.stored() != nil {
		t.Error("session slot should be cleared after save")
	}
	if minimized, _ := st.Minimized(ctx); minimized {
		t.Error("minimized flag should be cleared after save")
	}
	if _, ok := eng.Snapshot(); ok {
		t.Error("engine should be in NoSession after finalize")
	}
}

// TestFinalizeFailureRetainsEverything verifies a failing saver leaves the
// machine in ActiveSession with both slots exactly as before the call.
func TestFinalizeFailureRetainsEverything(t *testing.T) {
	ctrl, eng, st, saver := newTestController(t)
	ctx := context.Background()
	eng.now = func() time.Time { return time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC) }
	seedSession(t, ctrl, eng)
	saver.fail = true

	before := storeState(t, st)

	_, _, err := ctrl.Finalize(ctx, "Leg Day", "tough")
	if err == nil {
		t.Fatal("expected finalize to surface the save failure")
	}

	if after := storeState(t, st); after != before {
		t.Errorf("persistence changed across failed finalize:\nbefore %s\nafter  %s", before, after)
	}
	if _, ok := eng.Snapshot(); !ok {
		t.Error("engine should remain in ActiveSession after failed save")
	}

	// The failure is retryable.
	saver.fail = false
	if _, _, err := ctrl.Finalize(ctx, "Leg Day", "tough"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

// TestFinalizeEmptySessionRejected verifies a zero-exercise session routes
// to the discard path instead of saving.
func TestFinalizeEmptySessionRejected(t *testing.T) {
	ctrl, _, _, saver := newTestController(t)
	ctx := context.Background()
	ctrl.Start(ctx)

	_, _, err := ctrl.Finalize(ctx, "Nothing", "")
	if !errors.Is(err, ErrEmptySession) {
		t.Errorf("error = %v, want ErrEmptySession", err)
	}
	if len(saver.got) != 0 {
		t.Error("saver must not be called for an empty session")
	}
}

// TestFinalizeWithoutSession verifies finalize in NoSession errors.
func TestFinalizeWithoutSession(t *testing.T) {
	ctrl, _, _, _ := newTestController(t)
	if _, _, err := ctrl.Finalize(context.Background(), "x", ""); !errors.Is(err, ErrNoSession) {
		t.Errorf("error = %v, want ErrNoSession", err)
	}
}

// TestAbandonDeclinedLeavesStateUntouched verifies the two-phase gate:
// propose then cancel leaves session, volume and both slots byte-for-byte
// unchanged.
func TestAbandonDeclinedLeavesStateUntouched(t *testing.T) {
	ctrl, eng, st, _ := newTestController(t)
	ctx := context.Background()
	eng.now = func() time.Time { return time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC) }
	seedSession(t, ctrl, eng)

	before := storeState(t, st)
	viewBefore, _ := eng.Snapshot()

	if err := ctrl.Abandon(ctx, true); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if !ctrl.AbandonPending() {
		t.Fatal("proposal should be pending")
	}
	ctrl.CancelAbandon()

	if after := storeState(t, st); after != before {
		t.Errorf("persistence changed by declined abandon:\nbefore %s\nafter  %s", before, after)
	}
	viewAfter, ok := eng.Snapshot()
	if !ok {
		t.Fatal("session should still be active")
	}
	if viewAfter.Session.TotalVolumeKg != viewBefore.Session.TotalVolumeKg {
		t.Errorf("volume changed: %d → %d", viewBefore.Session.TotalVolumeKg, viewAfter.Session.TotalVolumeKg)
	}
	if ctrl.AbandonPending() {
		t.Error("proposal should be cleared after cancel")
	}
}

// TestAbandonConfirmedDeletesEverything verifies the commit leg deletes
// both slots and returns to NoSession.
func TestAbandonConfirmedDeletesEverything(t *testing.T) {
	ctrl, eng, st, _ := newTestController(t)
	ctx := context.Background()
	seedSession(t, ctrl, eng)
	if err := ctrl.Minimize(ctx); err != nil {
		t.Fatalf("minimize: %v", err)
	}

	if err := ctrl.Abandon(ctx, true); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := ctrl.ConfirmAbandon(ctx); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if st.stored() != nil {
		t.Error("session slot should be deleted")
	}
	if minimized, _ := st.Minimized(ctx); minimized {
		t.Error("minimized flag should be deleted")
	}
	if _, ok := eng.Snapshot(); ok {
		t.Error("engine should be in NoSession")
	}
}

// TestConfirmWithoutProposal verifies the gate cannot be jumped.
func TestConfirmWithoutProposal(t *testing.T) {
	ctrl, eng, _, _ := newTestController(t)
	ctx := context.Background()
	seedSession(t, ctrl, eng)

	if err := ctrl.ConfirmAbandon(ctx); !errors.Is(err, ErrNoAbandonPending) {
		t.Errorf("error = %v, want ErrNoAbandonPending", err)
	}
	if _, ok := eng.Snapshot(); !ok {
		t.Error("session must survive an unproposed confirm")
	}
}

// TestAbandonWithoutConfirmation verifies the direct path commits
// immediately.
func TestAbandonWithoutConfirmation(t *testing.T) {
	ctrl, eng, st, _ := newTestController(t)
	ctx := context.Background()
	seedSession(t, ctrl, eng)

	if err := ctrl.Abandon(ctx, false); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if st.stored() != nil {
		t.Error("session slot should be deleted")
	}
	if _, ok := eng.Snapshot(); ok {
		t.Error("engine should be in NoSession")
	}
}

// TestDiscard verifies the empty-session path deletes persistence with no
// save call.
func TestDiscard(t *testing.T) {
	ctrl, eng, st, saver := newTestController(t)
	ctx := context.Background()
	ctrl.Start(ctx)

	if err := ctrl.Discard(ctx); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if st.stored() != nil {
		t.Error("session slot should be deleted")
	}
	if len(saver.got) != 0 {
		t.Error("discard must not call the saver")
	}
	if _, ok := eng.Snapshot(); ok {
		t.Error("engine should be in NoSession")
	}
}

// TestMinimizeResume verifies the visibility flag and that session data is
// untouched either way.
func TestMinimizeResume(t *testing.T) {
	ctrl, eng, st, _ := newTestController(t)
	ctx := context.Background()
	seedSession(t, ctrl, eng)
	before, _ := eng.Snapshot()

	if err := ctrl.Minimize(ctx); err != nil {
		t.Fatalf("minimize: %v", err)
	}
	if minimized, _ := ctrl.Minimized(ctx); !minimized {
		t.Error("flag should be true after minimize")
	}

	if err := ctrl.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if minimized, _ := ctrl.Minimized(ctx); minimized {
		t.Error("flag should be false after resume")
	}

	after, _ := eng.Snapshot()
	if after.Session.TotalVolumeKg != before.Session.TotalVolumeKg ||
		len(after.Session.Exercises) != len(before.Session.Exercises) {
		t.Error("minimize/resume must not touch session data")
	}
	_ = st
}

// TestMinimizeWithoutSession verifies visibility operations require an
// active session.
func TestMinimizeWithoutSession(t *testing.T) {
	ctrl, _, _, _ := newTestController(t)
	if err := ctrl.Minimize(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("minimize error = %v, want ErrNoSession", err)
	}
	if err := ctrl.Resume(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Errorf("resume error = %v, want ErrNoSession", err)
	}
}

// TestLifecycleEvents verifies subscribers receive the pushed
// visibility/navigation events in order.
func TestLifecycleEvents(t *testing.T) {
	ctrl, eng, _, _ := newTestController(t)
	ctx := context.Background()

	ch := ctrl.Events().Subscribe()
	defer ctrl.Events().Unsubscribe(ch)

	seedSession(t, ctrl, eng)
	if err := ctrl.Minimize(ctx); err != nil {
		t.Fatalf("minimize: %v", err)
	}
	if err := ctrl.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	id, _, err := ctrl.Finalize(ctx, "Done", "")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	want := []EventType{EventStarted, EventMinimized, EventResumed, EventFinalized}
	for i, wantType := range want {
		select {
		case ev := <-ch:
			if ev.Type != wantType {
				t.Errorf("event %d = %q, want %q", i, ev.Type, wantType)
			}
			if wantType == EventFinalized && ev.WorkoutID != id {
				t.Errorf("finalized event id = %v, want %v", ev.WorkoutID, id)
			}
		default:
			t.Fatalf("missing event %d (%q)", i, wantType)
		}
	}
}

// TestRestoreThroughController verifies the controller restores a
// persisted session and announces it.
func TestRestoreThroughController(t *testing.T) {
	ctrl, _, st, _ := newTestController(t)
	st.sess = &models.Session{Name: "interrupted", StartedAt: time.Now().Add(-time.Minute)}

	ch := ctrl.Events().Subscribe()
	defer ctrl.Events().Unsubscribe(ch)

	found, err := ctrl.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !found {
		t.Fatal("expected a restored session")
	}
	select {
	case ev := <-ch:
		if ev.Type != EventStarted {
			t.Errorf("event = %q, want started", ev.Type)
		}
	default:
		t.Error("restore should announce the session")
	}
}
