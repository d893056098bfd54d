package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/ironlog/internal/models"
)

// Defaults matching the product behavior.
const (
	DefaultRestSeconds = 90
	seedReps           = 8
	seedWeight         = 20
	fallbackWeight     = 50
	restStepSeconds    = 5
	restMaxSeconds     = 300
)

// Store is the durable single-slot persistence the engine writes through
// on every mutation.
type Store interface {
	SaveSession(ctx context.Context, sess *models.Session) error
	LoadSession(ctx context.Context) (*models.Session, error)
	ClearSession(ctx context.Context) error
	SetMinimized(ctx context.Context, minimized bool) error
	Minimized(ctx context.Context) (bool, error)
}

// SetField selects which editable set field an update targets.
type SetField string

const (
	FieldReps   SetField = "reps"
	FieldWeight SetField = "weight"
)

// ExercisePick is a catalog entry selected for addition to the session,
// with an optional prior-performance display hint ("60kg × 8") looked up
// by the caller at add-time.
type ExercisePick struct {
	Ref   models.ExerciseRef
	Prior string
}

// View is a point-in-time copy of engine state handed to callers. Session
// is a deep copy and never aliases live state.
type View struct {
	Session       *models.Session `json:"session"`
	RestActive    bool            `json:"rest_active"`
	RestRemaining int             `json:"rest_remaining_seconds"`
}

// Engine is the session state machine. It owns the in-memory session
// record, serializes every mutation (user intents and clock ticks alike)
// through one mutex, and mirrors each mutation into the store.
type Engine struct {
	log   *slog.Logger
	store Store
	now   func() time.Time

	mu            sync.Mutex
	sess          *models.Session
	elapsed       *Ticker
	rest          *Ticker
	restActive    bool
	restRemaining int
}

// NewEngine creates an engine in the NoSession state, ticking at
// one-second granularity.
func NewEngine(st Store, log *slog.Logger) *Engine {
	return &Engine{
		log:     log,
		store:   st,
		now:     time.Now,
		elapsed: NewTicker(time.Second),
		rest:    NewTicker(time.Second),
	}
}

// Restore loads a persisted session after a process restart. Elapsed time
// is recomputed from the wall-clock delta since StartedAt, so a restart
// resumes the true duration. Returns true if a session was restored.
func (e *Engine) Restore(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess != nil {
		return true, nil
	}

	sess, err := e.store.LoadSession(ctx)
	if err != nil {
		return false, fmt.Errorf("restoring session: %w", err)
	}
	if sess == nil {
		return false, nil
	}

	e.sess = sess
	e.refreshElapsedLocked()
	e.persist(ctx)
	e.elapsed.Start(e.tickElapsed)
	e.log.Info("session restored",
		"name", sess.Name,
		"exercises", len(sess.Exercises),
		"elapsed_seconds", sess.ElapsedSeconds,
	)
	return true, nil
}

// EnsureSession creates a session if none exists: name defaulted from the
// current date, empty exercise list, zero volume, started now. Idempotent
// once a session exists.
func (e *Engine) EnsureSession(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess != nil {
		return
	}

	now := e.now()
	e.sess = &models.Session{
		Name:      fmt.Sprintf("Workout of %s", now.Format("Jan 2, 2006")),
		StartedAt: now,
		Exercises: []models.PerformedExercise{},
	}
	e.persist(ctx)
	e.elapsed.Start(e.tickElapsed)
	e.log.Info("session started", "name", e.sess.Name)
}

// AddExercises appends one exercise per pick, each seeded with one default
// pending set and the default rest duration.
func (e *Engine) AddExercises(ctx context.Context, picks []ExercisePick) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return ErrNoSession
	}

	for _, pick := range picks {
		e.sess.Exercises = append(e.sess.Exercises, models.PerformedExercise{
			Exercise:    pick.Ref,
			RestSeconds: DefaultRestSeconds,
			Sets: []models.Set{{
				Reps:             seedReps,
				Weight:           seedWeight,
				Status:           models.SetPending,
				PriorPerformance: pick.Prior,
			}},
		})
	}
	e.persist(ctx)
	return nil
}

// RemoveExercise deletes the exercise at index; later exercises shift down
// one position. Position is the only identity sets and exercises have.
func (e *Engine) RemoveExercise(ctx context.Context, index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return ErrNoSession
	}
	if index < 0 || index >= len(e.sess.Exercises) {
		return ErrInvalidIndex
	}

	e.sess.Exercises = append(e.sess.Exercises[:index], e.sess.Exercises[index+1:]...)
	e.sess.TotalVolumeKg = models.TotalVolumeKg(e.sess.Exercises)
	e.persist(ctx)
	return nil
}

// AddSet appends a set cloned from the exercise's last set (reps, weight and
// prior-performance hint), forced to pending. An exercise with no sets gets
// the hardcoded fallback.
func (e *Engine) AddSet(ctx context.Context, exIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return ErrNoSession
	}
	if exIndex < 0 || exIndex >= len(e.sess.Exercises) {
		return ErrInvalidIndex
	}

	ex := &e.sess.Exercises[exIndex]
	next := models.Set{Reps: seedReps, Weight: fallbackWeight, Status: models.SetPending}
	if n := len(ex.Sets); n > 0 {
		last := ex.Sets[n-1]
		next = models.Set{
			Reps:             last.Reps,
			Weight:           last.Weight,
			Status:           models.SetPending,
			PriorPerformance: last.PriorPerformance,
		}
	}
	ex.Sets = append(ex.Sets, next)
	e.persist(ctx)
	return nil
}

// UpdateSetField overwrites reps or weight on a pending set. Completed sets
// are frozen: the edit is rejected and state is untouched. Volume is
// recomputed unconditionally so the derived value can never drift.
func (e *Engine) UpdateSetField(ctx context.Context, exIndex, setIndex int, field SetField, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	set, err := e.setAt(exIndex, setIndex)
	if err != nil {
		return err
	}
	if set.Status == models.SetCompleted {
		return ErrSetCompleted
	}
	if value < 0 {
		return ErrNegativeValue
	}

	switch field {
	case FieldReps:
		set.Reps = int(value)
	case FieldWeight:
		set.Weight = value
	default:
		return fmt.Errorf("unknown set field %q", field)
	}

	e.sess.TotalVolumeKg = models.TotalVolumeKg(e.sess.Exercises)
	e.persist(ctx)
	return nil
}

// ToggleSetCompletion flips a set between pending and completed. Completing
// a set recomputes volume and restarts the rest countdown from the
// exercise's current rest duration; un-completing recomputes volume and
// cancels any running countdown immediately. Returns the new completion
// state.
func (e *Engine) ToggleSetCompletion(ctx context.Context, exIndex, setIndex int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	set, err := e.setAt(exIndex, setIndex)
	if err != nil {
		return false, err
	}

	completed := set.Status != models.SetCompleted
	if completed {
		set.Status = models.SetCompleted
		e.armRestLocked(e.sess.Exercises[exIndex].RestSeconds)
	} else {
		set.Status = models.SetPending
		e.disarmRestLocked()
	}

	e.sess.TotalVolumeKg = models.TotalVolumeKg(e.sess.Exercises)
	e.persist(ctx)
	return completed, nil
}

// SetRestDuration overwrites an exercise's rest length. The value must sit
// on the picker grid: a multiple of 5 within [0, 300]. A countdown already
// in flight keeps its original duration.
func (e *Engine) SetRestDuration(ctx context.Context, exIndex, seconds int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return ErrNoSession
	}
	if exIndex < 0 || exIndex >= len(e.sess.Exercises) {
		return ErrInvalidIndex
	}
	if seconds < 0 || seconds > restMaxSeconds || seconds%restStepSeconds != 0 {
		return ErrInvalidRestDuration
	}

	e.sess.Exercises[exIndex].RestSeconds = seconds
	e.persist(ctx)
	return nil
}

// UpdateMetadata overwrites the session name and notes.
func (e *Engine) UpdateMetadata(ctx context.Context, name, notes string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return ErrNoSession
	}
	if name != "" {
		e.sess.Name = name
	}
	e.sess.Notes = notes
	e.persist(ctx)
	return nil
}

// Snapshot returns a deep copy of the current state, or false when no
// session is active.
func (e *Engine) Snapshot() (*View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return nil, false
	}
	return &View{
		Session:       e.sess.Clone(),
		RestActive:    e.restActive,
		RestRemaining: e.restRemaining,
	}, true
}

// FinishRecord assembles the immutable record handed to the archive,
// overriding name and notes and converting elapsed time to whole minutes,
// rounding down. Read-only: the live session and its persistence are not
// touched, so a failed save leaves both slots exactly as they were.
func (e *Engine) FinishRecord(name, notes string) (models.FinishedWorkout, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return models.FinishedWorkout{}, ErrNoSession
	}
	if len(e.sess.Exercises) == 0 {
		return models.FinishedWorkout{}, ErrEmptySession
	}

	elapsed := e.sess.ElapsedSeconds
	if secs := int(e.now().Sub(e.sess.StartedAt) / time.Second); secs > elapsed {
		elapsed = secs
	}
	if name == "" {
		name = e.sess.Name
	}

	return models.FinishedWorkout{
		Name:            name,
		StartedAt:       e.sess.StartedAt,
		DurationMinutes: elapsed / 60,
		TotalVolumeKg:   e.sess.TotalVolumeKg,
		Exercises:       e.sess.Clone().Exercises,
		Notes:           notes,
	}, nil
}

// Stop halts both tickers without touching session state. Used at process
// shutdown; the persisted session is restored on the next start.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.elapsed.Stop()
	e.rest.Stop()
	e.restActive = false
}

// reset returns the engine to NoSession and disarms both tickers. The
// lifecycle controller calls this on every terminal transition.
func (e *Engine) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.elapsed.Stop()
	e.disarmRestLocked()
	e.sess = nil
}

func (e *Engine) setAt(exIndex, setIndex int) (*models.Set, error) {
	if e.sess == nil {
		return nil, ErrNoSession
	}
	if exIndex < 0 || exIndex >= len(e.sess.Exercises) {
		return nil, ErrInvalidIndex
	}
	sets := e.sess.Exercises[exIndex].Sets
	if setIndex < 0 || setIndex >= len(sets) {
		return nil, ErrInvalidIndex
	}
	return &sets[setIndex], nil
}

// persist mirrors the session into the store. Failures are surfaced to the
// log and swallowed: the in-memory session stays the source of truth for
// the rest of the process lifetime.
func (e *Engine) persist(ctx context.Context) {
	if e.sess == nil {
		return
	}
	if err := e.store.SaveSession(ctx, e.sess); err != nil {
		e.log.Warn("session persist failed", "error", err)
	}
}

// refreshElapsedLocked derives elapsed seconds from StartedAt, never
// letting the value decrease.
func (e *Engine) refreshElapsedLocked() {
	secs := int(e.now().Sub(e.sess.StartedAt) / time.Second)
	if secs > e.sess.ElapsedSeconds {
		e.sess.ElapsedSeconds = secs
	}
}

func (e *Engine) tickElapsed() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess == nil {
		return
	}
	e.refreshElapsedLocked()
	e.persist(context.Background())
}

func (e *Engine) armRestLocked(seconds int) {
	e.restRemaining = seconds
	if seconds <= 0 {
		e.disarmRestLocked()
		return
	}
	e.restActive = true
	e.rest.Start(e.tickRest)
}

func (e *Engine) disarmRestLocked() {
	e.restActive = false
	e.restRemaining = 0
	e.rest.Stop()
}

func (e *Engine) tickRest() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.restActive {
		return
	}
	e.restRemaining--
	if e.restRemaining <= 0 {
		e.disarmRestLocked()
	}
}
