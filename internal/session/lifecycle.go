package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/claude/ironlog/internal/models"
	"github.com/google/uuid"
)

// Saver is the external collaborator that durably stores a finalized
// workout and mints its identity. It must be treated as fallible and
// retryable, never fire-and-forget.
type Saver interface {
	SaveWorkout(ctx context.Context, w models.FinishedWorkout) (uuid.UUID, error)
}

// Controller is the session lifecycle: minimize/resume, the two-phase
// abandon gate, finalize and discard. Each operation is a transaction
// over the engine and the store, and pushes events to subscribers.
type Controller struct {
	eng      *Engine
	store    Store
	saver    Saver
	notifier *Notifier
	log      *slog.Logger

	mu             sync.Mutex
	abandonPending bool
}

// NewController wires the lifecycle around an engine, its store and the
// save collaborator.
func NewController(eng *Engine, st Store, saver Saver, log *slog.Logger) *Controller {
	return &Controller{
		eng:      eng,
		store:    st,
		saver:    saver,
		notifier: NewNotifier(),
		log:      log,
	}
}

// Events exposes the lifecycle notifier for subscription.
func (c *Controller) Events() *Notifier {
	return c.notifier
}

// Start ensures an active session exists, creating one lazily, and
// announces it.
func (c *Controller) Start(ctx context.Context) {
	c.eng.EnsureSession(ctx)
	c.notifier.Publish(Event{Type: EventStarted})
}

// Restore reloads a persisted session at process start.
func (c *Controller) Restore(ctx context.Context) (bool, error) {
	found, err := c.eng.Restore(ctx)
	if err != nil {
		return false, err
	}
	if found {
		c.notifier.Publish(Event{Type: EventStarted})
	}
	return found, nil
}

// Minimize sets the persisted visibility flag and signals "leave session
// view". Session data and timers are untouched.
func (c *Controller) Minimize(ctx context.Context) error {
	if _, ok := c.eng.Snapshot(); !ok {
		return ErrNoSession
	}
	if err := c.store.SetMinimized(ctx, true); err != nil {
		c.log.Warn("minimized flag write failed", "error", err)
	}
	c.notifier.Publish(Event{Type: EventMinimized})
	return nil
}

// Resume clears the visibility flag and signals "go to session view".
func (c *Controller) Resume(ctx context.Context) error {
	if _, ok := c.eng.Snapshot(); !ok {
		return ErrNoSession
	}
	if err := c.store.SetMinimized(ctx, false); err != nil {
		c.log.Warn("minimized flag write failed", "error", err)
	}
	c.notifier.Publish(Event{Type: EventResumed})
	return nil
}

// Minimized reports the persisted visibility flag.
func (c *Controller) Minimized(ctx context.Context) (bool, error) {
	return c.store.Minimized(ctx)
}

// Abandon destroys the active session without saving. With
// requireConfirmation it only proposes: nothing changes until
// ConfirmAbandon commits or CancelAbandon clears the proposal.
func (c *Controller) Abandon(ctx context.Context, requireConfirmation bool) error {
	if requireConfirmation {
		return c.ProposeAbandon()
	}
	c.mu.Lock()
	c.abandonPending = false
	c.mu.Unlock()
	return c.discard(ctx)
}

// ProposeAbandon opens the confirmation gate. The session is left
// completely untouched.
func (c *Controller) ProposeAbandon() error {
	if _, ok := c.eng.Snapshot(); !ok {
		return ErrNoSession
	}
	c.mu.Lock()
	c.abandonPending = true
	c.mu.Unlock()
	return nil
}

// ConfirmAbandon commits a pending abandon proposal: both persistence
// slots are deleted and the machine returns to NoSession.
func (c *Controller) ConfirmAbandon(ctx context.Context) error {
	c.mu.Lock()
	pending := c.abandonPending
	c.abandonPending = false
	c.mu.Unlock()

	if !pending {
		return ErrNoAbandonPending
	}
	return c.discard(ctx)
}

// CancelAbandon clears a pending proposal, leaving session, volume and
// both persistence slots exactly as they were.
func (c *Controller) CancelAbandon() {
	c.mu.Lock()
	c.abandonPending = false
	c.mu.Unlock()
}

// AbandonPending reports whether a proposal awaits confirmation.
func (c *Controller) AbandonPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.abandonPending
}

// Finalize converts the active session into a finished record and hands it
// to the save collaborator. The session must have at least one exercise;
// an empty session belongs on the discard path. Persistence is cleared
// only after the collaborator signals success — a failed save leaves the
// machine in ActiveSession with both slots intact so nothing is lost.
func (c *Controller) Finalize(ctx context.Context, name, notes string) (uuid.UUID, *models.FinishedWorkout, error) {
	record, err := c.eng.FinishRecord(name, notes)
	if err != nil {
		return uuid.Nil, nil, err
	}

	id, err := c.saver.SaveWorkout(ctx, record)
	if err != nil {
		c.log.Error("workout save failed, session retained", "error", err)
		return uuid.Nil, nil, fmt.Errorf("saving workout: %w", err)
	}

	if err := c.store.ClearSession(ctx); err != nil {
		c.log.Warn("clearing session after save", "error", err)
	}
	c.eng.reset()
	c.log.Info("session finalized",
		"workout_id", id,
		"name", record.Name,
		"duration_minutes", record.DurationMinutes,
		"volume_kg", record.TotalVolumeKg,
	)
	c.notifier.Publish(Event{Type: EventFinalized, WorkoutID: id})
	return id, &record, nil
}

// Discard unconditionally destroys the active session with no save call.
// This is the path for sessions with nothing worth keeping.
func (c *Controller) Discard(ctx context.Context) error {
	return c.discard(ctx)
}

func (c *Controller) discard(ctx context.Context) error {
	if _, ok := c.eng.Snapshot(); !ok {
		return ErrNoSession
	}
	if err := c.store.ClearSession(ctx); err != nil {
		c.log.Warn("clearing session", "error", err)
	}
	c.eng.reset()
	c.log.Info("session discarded")
	c.notifier.Publish(Event{Type: EventDiscarded})
	return nil
}
