package mcp

import (
	"context"
	"time"

	"github.com/claude/ironlog/internal/session"
	"github.com/claude/ironlog/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the data layer for MCP tools. Local (in-process
// engine plus *storage.DB) and HTTPClient (remote via REST API) both
// satisfy this interface.
type DataSource interface {
	// ActiveSession returns the live session view, or nil when no
	// session is in progress.
	ActiveSession(ctx context.Context) (*session.View, error)
	QueryWorkouts(ctx context.Context, start, end time.Time, userID int) ([]storage.WorkoutSummary, error)
	GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*storage.WorkoutDetail, error)
	ListExercises(ctx context.Context) ([]storage.CatalogEntry, error)
	LastPerformance(ctx context.Context, userID int, exerciseID uuid.UUID) (string, error)
}

// Local is the in-process DataSource: session state from the engine,
// history and catalog from the workout database.
type Local struct {
	Eng *session.Engine
	DB  *storage.DB
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

func (l *Local) ActiveSession(context.Context) (*session.View, error) {
	view, ok := l.Eng.Snapshot()
	if !ok {
		return nil, nil
	}
	return view, nil
}

func (l *Local) QueryWorkouts(ctx context.Context, start, end time.Time, userID int) ([]storage.WorkoutSummary, error) {
	return l.DB.QueryWorkouts(ctx, start, end, userID)
}

func (l *Local) GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*storage.WorkoutDetail, error) {
	return l.DB.GetWorkout(ctx, workoutID, userID)
}

func (l *Local) ListExercises(ctx context.Context) ([]storage.CatalogEntry, error) {
	return l.DB.ListExercises(ctx)
}

func (l *Local) LastPerformance(ctx context.Context, userID int, exerciseID uuid.UUID) (string, error) {
	return l.DB.LastPerformance(ctx, userID, exerciseID)
}
