package models

import (
	"time"

	"github.com/google/uuid"
)

// SetStatus is the completion state of a single set.
type SetStatus string

const (
	SetPending   SetStatus = "pending"
	SetCompleted SetStatus = "completed"
	// SetFailed round-trips through persistence but no live operation
	// assigns it; failed sets never count toward volume.
	SetFailed SetStatus = "failed"
)

// Set is one unit of work within an exercise. Sets have no stable id:
// they are addressed by position within their exercise.
type Set struct {
	Reps             int       `json:"reps"`
	Weight           float64   `json:"weight"`
	Status           SetStatus `json:"status"`
	PriorPerformance string    `json:"prior_performance,omitempty"`
	IsPersonalRecord bool      `json:"is_personal_record,omitempty"`
}

// ExerciseRef is the catalog identity of an exercise, copied into the
// session at add-time and never re-fetched.
type ExerciseRef struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	MuscleGroup string    `json:"muscle_group"`
}

// PerformedExercise is one exercise within a session, owning its ordered sets.
type PerformedExercise struct {
	Exercise    ExerciseRef `json:"exercise"`
	RestSeconds int         `json:"rest_seconds"`
	Sets        []Set       `json:"sets"`
}

// Session is the single in-progress workout. At most one exists system-wide,
// enforced by the single-slot session store.
type Session struct {
	Name           string              `json:"name"`
	StartedAt      time.Time           `json:"started_at"`
	Notes          string              `json:"notes,omitempty"`
	Exercises      []PerformedExercise `json:"exercises"`
	TotalVolumeKg  int                 `json:"total_volume_kg"`
	ElapsedSeconds int                 `json:"elapsed_seconds"`
}

// Clone returns a deep copy of the session. The engine hands copies to
// callers so snapshots can never alias live state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Exercises = make([]PerformedExercise, len(s.Exercises))
	for i, ex := range s.Exercises {
		out.Exercises[i] = ex
		out.Exercises[i].Sets = append([]Set(nil), ex.Sets...)
	}
	return &out
}

// CompletedSets counts sets marked completed across all exercises.
func (s *Session) CompletedSets() int {
	n := 0
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			if set.Status == SetCompleted {
				n++
			}
		}
	}
	return n
}

// FinishedWorkout is the immutable record handed to the archive at finalize.
// The archive mints the workout id; the engine never does.
type FinishedWorkout struct {
	Name            string              `json:"name"`
	StartedAt       time.Time           `json:"started_at"`
	DurationMinutes int                 `json:"duration_minutes"`
	TotalVolumeKg   int                 `json:"total_volume_kg"`
	Exercises       []PerformedExercise `json:"exercises"`
	Notes           string              `json:"notes,omitempty"`
}
