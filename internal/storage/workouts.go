package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WorkoutSummary is one row of the workout history list.
type WorkoutSummary struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	StartedAt       time.Time `json:"started_at"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalVolumeKg   int       `json:"total_volume_kg"`
	RecordsCount    int       `json:"records_count"`
	Notes           string    `json:"notes,omitempty"`
}

// WorkoutDetail is a saved workout with its full exercise and set data.
type WorkoutDetail struct {
	WorkoutSummary
	Exercises []models.PerformedExercise `json:"exercises"`
}

// SaveWorkout durably stores a finalized workout and mints its id. Per-set
// personal-record flags are computed here, at save time, against the user's
// history: a completed set whose weight strictly exceeds the historical max
// for that exercise is a record. Implements the engine's save collaborator.
func (db *DB) SaveWorkout(ctx context.Context, userID int, w models.FinishedWorkout) (uuid.UUID, error) {
	maxWeights, err := db.maxCompletedWeights(ctx, userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading weight history: %w", err)
	}
	exercises, records := markPersonalRecords(w.Exercises, maxWeights)

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()
	_, err = tx.Exec(ctx,
		`INSERT INTO workouts (id, user_id, name, started_at, duration_minutes, total_volume_kg, notes, records_count)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		id, userID, w.Name, w.StartedAt, w.DurationMinutes, w.TotalVolumeKg, w.Notes, records)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting workout: %w", err)
	}

	for pos, ex := range exercises {
		_, err = tx.Exec(ctx,
			`INSERT INTO workout_exercises (workout_id, position, exercise_id, exercise_name, muscle_group, rest_seconds)
			 VALUES ($1,$2,$3,$4,$5,$6)`,
			id, pos, ex.Exercise.ID, ex.Exercise.Name, ex.Exercise.MuscleGroup, ex.RestSeconds)
		if err != nil {
			return uuid.Nil, fmt.Errorf("inserting workout exercise %d: %w", pos, err)
		}
		for num, set := range ex.Sets {
			_, err = tx.Exec(ctx,
				`INSERT INTO workout_sets (workout_id, exercise_position, set_number, reps, weight_kg, status, is_personal_record)
				 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				id, pos, num, set.Reps, set.Weight, set.Status, set.IsPersonalRecord)
			if err != nil {
				return uuid.Nil, fmt.Errorf("inserting set %d/%d: %w", pos, num, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing save: %w", err)
	}
	return id, nil
}

// QueryWorkouts retrieves workout summaries in a time range, newest first.
func (db *DB) QueryWorkouts(ctx context.Context, start, end time.Time, userID int) ([]WorkoutSummary, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, started_at, duration_minutes, total_volume_kg, records_count, notes
		 FROM workouts
		 WHERE started_at >= $1 AND started_at < $2 AND user_id = $3
		 ORDER BY started_at DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []WorkoutSummary
	for rows.Next() {
		var w WorkoutSummary
		if err := rows.Scan(&w.ID, &w.Name, &w.StartedAt, &w.DurationMinutes,
			&w.TotalVolumeKg, &w.RecordsCount, &w.Notes); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

// GetWorkout retrieves a single saved workout with its exercises and sets.
func (db *DB) GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*WorkoutDetail, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, name, started_at, duration_minutes, total_volume_kg, records_count, notes
		 FROM workouts
		 WHERE id = $1 AND user_id = $2`,
		workoutID, userID)

	var detail WorkoutDetail
	err := row.Scan(&detail.ID, &detail.Name, &detail.StartedAt, &detail.DurationMinutes,
		&detail.TotalVolumeKg, &detail.RecordsCount, &detail.Notes)
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}

	exRows, err := db.Pool.Query(ctx,
		`SELECT position, exercise_id, exercise_name, muscle_group, rest_seconds
		 FROM workout_exercises
		 WHERE workout_id = $1
		 ORDER BY position ASC`,
		workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying workout exercises: %w", err)
	}
	defer exRows.Close()

	positions := make(map[int]int) // table position -> slice index
	for exRows.Next() {
		var pos int
		var ex models.PerformedExercise
		if err := exRows.Scan(&pos, &ex.Exercise.ID, &ex.Exercise.Name,
			&ex.Exercise.MuscleGroup, &ex.RestSeconds); err != nil {
			return nil, fmt.Errorf("scanning workout exercise: %w", err)
		}
		positions[pos] = len(detail.Exercises)
		detail.Exercises = append(detail.Exercises, ex)
	}
	if err := exRows.Err(); err != nil {
		return nil, err
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT exercise_position, reps, weight_kg, status, is_personal_record
		 FROM workout_sets
		 WHERE workout_id = $1
		 ORDER BY exercise_position ASC, set_number ASC`,
		workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var pos int
		var set models.Set
		if err := setRows.Scan(&pos, &set.Reps, &set.Weight, &set.Status, &set.IsPersonalRecord); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		if i, ok := positions[pos]; ok {
			detail.Exercises[i].Sets = append(detail.Exercises[i].Sets, set)
		}
	}
	return &detail, setRows.Err()
}

// LastPerformance returns a display hint for the most recent completed set
// of the given exercise ("60kg x 8"), or "" when the user has no history
// for it.
func (db *DB) LastPerformance(ctx context.Context, userID int, exerciseID uuid.UUID) (string, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT s.weight_kg, s.reps
		 FROM workout_sets s
		 JOIN workout_exercises e ON e.workout_id = s.workout_id AND e.position = s.exercise_position
		 JOIN workouts w ON w.id = s.workout_id
		 WHERE w.user_id = $1 AND e.exercise_id = $2 AND s.status = 'completed'
		 ORDER BY w.started_at DESC, s.set_number ASC
		 LIMIT 1`,
		userID, exerciseID)

	var weight float64
	var reps int
	if err := row.Scan(&weight, &reps); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("querying last performance: %w", err)
	}
	return FormatPerformance(weight, reps), nil
}

// maxCompletedWeights returns the historical max completed weight per
// exercise id for a user.
func (db *DB) maxCompletedWeights(ctx context.Context, userID int) (map[uuid.UUID]float64, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT e.exercise_id, MAX(s.weight_kg)
		 FROM workout_sets s
		 JOIN workout_exercises e ON e.workout_id = s.workout_id AND e.position = s.exercise_position
		 JOIN workouts w ON w.id = s.workout_id
		 WHERE w.user_id = $1 AND s.status = 'completed'
		 GROUP BY e.exercise_id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[uuid.UUID]float64)
	for rows.Next() {
		var id uuid.UUID
		var max float64
		if err := rows.Scan(&id, &max); err != nil {
			return nil, err
		}
		result[id] = max
	}
	return result, rows.Err()
}

// markPersonalRecords flags completed sets whose weight strictly exceeds
// the historical max for their exercise, returning the flagged copy and
// the record count. At most one set per exercise is flagged: the heaviest
// qualifying one.
func markPersonalRecords(exercises []models.PerformedExercise, maxWeights map[uuid.UUID]float64) ([]models.PerformedExercise, int) {
	out := make([]models.PerformedExercise, len(exercises))
	records := 0
	for i, ex := range exercises {
		out[i] = ex
		out[i].Sets = append([]models.Set(nil), ex.Sets...)

		best := -1
		bestWeight := maxWeights[ex.Exercise.ID]
		for j, set := range out[i].Sets {
			if set.Status == models.SetCompleted && set.Weight > bestWeight {
				best = j
				bestWeight = set.Weight
			}
		}
		if best >= 0 {
			out[i].Sets[best].IsPersonalRecord = true
			records++
		}
	}
	return out, records
}

// FormatPerformance renders a set as a prior-performance hint, e.g.
// "60kg x 8". Whole-number weights drop the decimal part.
func FormatPerformance(weight float64, reps int) string {
	if weight == math.Trunc(weight) {
		return fmt.Sprintf("%dkg x %d", int(weight), reps)
	}
	return strconv.FormatFloat(weight, 'f', -1, 64) + "kg x " + strconv.Itoa(reps)
}
