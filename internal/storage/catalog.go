package storage

import (
	"context"
	"fmt"

	"github.com/claude/ironlog/internal/models"
	"github.com/google/uuid"
)

// CatalogEntry is one exercise in the catalog, with fields beyond what the
// session engine copies at add-time.
type CatalogEntry struct {
	models.ExerciseRef
	Equipment string `json:"equipment,omitempty"`
	CreatedBy string `json:"created_by"`
}

// ListExercises returns the full exercise catalog, ordered by muscle group
// then name.
func (db *DB) ListExercises(ctx context.Context) ([]CatalogEntry, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, muscle_group, equipment, created_by
		 FROM exercises
		 ORDER BY muscle_group ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	var result []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.MuscleGroup, &e.Equipment, &e.CreatedBy); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetExercises resolves catalog ids to refs, preserving the input order.
// Unknown ids are reported as an error rather than silently dropped, so a
// stale client cannot add phantom exercises to a session.
func (db *DB) GetExercises(ctx context.Context, ids []uuid.UUID) ([]models.ExerciseRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT id, name, muscle_group FROM exercises WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]models.ExerciseRef, len(ids))
	for rows.Next() {
		var ref models.ExerciseRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.MuscleGroup); err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		byID[ref.ID] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]models.ExerciseRef, 0, len(ids))
	for _, id := range ids {
		ref, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown exercise id %s", id)
		}
		result = append(result, ref)
	}
	return result, nil
}

// CreateExercise adds a user-defined exercise to the catalog.
func (db *DB) CreateExercise(ctx context.Context, name, muscleGroup, equipment, createdBy string) (CatalogEntry, error) {
	e := CatalogEntry{
		ExerciseRef: models.ExerciseRef{ID: uuid.New(), Name: name, MuscleGroup: muscleGroup},
		Equipment:   equipment,
		CreatedBy:   createdBy,
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO exercises (id, name, muscle_group, equipment, created_by)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.Name, e.MuscleGroup, e.Equipment, e.CreatedBy)
	if err != nil {
		return CatalogEntry{}, fmt.Errorf("inserting exercise: %w", err)
	}
	return e, nil
}
