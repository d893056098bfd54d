package models

import "math"

// TotalVolumeKg recomputes training volume from scratch: the sum of
// reps×weight over every completed set, rounded to the nearest whole kg.
// A full pass rather than an incremental delta, so the derived value can
// never drift from the set collection.
func TotalVolumeKg(exercises []PerformedExercise) int {
	var volume float64
	for _, ex := range exercises {
		for _, set := range ex.Sets {
			if set.Status == SetCompleted {
				volume += float64(set.Reps) * set.Weight
			}
		}
	}
	return int(math.Round(volume))
}
