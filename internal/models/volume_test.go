package models

import "testing"

// TestTotalVolumeKg verifies that volume sums reps×weight over completed
// sets only, rounding to the nearest whole kg.
func TestTotalVolumeKg(t *testing.T) {
	tests := []struct {
		name      string
		exercises []PerformedExercise
		want      int
	}{
		{
			name: "empty",
			want: 0,
		},
		{
			name: "single completed set",
			exercises: []PerformedExercise{
				{Sets: []Set{{Reps: 8, Weight: 20, Status: SetCompleted}}},
			},
			want: 160,
		},
		{
			name: "pending sets excluded",
			exercises: []PerformedExercise{
				{Sets: []Set{
					{Reps: 8, Weight: 20, Status: SetCompleted},
					{Reps: 10, Weight: 100, Status: SetPending},
				}},
			},
			want: 160,
		},
		{
			name: "failed sets excluded",
			exercises: []PerformedExercise{
				{Sets: []Set{{Reps: 5, Weight: 60, Status: SetFailed}}},
			},
			want: 0,
		},
		{
			name: "fractional weights round to nearest",
			exercises: []PerformedExercise{
				{Sets: []Set{
					{Reps: 3, Weight: 22.55, Status: SetCompleted},
				}},
			},
			want: 68, // 67.65 rounds up
		},
		{
			name: "multiple exercises",
			exercises: []PerformedExercise{
				{Sets: []Set{{Reps: 5, Weight: 100, Status: SetCompleted}}},
				{Sets: []Set{
					{Reps: 12, Weight: 30, Status: SetCompleted},
					{Reps: 12, Weight: 30, Status: SetCompleted},
				}},
			},
			want: 1220,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalVolumeKg(tt.exercises); got != tt.want {
				t.Errorf("TotalVolumeKg = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestSessionClone verifies that Clone produces an independent deep copy of
// the exercise and set slices.
func TestSessionClone(t *testing.T) {
	orig := &Session{
		Name: "Leg Day",
		Exercises: []PerformedExercise{
			{RestSeconds: 90, Sets: []Set{{Reps: 8, Weight: 20, Status: SetPending}}},
		},
	}

	cp := orig.Clone()
	cp.Exercises[0].Sets[0].Weight = 999
	cp.Exercises[0].RestSeconds = 5

	if orig.Exercises[0].Sets[0].Weight != 20 {
		t.Errorf("clone mutation leaked into original set: weight = %v", orig.Exercises[0].Sets[0].Weight)
	}
	if orig.Exercises[0].RestSeconds != 90 {
		t.Errorf("clone mutation leaked into original exercise: rest = %d", orig.Exercises[0].RestSeconds)
	}
}

// TestSessionCloneNil verifies Clone on a nil session returns nil.
func TestSessionCloneNil(t *testing.T) {
	var s *Session
	if s.Clone() != nil {
		t.Error("Clone of nil session should be nil")
	}
}

// TestCompletedSets counts completed sets across exercises.
func TestCompletedSets(t *testing.T) {
	s := &Session{
		Exercises: []PerformedExercise{
			{Sets: []Set{
				{Status: SetCompleted},
				{Status: SetPending},
			}},
			{Sets: []Set{{Status: SetCompleted}}},
		},
	}
	if got := s.CompletedSets(); got != 2 {
		t.Errorf("CompletedSets = %d, want 2", got)
	}
}
