package session

import "errors"

// Engine error taxonomy. Index and edit-legality errors are recovered
// locally by callers (the operation is a no-op); persistence and save
// errors are surfaced for retry.
var (
	ErrNoSession           = errors.New("no active session")
	ErrInvalidIndex        = errors.New("index out of range")
	ErrSetCompleted        = errors.New("cannot edit a completed set")
	ErrNegativeValue       = errors.New("reps and weight must be non-negative")
	ErrInvalidRestDuration = errors.New("rest duration must be a multiple of 5 seconds between 0 and 300")
	ErrEmptySession        = errors.New("session has no exercises")
	ErrNoAbandonPending    = errors.New("no abandon proposal pending")
)
