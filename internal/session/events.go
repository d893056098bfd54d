package session

import (
	"sync"

	"github.com/google/uuid"
)

// EventType identifies a lifecycle notification.
type EventType string

const (
	// EventStarted fires when a session is created or restored.
	EventStarted EventType = "started"
	// EventMinimized and EventResumed carry the visibility changes the
	// presentation layer used to poll for.
	EventMinimized EventType = "minimized"
	EventResumed   EventType = "resumed"
	// EventFinalized fires after a successful save; WorkoutID is the
	// archive-assigned identity.
	EventFinalized EventType = "finalized"
	// EventDiscarded fires when a session is abandoned or discarded.
	EventDiscarded EventType = "discarded"
)

// Event is a lifecycle notification pushed to subscribers. Minimize and
// discard double as "leave session view" navigation intents; resume as
// "go to session view".
type Event struct {
	Type      EventType `json:"type"`
	WorkoutID uuid.UUID `json:"workout_id,omitempty"`
}

// Notifier fans lifecycle events out to subscribers. Slow subscribers are
// skipped rather than blocking the mutation path.
type Notifier struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a buffered event channel. Callers must Unsubscribe
// when done.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 16)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel registered by Subscribe.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	delete(n.subs, ch)
	n.mu.Unlock()
}

// Publish delivers an event to every subscriber without blocking.
func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- ev:
		default:
			// slow subscriber, skip
		}
	}
}
