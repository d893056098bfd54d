package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/claude/ironlog/internal/session"
	"github.com/google/uuid"
)

// handleSessionEvents streams lifecycle events (started, minimized,
// resumed, finalized, discarded) over SSE so clients can react to state
// changes without polling.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.ctl.Events().Subscribe()
	defer s.ctl.Events().Unsubscribe(ch)

	// Send current status immediately so late subscribers know where
	// the machine stands.
	_, active := s.eng.Snapshot()
	fmt.Fprintf(w, "event: status\ndata: %s\n\n", mustJSON(map[string]any{
		"active":          active,
		"abandon_pending": s.ctl.AbandonPending(),
	}))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, eventData(ev))
			flusher.Flush()
		}
	}
}

func eventData(ev session.Event) string {
	payload := map[string]any{}
	if ev.WorkoutID != uuid.Nil {
		payload["workout_id"] = ev.WorkoutID
	}
	return mustJSON(payload)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
