package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/claude/ironlog/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// sessionResponse is the full client-facing view of the active session,
// combining the engine snapshot with lifecycle flags.
type sessionResponse struct {
	*session.View
	Minimized      bool `json:"minimized"`
	AbandonPending bool `json:"abandon_pending"`
}

func (s *Server) sessionView(w http.ResponseWriter, r *http.Request, status int) {
	view, ok := s.eng.Snapshot()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active session"})
		return
	}
	minimized, err := s.ctl.Minimized(r.Context())
	if err != nil {
		minimized = false
	}
	writeJSON(w, status, sessionResponse{
		View:           view,
		Minimized:      minimized,
		AbandonPending: s.ctl.AbandonPending(),
	})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	s.ctl.Start(r.Context())
	s.sessionView(w, r, http.StatusOK)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.sessionView(w, r, http.StatusOK)
}

func (s *Server) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := s.eng.UpdateMetadata(r.Context(), req.Name, req.Notes); err != nil {
		writeError(w, err)
		return
	}
	s.sessionView(w, r, http.StatusOK)
}

func (s *Server) handleAddExercises(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseIDs []uuid.UUID `json:"exercise_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if len(req.ExerciseIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "exercise_ids is required"})
		return
	}

	refs, err := s.archive.GetExercises(r.Context(), req.ExerciseIDs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	picks := make([]session.ExercisePick, 0, len(refs))
	for _, ref := range refs {
		prior, err := s.archive.LastPerformance(r.Context(), defaultUserID, ref.ID)
		if err != nil {
			s.log.Warn("last performance lookup failed", "exercise", ref.Name, "error", err)
			prior = ""
		}
		picks = append(picks, session.ExercisePick{Ref: ref, Prior: prior})
	}

	if err := s.eng.AddExercises(r.Context(), picks); err != nil {
		writeError(w, err)
		return
	}
	s.sessionView(w, r, http.StatusOK)
}

func (s *Server) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r, "index")
	if !ok {
		return
	}
	if err := s.eng.RemoveExercise(r.Context(), index); err != nil {
		writeError(w, err)
		return
	}
	s.sessionView(w, r, http.StatusOK)
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r, "index")
	if !ok {
		return
	}
	if err := s.eng.AddSet(r.Context(), index); err != nil {
		writeError(w, err)
		return
	}
	s.sessionView(w, r, http.StatusOK)
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	exIndex, ok := pathIndex(w, r, "index")
	if !ok {
		return
	}
	setIndex, ok := pathIndex(w, r, "set")
	if !ok {
		return
	}

	var req struct {
		Field string  `json:"field"`
		Value float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var field session.SetField
	switch req.Field {
	case "reps":
		field = session.FieldReps
	case "weight":
		field = session.FieldWeight
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "field must be \"reps\" or \"weight\""})
		return
	}

	if err := s.eng.UpdateSetField(r.Context(), exIndex, setIndex, field, req.Value); err != nil {
		writeError(w, err)
		return
	}
	s.sessionView(w, r, http.StatusOK)
}

func (s *Server) handleToggleSet(w http.ResponseWriter, r *http.Request) {
	exIndex, ok := pathIndex(w, r, "index")
	if !ok {
		return
	}
	setIndex, ok := pathIndex(w, r, "set")
	if !ok {
		return
	}
	if _, err := s.eng.ToggleSetCompletion(r.Context(), exIndex, setIndex); err != nil {
		writeError(w, err)
		return
	}
	s.sessionView(w, r, http.StatusOK)
}

func (s *Server) handleSetRestDuration(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r, "index")
	if !ok {
		return
	}
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := s.eng.SetRestDuration(r.Context(), index, req.Seconds); err != nil {
		writeError(w, err)
		return
	}
	s.sessionView(w, r, http.StatusOK)
}

func (s *Server) handleMinimize(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.Minimize(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "minimized"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.Resume(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	s.sessionView(w, r, http.StatusOK)
}

func (s *Server) handleProposeAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.ProposeAbandon(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmation_required"})
}

func (s *Server) handleConfirmAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.ConfirmAbandon(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}

func (s *Server) handleCancelAbandon(w http.ResponseWriter, r *http.Request) {
	s.ctl.CancelAbandon()
	s.sessionView(w, r, http.StatusOK)
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.Discard(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Notes string `json:"notes"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
			return
		}
	}

	id, record, err := s.ctl.Finalize(r.Context(), req.Name, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoSession):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, session.ErrEmptySession):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			// Save failed; the session is retained and the call can be
			// retried.
			s.log.Error("finalize failed", "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"workout": record,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps engine and lifecycle sentinel errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, session.ErrInvalidIndex):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrSetCompleted),
		errors.Is(err, session.ErrEmptySession),
		errors.Is(err, session.ErrNoAbandonPending):
		status = http.StatusConflict
	case errors.Is(err, session.ErrNegativeValue),
		errors.Is(err, session.ErrInvalidRestDuration):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func pathIndex(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}
