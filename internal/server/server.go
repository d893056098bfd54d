package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/ironlog/internal/models"
	"github.com/claude/ironlog/internal/session"
	"github.com/claude/ironlog/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// defaultUserID is the single user account the server operates on.
// Access control happens at the network layer (tsnet or API key), not
// per-account.
const defaultUserID = 1

// Archive is the slice of the workout database the HTTP layer needs:
// finished-workout history and the exercise catalog.
type Archive interface {
	QueryWorkouts(ctx context.Context, start, end time.Time, userID int) ([]storage.WorkoutSummary, error)
	GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*storage.WorkoutDetail, error)
	LastPerformance(ctx context.Context, userID int, exerciseID uuid.UUID) (string, error)
	ListExercises(ctx context.Context) ([]storage.CatalogEntry, error)
	GetExercises(ctx context.Context, ids []uuid.UUID) ([]models.ExerciseRef, error)
	CreateExercise(ctx context.Context, name, muscleGroup, equipment, createdBy string) (storage.CatalogEntry, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	eng     *session.Engine
	ctl     *session.Controller
	archive Archive
	log     *slog.Logger
	apiKey  string
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(eng *session.Engine, ctl *session.Controller, archive Archive, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		eng:     eng,
		ctl:     ctl,
		archive: archive,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetMCP mounts the MCP streaming transport at /mcp. Must be called
// before the server starts accepting requests.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Mount("/mcp", h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Read endpoints (no auth — tsnet handles access)
		r.Get("/session", s.handleGetSession)
		r.Get("/session/events", s.handleSessionEvents)
		r.Get("/workouts", s.handleQueryWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Get("/exercises", s.handleListExercises)
		r.Get("/exercises/{id}/last-performance", s.handleLastPerformance)

		// Mutation endpoints (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/session", s.handleStartSession)
			r.Patch("/session", s.handleUpdateMetadata)
			r.Delete("/session", s.handleDiscardSession)
			r.Post("/session/exercises", s.handleAddExercises)
			r.Delete("/session/exercises/{index}", s.handleRemoveExercise)
			r.Post("/session/exercises/{index}/sets", s.handleAddSet)
			r.Patch("/session/exercises/{index}/sets/{set}", s.handleUpdateSet)
			r.Post("/session/exercises/{index}/sets/{set}/toggle", s.handleToggleSet)
			r.Put("/session/exercises/{index}/rest", s.handleSetRestDuration)
			r.Post("/session/minimize", s.handleMinimize)
			r.Post("/session/resume", s.handleResume)
			r.Post("/session/abandon", s.handleProposeAbandon)
			r.Post("/session/abandon/confirm", s.handleConfirmAbandon)
			r.Post("/session/abandon/cancel", s.handleCancelAbandon)
			r.Post("/session/finish", s.handleFinish)
			r.Post("/exercises", s.handleCreateExercise)
		})
	})
}
