// Package server exposes the HTTP API: capsule lifecycle, artifact
// generation, progress polling and the streaming tutor chat.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/jordan/capsule-engine/internal/artifact"
	"github.com/jordan/capsule-engine/internal/capsule"
	"github.com/jordan/capsule-engine/internal/chat"
	"github.com/jordan/capsule-engine/internal/db"
	"github.com/jordan/capsule-engine/internal/types"
)

// Server hosts the REST API.
type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

// Deps carries the wired application services.
type Deps struct {
	DB           *db.DB
	Orchestrator *capsule.Orchestrator
	Artifacts    *artifact.Service
	Tutor        *chat.Tutor
	Logger       zerolog.Logger
}

type handlers struct {
	db        *db.DB
	orch      *capsule.Orchestrator
	artifacts *artifact.Service
	tutor     *chat.Tutor
	validate  *validator.Validate
	logger    zerolog.Logger
}

// New builds the Server with its routes.
func New(port int, deps Deps) *Server {
	h := &handlers{
		db:        deps.DB,
		orch:      deps.Orchestrator,
		artifacts: deps.Artifacts,
		tutor:     deps.Tutor,
		validate:  validator.New(),
		logger:    deps.Logger.With().Str("component", "server").Logger(),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", h.handleHealth)

	r.Route("/capsules", func(r chi.Router) {
		r.Post("/", h.handleCreateCapsule)
		r.Get("/", h.handleListCapsules)
		r.Route("/{capsuleID}", func(r chi.Router) {
			r.Get("/", h.handleGetCapsule)
			r.Delete("/", h.handleDeleteCapsule)
			r.Post("/generate", h.handleGenerate)
			r.Post("/retry", h.handleRetry)
			r.Get("/progress", h.handleProgress)
			r.Get("/modules", h.handleListModules)
		})
	})
	r.Get("/modules/{moduleID}/lessons", h.handleListLessons)
	r.Get("/lessons/{lessonID}", h.handleGetLesson)

	r.Route("/videos/{videoID}", func(r chi.Router) {
		r.Post("/notes", h.handleRequestArtifact(types.ArtifactNotes))
		r.Get("/notes", h.handleGetArtifact(types.ArtifactNotes))
		r.Post("/quiz", h.handleRequestArtifact(types.ArtifactQuiz))
		r.Get("/quiz", h.handleGetArtifact(types.ArtifactQuiz))
		r.Post("/flashcards", h.handleRequestArtifact(types.ArtifactFlashcards))
		r.Get("/flashcards", h.handleGetArtifact(types.ArtifactFlashcards))
		r.Post("/simulations", h.handleRequestArtifact(types.ArtifactSimulationIdeas))
		r.Get("/simulations", h.handleGetArtifact(types.ArtifactSimulationIdeas))
	})
	r.Route("/simulations/{subjectID}", func(r chi.Router) {
		r.Post("/code", h.handleSimulationCode)
		r.Get("/code", h.handleGetArtifact(types.ArtifactSimulationCode))
	})

	r.Route("/chat/{subjectID}", func(r chi.Router) {
		r.Post("/messages", h.handleChatAsk)
		r.Get("/messages", h.handleChatHistory)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: h.logger,
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
