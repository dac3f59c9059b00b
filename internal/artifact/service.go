// Package artifact coordinates one-shot artifact generation (notes, quiz,
// flashcards, simulations) for videos and lessons. Requests claim a durable
// artifact row, then run as scheduled tasks so a restart never loses an
// in-flight generation silently: the row's status tells the client what
// happened.
package artifact

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jordan/capsule-engine/internal/scheduler"
	"github.com/jordan/capsule-engine/internal/types"
)

// TaskGenerate is the scheduler task type for artifact generation.
const TaskGenerate = "artifact.generate"

// Store is the persistence surface the service needs.
type Store interface {
	ClaimArtifact(ctx context.Context, kind types.ArtifactKind, subjectID string) (*types.Artifact, bool, error)
	GetArtifact(ctx context.Context, kind types.ArtifactKind, subjectID string) (*types.Artifact, error)
	CompleteArtifact(ctx context.Context, kind types.ArtifactKind, subjectID string, content any) error
	FailArtifact(ctx context.Context, kind types.ArtifactKind, subjectID, errorMessage string) error
}

// Generators is the generation surface the service needs.
type Generators interface {
	Notes(ctx context.Context, title, material string) (*types.Notes, error)
	Quiz(ctx context.Context, title, material string) (*types.Quiz, error)
	Flashcards(ctx context.Context, title, material string) (*types.Flashcards, error)
	SimulationIdeas(ctx context.Context, title, material string) (*types.SimulationIdeas, error)
	SimulationCode(ctx context.Context, idea types.SimulationIdea, material string) (*types.SimulationCode, error)
}

// generatePayload is the durable task payload.
type generatePayload struct {
	Kind      types.ArtifactKind    `json:"kind"`
	SubjectID string                `json:"subject_id"`
	Title     string                `json:"title"`
	Material  string                `json:"material"`
	Idea      *types.SimulationIdea `json:"idea,omitempty"`
}

// Service runs artifact generation behind the task queue.
type Service struct {
	store  Store
	gen    Generators
	sched  scheduler.Scheduler
	logger zerolog.Logger
}

// NewService builds a Service.
func NewService(store Store, gen Generators, sched scheduler.Scheduler, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		gen:    gen,
		sched:  sched,
		logger: logger.With().Str("component", "artifact").Logger(),
	}
}

// RegisterHandlers binds the generation task to the registry.
func (s *Service) RegisterHandlers(reg *scheduler.Registry) {
	reg.Register(TaskGenerate, s.handleGenerate)
}

// Request asks for an artifact of the given kind. If the artifact is already
// completed or generating, the existing row is returned with started =
// false. Otherwise the row is claimed and a generation task scheduled.
// idea is required only for simulation code.
func (s *Service) Request(ctx context.Context, kind types.ArtifactKind, subjectID, title, material string, idea *types.SimulationIdea) (*types.Artifact, bool, error) {
	if kind == types.ArtifactSimulationCode && idea == nil {
		return nil, false, fmt.Errorf("simulation code generation needs a chosen idea")
	}
	art, claimed, err := s.store.ClaimArtifact(ctx, kind, subjectID)
	if err != nil {
		return nil, false, err
	}
	if !claimed {
		return art, false, nil
	}
	err = s.sched.Schedule(ctx, TaskGenerate, generatePayload{
		Kind:      kind,
		SubjectID: subjectID,
		Title:     title,
		Material:  material,
		Idea:      idea,
	}, 0)
	if err != nil {
		return nil, false, err
	}
	s.logger.Info().
		Str("kind", string(kind)).
		Str("subject_id", subjectID).
		Msg("artifact generation scheduled")
	return art, true, nil
}

// Get returns the artifact row for a kind and subject, or nil.
func (s *Service) Get(ctx context.Context, kind types.ArtifactKind, subjectID string) (*types.Artifact, error) {
	return s.store.GetArtifact(ctx, kind, subjectID)
}

// handleGenerate executes one artifact generation. Generation failures are
// recorded on the row and the task completes; only persistence errors
// propagate.
func (s *Service) handleGenerate(ctx context.Context, raw []byte) error {
	var p generatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("failed to decode artifact payload: %w", err)
	}

	content, genErr := s.generate(ctx, p)
	if genErr != nil {
		s.logger.Warn().
			Str("kind", string(p.Kind)).
			Str("subject_id", p.SubjectID).
			Err(genErr).
			Msg("artifact generation failed")
		return s.store.FailArtifact(ctx, p.Kind, p.SubjectID, genErr.Error())
	}
	if err := s.store.CompleteArtifact(ctx, p.Kind, p.SubjectID, content); err != nil {
		return err
	}
	s.logger.Info().
		Str("kind", string(p.Kind)).
		Str("subject_id", p.SubjectID).
		Msg("artifact completed")
	return nil
}

func (s *Service) generate(ctx context.Context, p generatePayload) (any, error) {
	switch p.Kind {
	case types.ArtifactNotes:
		return s.gen.Notes(ctx, p.Title, p.Material)
	case types.ArtifactQuiz:
		return s.gen.Quiz(ctx, p.Title, p.Material)
	case types.ArtifactFlashcards:
		return s.gen.Flashcards(ctx, p.Title, p.Material)
	case types.ArtifactSimulationIdeas:
		return s.gen.SimulationIdeas(ctx, p.Title, p.Material)
	case types.ArtifactSimulationCode:
		if p.Idea == nil {
			return nil, fmt.Errorf("simulation code payload missing idea")
		}
		return s.gen.SimulationCode(ctx, *p.Idea, p.Material)
	default:
		return nil, fmt.Errorf("unknown artifact kind %q", p.Kind)
	}
}
