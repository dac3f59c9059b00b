// Package capsule orchestrates the multi-stage capsule generation pipeline.
// Each stage runs as a durable scheduled task, so a restart resumes from the
// last recorded stage instead of starting over. Handlers follow a
// soft-failure contract: domain failures (bad generations, exhausted
// retries) are recorded on the capsule and job and the handler returns nil;
// only infrastructure errors propagate to the task queue.
package capsule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jordan/capsule-engine/internal/scheduler"
	"github.com/jordan/capsule-engine/internal/types"
)

// Task type names registered with the scheduler.
const (
	TaskOutline  = "capsule.outline"
	TaskModule   = "capsule.module"
	TaskFinalize = "capsule.finalize"
)

// DefaultMaxModuleRetries bounds per-stage retries before the capsule fails.
const DefaultMaxModuleRetries = 3

// ErrAlreadyGenerating is returned when generation is requested for a
// capsule that already has an active run.
var ErrAlreadyGenerating = errors.New("capsule generation already in progress")

// ErrAlreadyCompleted is returned when generation is requested for a
// capsule that already finished; completed capsules cannot be regenerated.
var ErrAlreadyCompleted = errors.New("capsule generation already completed")

// ErrCapsuleNotFound is returned when the capsule does not exist.
var ErrCapsuleNotFound = errors.New("capsule not found")

// Store is the persistence surface the orchestrator needs.
type Store interface {
	GetCapsule(ctx context.Context, id uuid.UUID) (*types.Capsule, error)
	UpdateCapsuleStatus(ctx context.Context, id uuid.UUID, status types.CapsuleStatus, errorMessage *string) error
	SetCapsuleOutlineMeta(ctx context.Context, id uuid.UUID, title, description, estimatedDuration string, moduleCount, lessonCount int) error
	CompleteCapsule(ctx context.Context, id uuid.UUID) error

	CreateJob(ctx context.Context, capsuleID uuid.UUID) (*types.GenerationJob, error)
	GetJob(ctx context.Context, id uuid.UUID) (*types.GenerationJob, error)
	GetLatestJobByCapsule(ctx context.Context, capsuleID uuid.UUID) (*types.GenerationJob, error)
	RecordOutline(ctx context.Context, jobID uuid.UUID, outlineJSON string, totalModules int, nextStage string) error
	AdvanceModule(ctx context.Context, jobID uuid.UUID, modulesGenerated, currentModule int, nextStage string) error
	IncrementRetry(ctx context.Context, jobID uuid.UUID, lastError string) (int, error)
	CompleteJob(ctx context.Context, jobID uuid.UUID) error
	FailJob(ctx context.Context, jobID uuid.UUID, lastError string) error
	StaleJobs(ctx context.Context, olderThan time.Duration) ([]types.GenerationJob, error)

	CreateModuleWithLessons(ctx context.Context, module *types.Module, lessons []types.Lesson) error
	DeleteModulesForCapsule(ctx context.Context, capsuleID uuid.UUID) error
}

// ContentGenerator produces validated outline and module documents.
type ContentGenerator interface {
	Outline(ctx context.Context, topic, difficulty, learnerContext string) (*types.OutlineResult, error)
	ModuleContent(ctx context.Context, course *types.CourseOutline, moduleIndex int) (*types.ModuleContent, error)
}

// taskPayload is the durable payload for every pipeline task. The
// generation ID lets handlers drop work scheduled by a superseded run.
type taskPayload struct {
	JobID        uuid.UUID `json:"job_id"`
	CapsuleID    uuid.UUID `json:"capsule_id"`
	GenerationID uuid.UUID `json:"generation_id"`
	ModuleIndex  int       `json:"module_index"`
}

// Orchestrator drives capsules through the generation pipeline.
type Orchestrator struct {
	store      Store
	generator  ContentGenerator
	sched      scheduler.Scheduler
	maxRetries int
	logger     zerolog.Logger
}

// New builds an Orchestrator. maxRetries <= 0 selects the default.
func New(store Store, generator ContentGenerator, sched scheduler.Scheduler, maxRetries int, logger zerolog.Logger) *Orchestrator {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxModuleRetries
	}
	return &Orchestrator{
		store:      store,
		generator:  generator,
		sched:      sched,
		maxRetries: maxRetries,
		logger:     logger.With().Str("component", "capsule").Logger(),
	}
}

// RegisterHandlers binds the pipeline stages to the task registry.
func (o *Orchestrator) RegisterHandlers(reg *scheduler.Registry) {
	reg.Register(TaskOutline, o.handleTask(o.HandleOutline))
	reg.Register(TaskModule, o.handleTask(o.HandleModule))
	reg.Register(TaskFinalize, o.handleTask(o.HandleFinalize))
}

func (o *Orchestrator) handleTask(fn func(context.Context, taskPayload) error) scheduler.Handler {
	return func(ctx context.Context, raw []byte) error {
		var payload taskPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("failed to decode task payload: %w", err)
		}
		return fn(ctx, payload)
	}
}

// StartGeneration begins a fresh generation run for a capsule. Only pending
// and failed capsules may start; active runs and completed capsules are
// rejected. Modules left behind by a failed run are discarded first so the
// new run's module order stays dense.
func (o *Orchestrator) StartGeneration(ctx context.Context, capsuleID uuid.UUID) (*types.GenerationJob, error) {
	cp, err := o.store.GetCapsule(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if cp == nil {
		return nil, ErrCapsuleNotFound
	}
	switch cp.Status {
	case types.CapsuleGeneratingOutline, types.CapsuleGeneratingContent:
		return nil, ErrAlreadyGenerating
	case types.CapsuleCompleted:
		return nil, ErrAlreadyCompleted
	}
	if cp.Status == types.CapsuleFailed {
		if err := o.store.DeleteModulesForCapsule(ctx, capsuleID); err != nil {
			return nil, err
		}
	}

	job, err := o.store.CreateJob(ctx, capsuleID)
	if err != nil {
		return nil, err
	}
	if err := o.store.UpdateCapsuleStatus(ctx, capsuleID, types.CapsuleGeneratingOutline, nil); err != nil {
		return nil, err
	}
	if err := o.schedule(ctx, TaskOutline, job, 0, 0); err != nil {
		return nil, err
	}
	o.logger.Info().
		Stringer("capsule_id", capsuleID).
		Stringer("job_id", job.ID).
		Msg("generation started")
	return job, nil
}

// Retry restarts generation from scratch for a failed capsule. The guard
// and stale-module cleanup both live in StartGeneration; retry is the same
// entry point under its user-facing name.
func (o *Orchestrator) Retry(ctx context.Context, capsuleID uuid.UUID) (*types.GenerationJob, error) {
	return o.StartGeneration(ctx, capsuleID)
}

// HandleOutline runs the first stage: generate and validate the outline.
// A safety or validity rejection is terminal for the run; its message is
// recorded verbatim as the capsule's failure reason and never retried.
func (o *Orchestrator) HandleOutline(ctx context.Context, payload taskPayload) error {
	job, cp, ok, err := o.loadRun(ctx, payload)
	if err != nil || !ok {
		return err
	}

	// Unlike module stages, an outline failure is terminal: there is no
	// partial work worth protecting, and the user-facing retry restarts
	// from this stage anyway.
	result, genErr := o.generator.Outline(ctx, cp.Source, "", cp.Guidance)
	if genErr != nil {
		o.logger.Error().Err(genErr).Stringer("capsule_id", cp.ID).Msg("outline generation failed")
		return o.failRun(ctx, job, cp.ID, "Failed to generate course outline")
	}

	if result.Rejected != nil {
		o.logger.Info().
			Stringer("capsule_id", cp.ID).
			Str("error_type", result.Rejected.ErrorType).
			Msg("outline rejected")
		return o.failRun(ctx, job, cp.ID, result.Rejected.Message)
	}

	outline := result.Outline
	outlineJSON, err := json.Marshal(outline)
	if err != nil {
		return fmt.Errorf("failed to marshal outline: %w", err)
	}

	if err := o.store.SetCapsuleOutlineMeta(ctx, cp.ID, outline.Title, outline.Description,
		outline.EstimatedDuration, len(outline.Modules), outline.TotalLessons()); err != nil {
		return err
	}

	// An outline with zero modules is valid; the run skips straight to
	// finalizing.
	nextStage := StageFinalizing
	nextTask := TaskFinalize
	if len(outline.Modules) > 0 {
		nextStage = ModuleStage(0)
		nextTask = TaskModule
	}
	if err := o.store.RecordOutline(ctx, job.ID, string(outlineJSON), len(outline.Modules), nextStage); err != nil {
		return err
	}
	if err := o.store.UpdateCapsuleStatus(ctx, cp.ID, types.CapsuleGeneratingContent, nil); err != nil {
		return err
	}
	return o.schedule(ctx, nextTask, job, 0, 0)
}

// HandleModule runs one module stage: re-parse the stored outline, generate
// the module's content, and persist the module with all its lessons in one
// transaction before advancing.
func (o *Orchestrator) HandleModule(ctx context.Context, payload taskPayload) error {
	job, cp, ok, err := o.loadRun(ctx, payload)
	if err != nil || !ok {
		return err
	}

	if job.OutlineJSON == nil {
		return o.failRun(ctx, job, cp.ID, "generation state lost its outline")
	}
	var outline types.CourseOutline
	if err := json.Unmarshal([]byte(*job.OutlineJSON), &outline); err != nil {
		return o.failRun(ctx, job, cp.ID, "stored outline is unreadable")
	}

	idx := payload.ModuleIndex
	content, genErr := o.generator.ModuleContent(ctx, &outline, idx)
	if genErr == nil {
		genErr = o.persistModule(ctx, cp.ID, idx, content)
	}
	if genErr != nil {
		return o.retryStage(ctx, job, payload, genErr,
			fmt.Sprintf("Failed to generate module %d after %%d attempts", idx+1))
	}

	nextStage := StageFinalizing
	nextTask := TaskFinalize
	nextPayloadModule := 0
	if idx+1 < job.TotalModules {
		nextStage = ModuleStage(idx + 1)
		nextTask = TaskModule
		nextPayloadModule = idx + 1
	}
	if err := o.store.AdvanceModule(ctx, job.ID, idx+1, nextPayloadModule, nextStage); err != nil {
		return err
	}
	return o.schedule(ctx, nextTask, job, nextPayloadModule, 0)
}

// HandleFinalize completes the run.
func (o *Orchestrator) HandleFinalize(ctx context.Context, payload taskPayload) error {
	job, cp, ok, err := o.loadRun(ctx, payload)
	if err != nil || !ok {
		return err
	}
	if err := o.store.CompleteJob(ctx, job.ID); err != nil {
		return err
	}
	if err := o.store.CompleteCapsule(ctx, cp.ID); err != nil {
		return err
	}
	o.logger.Info().
		Stringer("capsule_id", cp.ID).
		Stringer("job_id", job.ID).
		Msg("generation completed")
	return nil
}

// loadRun fetches the job and capsule for a payload and decides whether the
// task is still current. Stale tasks (superseded generation, finished or
// failed runs) are dropped without error.
func (o *Orchestrator) loadRun(ctx context.Context, payload taskPayload) (*types.GenerationJob, *types.Capsule, bool, error) {
	job, err := o.store.GetJob(ctx, payload.JobID)
	if err != nil {
		return nil, nil, false, err
	}
	if job == nil || job.GenerationID != payload.GenerationID || job.CompletedAt != nil {
		o.logger.Debug().
			Stringer("job_id", payload.JobID).
			Msg("dropping stale task")
		return nil, nil, false, nil
	}
	cp, err := o.store.GetCapsule(ctx, payload.CapsuleID)
	if err != nil {
		return nil, nil, false, err
	}
	if cp == nil || cp.Status == types.CapsuleFailed || cp.Status == types.CapsuleCompleted {
		return nil, nil, false, nil
	}
	return job, cp, true, nil
}

// retryStage applies the retry policy: up to maxRetries re-runs of the same
// stage with exponential backoff, then a terminal failure whose message
// follows messageFormat (one %d verb for the retry limit).
func (o *Orchestrator) retryStage(ctx context.Context, job *types.GenerationJob, payload taskPayload, cause error, messageFormat string) error {
	count, err := o.store.IncrementRetry(ctx, job.ID, cause.Error())
	if err != nil {
		return err
	}
	if count <= o.maxRetries {
		delay := time.Duration(1<<count) * time.Second
		o.logger.Warn().
			Stringer("capsule_id", payload.CapsuleID).
			Str("stage", job.Stage).
			Int("retry", count).
			Dur("delay", delay).
			Err(cause).
			Msg("stage failed, retrying")
		taskType := TaskOutline
		if _, isModule := ParseModuleStage(job.Stage); isModule {
			taskType = TaskModule
		}
		return o.schedule(ctx, taskType, job, payload.ModuleIndex, delay)
	}
	return o.failRun(ctx, job, payload.CapsuleID, fmt.Sprintf(messageFormat, o.maxRetries))
}

// failRun records a terminal failure on both the job and the capsule.
func (o *Orchestrator) failRun(ctx context.Context, job *types.GenerationJob, capsuleID uuid.UUID, message string) error {
	if err := o.store.FailJob(ctx, job.ID, message); err != nil {
		return err
	}
	if err := o.store.UpdateCapsuleStatus(ctx, capsuleID, types.CapsuleFailed, &message); err != nil {
		return err
	}
	o.logger.Error().
		Stringer("capsule_id", capsuleID).
		Str("reason", message).
		Msg("generation failed")
	return nil
}

func (o *Orchestrator) schedule(ctx context.Context, taskType string, job *types.GenerationJob, moduleIndex int, delay time.Duration) error {
	return o.sched.Schedule(ctx, taskType, taskPayload{
		JobID:        job.ID,
		CapsuleID:    job.CapsuleID,
		GenerationID: job.GenerationID,
		ModuleIndex:  moduleIndex,
	}, delay)
}

// persistModule converts generated content into a module row plus lesson
// rows and stores them atomically.
func (o *Orchestrator) persistModule(ctx context.Context, capsuleID uuid.UUID, idx int, content *types.ModuleContent) error {
	module := &types.Module{
		CapsuleID:          capsuleID,
		Title:              content.Title,
		Description:        content.Description,
		Introduction:       content.Introduction,
		LearningObjectives: content.LearningObjectives,
		Summary:            content.Summary,
		Order:              idx,
	}
	lessons := make([]types.Lesson, 0, len(content.Lessons))
	for i, lc := range content.Lessons {
		payload, err := lessonPayload(lc)
		if err != nil {
			return err
		}
		lessons = append(lessons, types.Lesson{
			Title:       lc.Title,
			Description: lc.Description,
			Order:       i,
			Type:        lc.Type,
			Content:     payload,
		})
	}
	return o.store.CreateModuleWithLessons(ctx, module, lessons)
}

// lessonPayload round-trips a lesson's content through JSON into the opaque
// map the lesson row stores.
func lessonPayload(lc types.LessonContent) (map[string]any, error) {
	raw, err := json.Marshal(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lesson content: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to convert lesson content: %w", err)
	}
	return payload, nil
}
