package capsule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jordan/capsule-engine/internal/types"
)

// fakeStore is an in-memory Store.
type fakeStore struct {
	capsules map[uuid.UUID]*types.Capsule
	jobs     map[uuid.UUID]*types.GenerationJob
	modules  []types.Module
	lessons  []types.Lesson
	stale    []types.GenerationJob

	failCreateModule bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		capsules: make(map[uuid.UUID]*types.Capsule),
		jobs:     make(map[uuid.UUID]*types.GenerationJob),
	}
}

func (s *fakeStore) addCapsule(source string) *types.Capsule {
	cp := &types.Capsule{
		ID:     uuid.New(),
		Source: source,
		Status: types.CapsulePending,
	}
	s.capsules[cp.ID] = cp
	return cp
}

func (s *fakeStore) GetCapsule(_ context.Context, id uuid.UUID) (*types.Capsule, error) {
	return s.capsules[id], nil
}

func (s *fakeStore) UpdateCapsuleStatus(_ context.Context, id uuid.UUID, status types.CapsuleStatus, errorMessage *string) error {
	cp, ok := s.capsules[id]
	if !ok {
		return errors.New("capsule not found")
	}
	cp.Status = status
	cp.ErrorMessage = errorMessage
	return nil
}

func (s *fakeStore) SetCapsuleOutlineMeta(_ context.Context, id uuid.UUID, title, description, estimatedDuration string, moduleCount, lessonCount int) error {
	cp := s.capsules[id]
	cp.Title = title
	cp.Description = description
	cp.EstimatedDuration = estimatedDuration
	cp.ModuleCount = moduleCount
	cp.LessonCount = lessonCount
	return nil
}

func (s *fakeStore) CompleteCapsule(_ context.Context, id uuid.UUID) error {
	now := time.Now()
	cp := s.capsules[id]
	cp.Status = types.CapsuleCompleted
	cp.ErrorMessage = nil
	cp.CompletedAt = &now
	return nil
}

func (s *fakeStore) CreateJob(_ context.Context, capsuleID uuid.UUID) (*types.GenerationJob, error) {
	job := &types.GenerationJob{
		ID:           uuid.New(),
		CapsuleID:    capsuleID,
		GenerationID: uuid.New(),
		Stage:        StageOutline,
	}
	s.jobs[job.ID] = job
	return job, nil
}

func (s *fakeStore) GetJob(_ context.Context, id uuid.UUID) (*types.GenerationJob, error) {
	return s.jobs[id], nil
}

func (s *fakeStore) GetLatestJobByCapsule(_ context.Context, capsuleID uuid.UUID) (*types.GenerationJob, error) {
	var latest *types.GenerationJob
	for _, job := range s.jobs {
		if job.CapsuleID == capsuleID {
			if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
				latest = job
			}
		}
	}
	return latest, nil
}

func (s *fakeStore) RecordOutline(_ context.Context, jobID uuid.UUID, outlineJSON string, totalModules int, nextStage string) error {
	job := s.jobs[jobID]
	job.OutlineGenerated = true
	job.OutlineJSON = &outlineJSON
	job.TotalModules = totalModules
	job.Stage = nextStage
	job.CurrentModule = 0
	job.RetryCount = 0
	job.LastError = nil
	return nil
}

func (s *fakeStore) AdvanceModule(_ context.Context, jobID uuid.UUID, modulesGenerated, currentModule int, nextStage string) error {
	job := s.jobs[jobID]
	job.ModulesGenerated = modulesGenerated
	job.CurrentModule = currentModule
	job.Stage = nextStage
	job.RetryCount = 0
	job.LastError = nil
	return nil
}

func (s *fakeStore) IncrementRetry(_ context.Context, jobID uuid.UUID, lastError string) (int, error) {
	job := s.jobs[jobID]
	job.RetryCount++
	job.LastError = &lastError
	return job.RetryCount, nil
}

func (s *fakeStore) CompleteJob(_ context.Context, jobID uuid.UUID) error {
	now := time.Now()
	job := s.jobs[jobID]
	job.Stage = StageCompleted
	job.CompletedAt = &now
	return nil
}

func (s *fakeStore) FailJob(_ context.Context, jobID uuid.UUID, lastError string) error {
	now := time.Now()
	job := s.jobs[jobID]
	job.LastError = &lastError
	job.CompletedAt = &now
	return nil
}

func (s *fakeStore) StaleJobs(_ context.Context, _ time.Duration) ([]types.GenerationJob, error) {
	return s.stale, nil
}

func (s *fakeStore) CreateModuleWithLessons(_ context.Context, module *types.Module, lessons []types.Lesson) error {
	if s.failCreateModule {
		return errors.New("storage unavailable")
	}
	module.ID = uuid.New()
	s.modules = append(s.modules, *module)
	for i := range lessons {
		lessons[i].ID = uuid.New()
		lessons[i].ModuleID = module.ID
		lessons[i].CapsuleID = module.CapsuleID
	}
	s.lessons = append(s.lessons, lessons...)
	return nil
}

func (s *fakeStore) DeleteModulesForCapsule(_ context.Context, capsuleID uuid.UUID) error {
	var keptModules []types.Module
	for _, m := range s.modules {
		if m.CapsuleID != capsuleID {
			keptModules = append(keptModules, m)
		}
	}
	s.modules = keptModules
	var keptLessons []types.Lesson
	for _, l := range s.lessons {
		if l.CapsuleID != capsuleID {
			keptLessons = append(keptLessons, l)
		}
	}
	s.lessons = keptLessons
	return nil
}

// scheduledTask records one Schedule call.
type scheduledTask struct {
	taskType string
	payload  taskPayload
	delay    time.Duration
}

// fakeScheduler records scheduled tasks for the test to pump manually.
type fakeScheduler struct {
	tasks []scheduledTask
}

func (f *fakeScheduler) Schedule(_ context.Context, taskType string, payload any, delay time.Duration) error {
	f.tasks = append(f.tasks, scheduledTask{
		taskType: taskType,
		payload:  payload.(taskPayload),
		delay:    delay,
	})
	return nil
}

// pop removes and returns the oldest scheduled task.
func (f *fakeScheduler) pop() (scheduledTask, bool) {
	if len(f.tasks) == 0 {
		return scheduledTask{}, false
	}
	t := f.tasks[0]
	f.tasks = f.tasks[1:]
	return t, true
}

// fakeGenerator replays scripted results.
type fakeGenerator struct {
	outlineResult *types.OutlineResult
	outlineErr    error

	moduleContents map[int]*types.ModuleContent
	moduleErrs     map[int]error
	moduleCalls    []int
}

func (g *fakeGenerator) Outline(_ context.Context, _, _, _ string) (*types.OutlineResult, error) {
	return g.outlineResult, g.outlineErr
}

func (g *fakeGenerator) ModuleContent(_ context.Context, _ *types.CourseOutline, moduleIndex int) (*types.ModuleContent, error) {
	g.moduleCalls = append(g.moduleCalls, moduleIndex)
	if err, ok := g.moduleErrs[moduleIndex]; ok && err != nil {
		return nil, err
	}
	if content, ok := g.moduleContents[moduleIndex]; ok {
		return content, nil
	}
	return nil, errors.New("fakeGenerator: no content scripted")
}
