package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Worker polls the queue and dispatches tasks to registered handlers.
type Worker struct {
	queue        *Queue
	registry     *Registry
	logger       zerolog.Logger
	pollInterval time.Duration
	concurrency  int
}

// NewWorker builds a Worker. concurrency <= 0 selects a single loop;
// pollInterval <= 0 selects one second.
func NewWorker(queue *Queue, registry *Registry, logger zerolog.Logger, pollInterval time.Duration, concurrency int) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		queue:        queue,
		registry:     registry,
		logger:       logger.With().Str("component", "scheduler").Logger(),
		pollInterval: pollInterval,
		concurrency:  concurrency,
	}
}

// Run executes poll loops until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Int("concurrency", w.concurrency).Msg("worker started")
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error { return w.loop(ctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		w.logger.Info().Msg("worker stopped")
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		task, err := w.queue.Claim(ctx)
		if err != nil {
			if !errors.Is(err, ErrNoTask) {
				w.logger.Error().Err(err).Msg("failed to claim task")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.pollInterval):
			}
			continue
		}

		w.dispatch(ctx, task)
	}
}

func (w *Worker) dispatch(ctx context.Context, task *Task) {
	log := w.logger.With().
		Stringer("task_id", task.ID).
		Str("task_type", task.Type).
		Int("attempt", task.Attempts).
		Logger()

	handler, ok := w.registry.Lookup(task.Type)
	if !ok {
		log.Error().Msg("no handler registered for task type")
		if err := w.queue.Fail(ctx, task.ID, "no handler registered"); err != nil {
			log.Error().Err(err).Msg("failed to mark task failed")
		}
		return
	}

	log.Info().Msg("task picked")
	if err := handler(ctx, task.Payload); err != nil {
		log.Error().Err(err).Msg("task failed")
		if failErr := w.queue.Fail(ctx, task.ID, err.Error()); failErr != nil {
			log.Error().Err(failErr).Msg("failed to mark task failed")
		}
		return
	}
	if err := w.queue.Complete(ctx, task.ID); err != nil {
		log.Error().Err(err).Msg("failed to complete task")
		return
	}
	log.Info().Msg("task completed")
}
