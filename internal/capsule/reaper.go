package capsule

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jordan/capsule-engine/internal/types"
)

// DefaultStaleAfter is how long a run may go without progress before the
// reaper fails it.
const DefaultStaleAfter = 15 * time.Minute

const staleMessage = "Generation timed out without progress"

// Reaper periodically fails generation runs that stopped making progress,
// typically because the worker holding them crashed.
type Reaper struct {
	store      Store
	staleAfter time.Duration
	interval   time.Duration
	logger     zerolog.Logger
}

// NewReaper builds a Reaper. Non-positive durations select defaults.
func NewReaper(store Store, staleAfter, interval time.Duration, logger zerolog.Logger) *Reaper {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{
		store:      store,
		staleAfter: staleAfter,
		interval:   interval,
		logger:     logger.With().Str("component", "reaper").Logger(),
	}
}

// Run sweeps on a ticker until the context is canceled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}

// Sweep fails every stale run once.
func (r *Reaper) Sweep(ctx context.Context) error {
	stale, err := r.store.StaleJobs(ctx, r.staleAfter)
	if err != nil {
		return err
	}
	for _, job := range stale {
		msg := staleMessage
		if err := r.store.FailJob(ctx, job.ID, msg); err != nil {
			r.logger.Error().Err(err).Stringer("job_id", job.ID).Msg("failed to fail stale job")
			continue
		}
		if err := r.store.UpdateCapsuleStatus(ctx, job.CapsuleID, types.CapsuleFailed, &msg); err != nil {
			r.logger.Error().Err(err).Stringer("capsule_id", job.CapsuleID).Msg("failed to fail stale capsule")
			continue
		}
		r.logger.Warn().
			Stringer("capsule_id", job.CapsuleID).
			Stringer("job_id", job.ID).
			Str("stage", job.Stage).
			Msg("reaped stale generation run")
	}
	return nil
}
