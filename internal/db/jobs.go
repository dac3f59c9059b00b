package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jordan/capsule-engine/internal/types"
)

const jobColumns = `id, capsule_id, generation_id, stage, outline_generated, outline_json,
	modules_generated, total_modules, current_module, retry_count, last_error,
	created_at, updated_at, completed_at`

func scanJob(row pgx.Row) (*types.GenerationJob, error) {
	var j types.GenerationJob
	err := row.Scan(&j.ID, &j.CapsuleID, &j.GenerationID, &j.Stage, &j.OutlineGenerated,
		&j.OutlineJSON, &j.ModulesGenerated, &j.TotalModules, &j.CurrentModule,
		&j.RetryCount, &j.LastError, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJob inserts a fresh generation job for a capsule. Each job carries
// its own generation ID so stale scheduled work from an earlier run can be
// recognized and dropped.
func (db *DB) CreateJob(ctx context.Context, capsuleID uuid.UUID) (*types.GenerationJob, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO generation_jobs (capsule_id, generation_id, stage)
		 VALUES ($1, $2, 'outline')
		 RETURNING `+jobColumns,
		capsuleID, uuid.New(),
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation job: %w", err)
	}
	return job, nil
}

// GetJob retrieves a generation job by ID. Returns (nil, nil) when not found.
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*types.GenerationJob, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get generation job: %w", err)
	}
	return job, nil
}

// GetLatestJobByCapsule retrieves the most recent generation job for a
// capsule. Returns (nil, nil) when the capsule has never been generated.
func (db *DB) GetLatestJobByCapsule(ctx context.Context, capsuleID uuid.UUID) (*types.GenerationJob, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs
		 WHERE capsule_id = $1 ORDER BY created_at DESC LIMIT 1`,
		capsuleID,
	)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get generation job for capsule: %w", err)
	}
	return job, nil
}

// RecordOutline stores the validated outline on the job and advances it to
// the first module stage, resetting retry bookkeeping.
func (db *DB) RecordOutline(ctx context.Context, jobID uuid.UUID, outlineJSON string, totalModules int, nextStage string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE generation_jobs
		 SET outline_generated = TRUE, outline_json = $1, total_modules = $2,
		     stage = $3, current_module = 0, retry_count = 0, last_error = NULL,
		     updated_at = NOW()
		 WHERE id = $4`,
		outlineJSON, totalModules, nextStage, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to record outline: %w", err)
	}
	return nil
}

// AdvanceModule records a completed module and moves the job to nextStage,
// resetting the per-module retry counter.
func (db *DB) AdvanceModule(ctx context.Context, jobID uuid.UUID, modulesGenerated, currentModule int, nextStage string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE generation_jobs
		 SET modules_generated = $1, current_module = $2, stage = $3,
		     retry_count = 0, last_error = NULL, updated_at = NOW()
		 WHERE id = $4`,
		modulesGenerated, currentModule, nextStage, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to advance module: %w", err)
	}
	return nil
}

// IncrementRetry bumps the job's retry counter atomically and records the
// triggering error, returning the new count.
func (db *DB) IncrementRetry(ctx context.Context, jobID uuid.UUID, lastError string) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`UPDATE generation_jobs
		 SET retry_count = retry_count + 1, last_error = $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING retry_count`,
		lastError, jobID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment retry count: %w", err)
	}
	return count, nil
}

// CompleteJob marks a job's terminal success state.
func (db *DB) CompleteJob(ctx context.Context, jobID uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE generation_jobs
		 SET stage = 'completed', updated_at = NOW(), completed_at = NOW()
		 WHERE id = $1`,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete generation job: %w", err)
	}
	return nil
}

// FailJob records a terminal failure on the job.
func (db *DB) FailJob(ctx context.Context, jobID uuid.UUID, lastError string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE generation_jobs
		 SET last_error = $1, updated_at = NOW(), completed_at = NOW()
		 WHERE id = $2`,
		lastError, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to fail generation job: %w", err)
	}
	return nil
}

// StaleJobs lists jobs whose capsule is still in a generating status but
// which have not been touched for longer than olderThan. Used by the reaper
// to fail runs orphaned by a crashed worker.
func (db *DB) StaleJobs(ctx context.Context, olderThan time.Duration) ([]types.GenerationJob, error) {
	cutoff := time.Now().Add(-olderThan)
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM generation_jobs j
		 WHERE j.completed_at IS NULL
		   AND j.updated_at < $1
		   AND EXISTS (
		     SELECT 1 FROM capsules c
		     WHERE c.id = j.capsule_id
		       AND c.status IN ('generating_outline', 'generating_content')
		   )`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stale job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}
