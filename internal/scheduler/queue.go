package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoTask is returned by Claim when no runnable task exists.
var ErrNoTask = errors.New("no task available")

// Task is one durable unit of scheduled work.
type Task struct {
	ID       uuid.UUID
	Type     string
	Payload  []byte
	RunAt    time.Time
	Attempts int
}

// Queue is the Postgres-backed task store.
type Queue struct {
	pool *pgxpool.Pool
}

// NewQueue builds a Queue over an existing pool.
func NewQueue(pool *pgxpool.Pool) *Queue {
	return &Queue{pool: pool}
}

// Schedule enqueues a task to run after delay. The payload is stored as
// JSON and handed back to the handler verbatim.
func (q *Queue) Schedule(ctx context.Context, taskType string, payload any, delay time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}
	_, err = q.pool.Exec(ctx,
		`INSERT INTO tasks (task_type, payload, run_at, status)
		 VALUES ($1, $2, NOW() + $3, 'queued')`,
		taskType, body, delay,
	)
	if err != nil {
		return fmt.Errorf("failed to schedule task %s: %w", taskType, err)
	}
	return nil
}

// Claim atomically takes the oldest runnable task. Concurrent workers skip
// each other's locks, so a task is claimed exactly once.
func (q *Queue) Claim(ctx context.Context) (*Task, error) {
	row := q.pool.QueryRow(ctx,
		`WITH next_task AS (
		   SELECT id FROM tasks
		   WHERE status = 'queued' AND run_at <= NOW()
		   ORDER BY run_at ASC
		   FOR UPDATE SKIP LOCKED
		   LIMIT 1
		 ),
		 claimed AS (
		   UPDATE tasks
		   SET status = 'running', attempts = attempts + 1, updated_at = NOW()
		   WHERE id IN (SELECT id FROM next_task)
		   RETURNING id, task_type, payload, run_at, attempts
		 )
		 SELECT * FROM claimed`,
	)
	var t Task
	if err := row.Scan(&t.ID, &t.Type, &t.Payload, &t.RunAt, &t.Attempts); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNoTask
		}
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}
	// Detach payload bytes from the driver's buffer.
	t.Payload = append([]byte(nil), t.Payload...)
	return &t, nil
}

// Complete removes a finished task.
func (q *Queue) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	return nil
}

// Fail marks a task failed. Failed tasks are kept for inspection; the
// domain layer owns any retry by scheduling fresh tasks.
func (q *Queue) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := q.pool.Exec(ctx,
		`UPDATE tasks SET status = 'failed', last_error = $1, updated_at = NOW() WHERE id = $2`,
		reason, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark task failed: %w", err)
	}
	return nil
}
