package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jordan/capsule-engine/internal/types"
)

const capsuleColumns = `id, title, description, source, guidance, status, error_message,
	module_count, lesson_count, estimated_duration, created_at, updated_at, completed_at`

func scanCapsule(row pgx.Row) (*types.Capsule, error) {
	var c types.Capsule
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Source, &c.Guidance, &c.Status,
		&c.ErrorMessage, &c.ModuleCount, &c.LessonCount, &c.EstimatedDuration,
		&c.CreatedAt, &c.UpdatedAt, &c.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCapsule inserts a new capsule in pending status and returns it.
func (db *DB) CreateCapsule(ctx context.Context, source, guidance string) (*types.Capsule, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO capsules (source, guidance, status)
		 VALUES ($1, $2, 'pending')
		 RETURNING `+capsuleColumns,
		source, guidance,
	)
	capsule, err := scanCapsule(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create capsule: %w", err)
	}
	return capsule, nil
}

// GetCapsule retrieves a capsule by ID. Returns (nil, nil) when not found.
func (db *DB) GetCapsule(ctx context.Context, id uuid.UUID) (*types.Capsule, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+capsuleColumns+` FROM capsules WHERE id = $1`, id)
	capsule, err := scanCapsule(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get capsule: %w", err)
	}
	return capsule, nil
}

// ListCapsules retrieves recent capsules, newest first.
func (db *DB) ListCapsules(ctx context.Context, limit int) ([]types.Capsule, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+capsuleColumns+` FROM capsules ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list capsules: %w", err)
	}
	defer rows.Close()

	var capsules []types.Capsule
	for rows.Next() {
		capsule, err := scanCapsule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capsule: %w", err)
		}
		capsules = append(capsules, *capsule)
	}
	return capsules, nil
}

// UpdateCapsuleStatus transitions a capsule's status. A non-nil errorMessage
// records the failure reason; passing nil clears it.
func (db *DB) UpdateCapsuleStatus(ctx context.Context, id uuid.UUID, status types.CapsuleStatus, errorMessage *string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE capsules SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3`,
		status, errorMessage, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update capsule status: %w", err)
	}
	return nil
}

// SetCapsuleOutlineMeta records the outline-derived metadata once the first
// generation stage succeeds.
func (db *DB) SetCapsuleOutlineMeta(ctx context.Context, id uuid.UUID, title, description, estimatedDuration string, moduleCount, lessonCount int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE capsules
		 SET title = $1, description = $2, estimated_duration = $3,
		     module_count = $4, lesson_count = $5, updated_at = NOW()
		 WHERE id = $6`,
		title, description, estimatedDuration, moduleCount, lessonCount, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set capsule outline metadata: %w", err)
	}
	return nil
}

// CompleteCapsule marks a capsule completed and stamps completed_at.
func (db *DB) CompleteCapsule(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE capsules
		 SET status = 'completed', error_message = NULL, updated_at = NOW(), completed_at = NOW()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete capsule: %w", err)
	}
	return nil
}

// DeleteCapsule removes a capsule; modules, lessons and jobs cascade.
func (db *DB) DeleteCapsule(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM capsules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete capsule: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("capsule not found: %s", id)
	}
	return nil
}
