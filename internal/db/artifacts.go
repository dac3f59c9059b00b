package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jordan/capsule-engine/internal/types"
)

const artifactColumns = `id, kind, subject_id, status, error, content, created_at, updated_at`

func scanArtifact(row pgx.Row) (*types.Artifact, error) {
	var a types.Artifact
	var content []byte
	err := row.Scan(&a.ID, &a.Kind, &a.SubjectID, &a.Status, &a.Error, &content,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &a.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifact content: %w", err)
		}
	}
	return &a, nil
}

// ClaimArtifact takes ownership of generating the (kind, subject) artifact.
// One artifact row exists per kind per subject. A missing or failed row is
// (re)claimed as generating; a completed or in-flight row is returned as-is
// with claimed = false so callers do not duplicate work.
func (db *DB) ClaimArtifact(ctx context.Context, kind types.ArtifactKind, subjectID string) (*types.Artifact, bool, error) {
	var artifact *types.Artifact
	var claimed bool

	err := db.withTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+artifactColumns+` FROM artifacts
			 WHERE kind = $1 AND subject_id = $2 FOR UPDATE`,
			kind, subjectID,
		)
		existing, err := scanArtifact(row)
		if err == pgx.ErrNoRows {
			row := tx.QueryRow(ctx,
				`INSERT INTO artifacts (kind, subject_id, status)
				 VALUES ($1, $2, 'generating')
				 RETURNING `+artifactColumns,
				kind, subjectID,
			)
			artifact, err = scanArtifact(row)
			if err != nil {
				return fmt.Errorf("failed to insert artifact: %w", err)
			}
			claimed = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock artifact: %w", err)
		}

		if existing.Status != types.ArtifactFailed && existing.Status != types.ArtifactPending {
			artifact = existing
			return nil
		}
		row = tx.QueryRow(ctx,
			`UPDATE artifacts
			 SET status = 'generating', error = NULL, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+artifactColumns,
			existing.ID,
		)
		artifact, err = scanArtifact(row)
		if err != nil {
			return fmt.Errorf("failed to reclaim artifact: %w", err)
		}
		claimed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return artifact, claimed, nil
}

// GetArtifact retrieves an artifact by kind and subject. Returns (nil, nil)
// when not found.
func (db *DB) GetArtifact(ctx context.Context, kind types.ArtifactKind, subjectID string) (*types.Artifact, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE kind = $1 AND subject_id = $2`,
		kind, subjectID,
	)
	artifact, err := scanArtifact(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return artifact, nil
}

// CompleteArtifact stores the validated content and marks the artifact
// completed.
func (db *DB) CompleteArtifact(ctx context.Context, kind types.ArtifactKind, subjectID string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact content: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`UPDATE artifacts
		 SET status = 'completed', content = $1, error = NULL, updated_at = NOW()
		 WHERE kind = $2 AND subject_id = $3`,
		jsonBytes, kind, subjectID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete artifact: %w", err)
	}
	return nil
}

// FailArtifact records a failed generation so the artifact can be retried.
func (db *DB) FailArtifact(ctx context.Context, kind types.ArtifactKind, subjectID, errorMessage string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE artifacts
		 SET status = 'failed', error = $1, updated_at = NOW()
		 WHERE kind = $2 AND subject_id = $3`,
		errorMessage, kind, subjectID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark artifact failed: %w", err)
	}
	return nil
}
