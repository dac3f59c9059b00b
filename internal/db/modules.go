package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jordan/capsule-engine/internal/types"
)

// CreateModuleWithLessons persists a module and all of its lessons in one
// transaction. A partially persisted module must never be observable, so any
// failure rolls the whole unit back.
func (db *DB) CreateModuleWithLessons(ctx context.Context, module *types.Module, lessons []types.Lesson) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		objectives, err := json.Marshal(module.LearningObjectives)
		if err != nil {
			return fmt.Errorf("failed to marshal learning objectives: %w", err)
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO modules (capsule_id, title, description, introduction, learning_objectives, summary, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, created_at`,
			module.CapsuleID, module.Title, module.Description, module.Introduction,
			objectives, module.Summary, module.Order,
		).Scan(&module.ID, &module.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert module: %w", err)
		}

		for i := range lessons {
			lesson := &lessons[i]
			lesson.ModuleID = module.ID
			lesson.CapsuleID = module.CapsuleID

			content, err := json.Marshal(lesson.Content)
			if err != nil {
				return fmt.Errorf("failed to marshal lesson content: %w", err)
			}
			err = tx.QueryRow(ctx,
				`INSERT INTO lessons (module_id, capsule_id, title, description, position, type, content)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 RETURNING id, created_at`,
				lesson.ModuleID, lesson.CapsuleID, lesson.Title, lesson.Description,
				lesson.Order, lesson.Type, content,
			).Scan(&lesson.ID, &lesson.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert lesson %d: %w", i, err)
			}
		}
		return nil
	})
}

// ListModules retrieves a capsule's modules in position order.
func (db *DB) ListModules(ctx context.Context, capsuleID uuid.UUID) ([]types.Module, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, capsule_id, title, description, introduction, learning_objectives, summary, position, created_at
		 FROM modules WHERE capsule_id = $1 ORDER BY position ASC`,
		capsuleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var modules []types.Module
	for rows.Next() {
		var m types.Module
		var objectives []byte
		if err := rows.Scan(&m.ID, &m.CapsuleID, &m.Title, &m.Description, &m.Introduction,
			&objectives, &m.Summary, &m.Order, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		if len(objectives) > 0 {
			if err := json.Unmarshal(objectives, &m.LearningObjectives); err != nil {
				return nil, fmt.Errorf("failed to unmarshal learning objectives: %w", err)
			}
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// ListLessons retrieves a module's lessons in position order.
func (db *DB) ListLessons(ctx context.Context, moduleID uuid.UUID) ([]types.Lesson, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, module_id, capsule_id, title, description, position, type, content, created_at
		 FROM lessons WHERE module_id = $1 ORDER BY position ASC`,
		moduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []types.Lesson
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, *lesson)
	}
	return lessons, nil
}

// GetLesson retrieves a lesson by ID. Returns (nil, nil) when not found.
func (db *DB) GetLesson(ctx context.Context, id uuid.UUID) (*types.Lesson, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, module_id, capsule_id, title, description, position, type, content, created_at
		 FROM lessons WHERE id = $1`,
		id,
	)
	lesson, err := scanLesson(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return lesson, nil
}

func scanLesson(row pgx.Row) (*types.Lesson, error) {
	var l types.Lesson
	var content []byte
	err := row.Scan(&l.ID, &l.ModuleID, &l.CapsuleID, &l.Title, &l.Description,
		&l.Order, &l.Type, &content, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &l.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal lesson content: %w", err)
		}
	}
	return &l, nil
}

// CountModules returns the number of persisted modules for a capsule.
func (db *DB) CountModules(ctx context.Context, capsuleID uuid.UUID) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM modules WHERE capsule_id = $1`, capsuleID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count modules: %w", err)
	}
	return count, nil
}

// DeleteModulesForCapsule removes all modules (and their lessons via
// cascade) for a capsule. Used when a retry regenerates from scratch.
func (db *DB) DeleteModulesForCapsule(ctx context.Context, capsuleID uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM modules WHERE capsule_id = $1`, capsuleID)
	if err != nil {
		return fmt.Errorf("failed to delete modules: %w", err)
	}
	return nil
}
