package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jordan/capsule-engine/internal/types"
)

const chatColumns = `id, subject_id, role, content, done, created_at, updated_at`

func scanChatMessage(row pgx.Row) (*types.ChatMessage, error) {
	var m types.ChatMessage
	err := row.Scan(&m.ID, &m.SubjectID, &m.Role, &m.Content, &m.Done, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateChatMessage inserts a message. Assistant messages start empty and
// not done; their content arrives through AppendChatContent as the model
// streams.
func (db *DB) CreateChatMessage(ctx context.Context, subjectID string, role types.ChatRole, content string, done bool) (*types.ChatMessage, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO chat_messages (subject_id, role, content, done)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+chatColumns,
		subjectID, role, content, done,
	)
	msg, err := scanChatMessage(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat message: %w", err)
	}
	return msg, nil
}

// AppendChatContent appends a streamed chunk to a message.
func (db *DB) AppendChatContent(ctx context.Context, id uuid.UUID, chunk string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE chat_messages SET content = content || $1, updated_at = NOW() WHERE id = $2`,
		chunk, id,
	)
	if err != nil {
		return fmt.Errorf("failed to append chat content: %w", err)
	}
	return nil
}

// FinishChatMessage marks a streamed message complete.
func (db *DB) FinishChatMessage(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE chat_messages SET done = TRUE, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish chat message: %w", err)
	}
	return nil
}

// ListChatMessages retrieves a subject's conversation in order.
func (db *DB) ListChatMessages(ctx context.Context, subjectID string, limit int) ([]types.ChatMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+chatColumns+` FROM chat_messages
		 WHERE subject_id = $1 ORDER BY created_at ASC LIMIT $2`,
		subjectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []types.ChatMessage
	for rows.Next() {
		msg, err := scanChatMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}
