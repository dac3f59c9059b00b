// Package chat implements the tutoring conversation over lesson or video
// material. Assistant replies stream: chunks are appended to the durable
// message record as they arrive, so a dropped client can reload mid-answer.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jordan/capsule-engine/internal/llm"
	"github.com/jordan/capsule-engine/internal/prompts"
	"github.com/jordan/capsule-engine/internal/types"
)

const materialContextBudget = 15000

// historyLimit caps how many prior messages are replayed into the prompt.
const historyLimit = 20

// Store is the persistence surface the tutor needs.
type Store interface {
	CreateChatMessage(ctx context.Context, subjectID string, role types.ChatRole, content string, done bool) (*types.ChatMessage, error)
	AppendChatContent(ctx context.Context, id uuid.UUID, chunk string) error
	FinishChatMessage(ctx context.Context, id uuid.UUID) error
	ListChatMessages(ctx context.Context, subjectID string, limit int) ([]types.ChatMessage, error)
}

// Tutor answers learner questions grounded in the current material.
type Tutor struct {
	client llm.Client
	store  Store
	logger zerolog.Logger
}

// NewTutor builds a Tutor.
func NewTutor(client llm.Client, store Store, logger zerolog.Logger) *Tutor {
	return &Tutor{
		client: client,
		store:  store,
		logger: logger.With().Str("component", "chat").Logger(),
	}
}

// Ask records the learner's question, streams the assistant's answer into a
// new message record, and forwards each chunk to emit (which may be nil).
// The returned message carries the complete answer.
func (t *Tutor) Ask(ctx context.Context, subjectID, material, question string, emit func(chunk string) error) (*types.ChatMessage, error) {
	history, err := t.store.ListChatMessages(ctx, subjectID, historyLimit)
	if err != nil {
		return nil, err
	}

	if _, err := t.store.CreateChatMessage(ctx, subjectID, types.ChatRoleUser, question, true); err != nil {
		return nil, err
	}

	system := prompts.MustGet("chat.json", "tutor-system")
	contextBlock := prompts.Format(prompts.MustGet("chat.json", "tutor-context"), map[string]string{
		"Material": llm.TruncateContext(material, materialContextBudget),
		"History":  renderHistory(history),
	})
	user := contextBlock + "\n\nLearner question:\n" + question

	reply, err := t.store.CreateChatMessage(ctx, subjectID, types.ChatRoleAssistant, "", false)
	if err != nil {
		return nil, err
	}

	var full strings.Builder
	write := func(chunk string) error {
		full.WriteString(chunk)
		if err := t.store.AppendChatContent(ctx, reply.ID, chunk); err != nil {
			return err
		}
		if emit != nil {
			return emit(chunk)
		}
		return nil
	}

	opts := llm.Options{Tier: llm.TierStandard}
	if streamer, ok := t.client.(llm.Streamer); ok {
		err = streamer.GenerateStream(ctx, system, user, opts, write)
	} else {
		var text string
		text, err = t.client.GenerateText(ctx, system, user, opts)
		if err == nil {
			err = write(text)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("tutor reply failed: %w", err)
	}

	if err := t.store.FinishChatMessage(ctx, reply.ID); err != nil {
		return nil, err
	}
	reply.Content = full.String()
	reply.Done = true
	return reply, nil
}

// History returns the stored conversation for a subject.
func (t *Tutor) History(ctx context.Context, subjectID string) ([]types.ChatMessage, error) {
	return t.store.ListChatMessages(ctx, subjectID, 0)
}

func renderHistory(messages []types.ChatMessage) string {
	if len(messages) == 0 {
		return "(no prior messages)"
	}
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
