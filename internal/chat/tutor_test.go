package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordan/capsule-engine/internal/llm"
	"github.com/jordan/capsule-engine/internal/types"
)

type memStore struct {
	messages []*types.ChatMessage
}

func (s *memStore) CreateChatMessage(_ context.Context, subjectID string, role types.ChatRole, content string, done bool) (*types.ChatMessage, error) {
	m := &types.ChatMessage{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Role:      role,
		Content:   content,
		Done:      done,
	}
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *memStore) AppendChatContent(_ context.Context, id uuid.UUID, chunk string) error {
	for _, m := range s.messages {
		if m.ID == id {
			m.Content += chunk
			return nil
		}
	}
	return errors.New("message not found")
}

func (s *memStore) FinishChatMessage(_ context.Context, id uuid.UUID) error {
	for _, m := range s.messages {
		if m.ID == id {
			m.Done = true
			return nil
		}
	}
	return errors.New("message not found")
}

func (s *memStore) ListChatMessages(_ context.Context, subjectID string, _ int) ([]types.ChatMessage, error) {
	var out []types.ChatMessage
	for _, m := range s.messages {
		if m.SubjectID == subjectID {
			out = append(out, *m)
		}
	}
	return out, nil
}

// streamingClient streams a fixed answer in word-sized chunks.
type streamingClient struct {
	chunks []string
}

func (c *streamingClient) GenerateText(context.Context, string, string, llm.Options) (string, error) {
	return "", errors.New("not used")
}

func (c *streamingClient) Close() error { return nil }

func (c *streamingClient) GenerateStream(_ context.Context, _, _ string, _ llm.Options, fn func(string) error) error {
	for _, chunk := range c.chunks {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return nil
}

// plainClient only supports one-shot generation.
type plainClient struct {
	answer string
}

func (c *plainClient) GenerateText(context.Context, string, string, llm.Options) (string, error) {
	return c.answer, nil
}

func (c *plainClient) Close() error { return nil }

func TestAskStreamsIntoDurableMessage(t *testing.T) {
	store := &memStore{}
	tutor := NewTutor(&streamingClient{chunks: []string{"FIFO ", "means ", "first in, first out."}}, store, zerolog.Nop())

	var emitted []string
	reply, err := tutor.Ask(context.Background(), "lesson-1", "Queues are FIFO.", "What does FIFO mean?", func(chunk string) error {
		emitted = append(emitted, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "FIFO means first in, first out.", reply.Content)
	assert.True(t, reply.Done)
	assert.Len(t, emitted, 3)

	require.Len(t, store.messages, 2)
	assert.Equal(t, types.ChatRoleUser, store.messages[0].Role)
	assert.Equal(t, "What does FIFO mean?", store.messages[0].Content)
	assert.Equal(t, reply.Content, store.messages[1].Content, "streamed content must be persisted")
}

func TestAskFallsBackToOneShotClient(t *testing.T) {
	store := &memStore{}
	tutor := NewTutor(&plainClient{answer: "Enqueue adds to the back."}, store, zerolog.Nop())

	reply, err := tutor.Ask(context.Background(), "lesson-1", "material", "What does enqueue do?", nil)

	require.NoError(t, err)
	assert.Equal(t, "Enqueue adds to the back.", reply.Content)
	assert.True(t, reply.Done)
}

func TestAskEmitErrorAbortsStream(t *testing.T) {
	store := &memStore{}
	tutor := NewTutor(&streamingClient{chunks: []string{"a", "b", "c"}}, store, zerolog.Nop())

	_, err := tutor.Ask(context.Background(), "lesson-1", "m", "q", func(string) error {
		return errors.New("client went away")
	})

	assert.ErrorContains(t, err, "client went away")
}
