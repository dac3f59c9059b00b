package types

import (
	"time"

	"github.com/google/uuid"
)

// ChatRole enumerates chat message authorship.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one message in a tutoring conversation. Assistant messages
// are written incrementally while the model streams, so Content may be
// partial until Done is set.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	SubjectID string    `json:"subject_id"` // video id or lesson id
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
