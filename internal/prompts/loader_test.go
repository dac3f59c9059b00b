package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKnownPrompts(t *testing.T) {
	// Every key the generators and repair engine depend on at runtime.
	keys := map[string][]string{
		"capsule.json": {
			"outline-system", "outline-user",
			"module-content-system", "module-content-user",
		},
		"artifacts.json": {
			"notes-system", "notes-user",
			"quiz-system", "quiz-user",
			"flashcards-system", "flashcards-user",
			"simulation-ideas-system", "simulation-ideas-user",
			"simulation-code-system", "simulation-code-user",
		},
		"repair.json": {"repair-specialist", "repair-user"},
		"chat.json":   {"tutor-system", "tutor-context"},
	}
	for filename, fileKeys := range keys {
		for _, key := range fileKeys {
			prompt, err := Get(filename, key)
			require.NoError(t, err, "%s/%s", filename, key)
			assert.NotEmpty(t, prompt)
		}
	}
}

func TestGetUnknownKey(t *testing.T) {
	_, err := Get("capsule.json", "nope")
	assert.ErrorContains(t, err, `prompt key "nope" not found`)
}

func TestGetUnknownFile(t *testing.T) {
	_, err := Get("missing.json", "outline-system")
	assert.ErrorContains(t, err, "failed to read prompt file")
}

func TestFormat(t *testing.T) {
	got := Format("Topic: {{.Topic}} ({{.Difficulty}})", map[string]string{
		"Topic":      "queues",
		"Difficulty": "beginner",
	})
	assert.Equal(t, "Topic: queues (beginner)", got)
}

func TestFormatLeavesNonTemplateBracesAlone(t *testing.T) {
	// fillBlanks placeholders like {{b1}} have no leading dot and must survive.
	got := Format("A {{b1}} is {{.Thing}}", map[string]string{"Thing": "here"})
	assert.Equal(t, "A {{b1}} is here", got)
}
