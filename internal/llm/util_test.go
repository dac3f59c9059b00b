package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no fences", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence with language id", "```javascript\nlet x = 1;\n```", "let x = 1;"},
		{"surrounding whitespace", "  \n{\"a\": 1}\n  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestTruncateContext(t *testing.T) {
	long := strings.Repeat("x", 100)

	assert.Equal(t, long, TruncateContext(long, 0), "non-positive budget disables truncation")
	assert.Equal(t, long, TruncateContext(long, 100))

	got := TruncateContext(long, 10)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("x", 10)))
	assert.Contains(t, got, "truncated")
}
