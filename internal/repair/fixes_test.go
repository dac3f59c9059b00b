package repair

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain object untouched",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "json fence",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "bare fence",
			input: "```\n[1, 2]\n```",
			want:  `[1, 2]`,
		},
		{
			name:  "prose before and after",
			input: "Here is the result:\n{\"a\": {\"b\": 2}}\nHope that helps!",
			want:  `{"a": {"b": 2}}`,
		},
		{
			name:  "braces inside strings do not confuse extraction",
			input: "Sure: {\"text\": \"a } inside\", \"n\": 1} done",
			want:  `{"text": "a } inside", "n": 1}`,
		},
		{
			name:  "no json returns trimmed input",
			input: "  nothing here  ",
			want:  "nothing here",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.input))
		})
	}
}

func TestFixLaTeXEscapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "single backslash doubled",
			input: `{"body": "\frac{1}{2}"}`,
			want:  `{"body": "\\frac{1}{2}"}`,
		},
		{
			name:  "already escaped untouched",
			input: `{"body": "\\sqrt{x}"}`,
			want:  `{"body": "\\sqrt{x}"}`,
		},
		{
			name:  "longer command wins over prefix",
			input: `\int_0^1`,
			want:  `\\int_0^1`,
		},
		{
			name:  "unknown sequences untouched",
			input: `C:\newfolder\path`,
			want:  `C:\newfolder\path`,
		},
		{
			name:  "command must end at word boundary",
			input: `\pivot`,
			want:  `\pivot`,
		},
		{
			name:  "multiple commands in one string",
			input: `\alpha + \beta = \gamma`,
			want:  `\\alpha + \\beta = \\gamma`,
		},
		{
			name:  "subscripted sum",
			input: `\sum_{i=0}^{n} i`,
			want:  `\\sum_{i=0}^{n} i`,
		},
		{
			name:  "subscripted symbol",
			input: `\pi_1(X)`,
			want:  `\\pi_1(X)`,
		},
		{
			name:  "digit after command",
			input: `\ln2`,
			want:  `\\ln2`,
		},
		{
			name:  "command at end of input",
			input: `x \approx`,
			want:  `x \\approx`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FixLaTeXEscapes(tt.input))
		})
	}
}

func TestFixLaTeXEscapesIdempotent(t *testing.T) {
	input := `{"a": "\frac{x}{y} and \\pi and \sum_i"}`
	once := FixLaTeXEscapes(input)
	twice := FixLaTeXEscapes(once)
	assert.Equal(t, once, twice)
}

func TestStripEmptyArrays(t *testing.T) {
	raw := `{
		"title": "t",
		"codeExamples": [],
		"sections": [
			{"heading": "h", "callouts": [], "highlights": [{"type": "insight", "text": "x"}]}
		]
	}`
	var doc any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	got := StripEmptyArrays(doc).(map[string]any)

	assert.NotContains(t, got, "codeExamples")
	section := got["sections"].([]any)[0].(map[string]any)
	assert.NotContains(t, section, "callouts")
	assert.Contains(t, section, "highlights")
}
