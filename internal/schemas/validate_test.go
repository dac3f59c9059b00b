package schemas

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validModuleContent = `{
	"title": "Queue Basics",
	"description": "FIFO semantics and operations.",
	"introduction": "Queues model waiting lines.",
	"learningObjectives": ["Explain FIFO ordering"],
	"summary": "Queues process elements in arrival order.",
	"lessons": [
		{
			"title": "What is a queue",
			"description": "",
			"type": "concept",
			"sections": [{"title": "FIFO", "body": "First in, first out."}],
			"practiceQuestions": [
				{
					"type": "mcq",
					"question": "Which end does dequeue remove from?",
					"options": ["front", "back", "middle", "random"],
					"correctIndex": 0,
					"explanation": "Dequeue removes the oldest element."
				},
				{
					"type": "fillBlanks",
					"text": "A queue is a {{b1}} structure.",
					"blanks": [{"id": "b1", "answer": "FIFO"}]
				},
				{
					"type": "dragDrop",
					"question": "Match operations to ends.",
					"items": [{"id": "i1", "label": "enqueue"}, {"id": "i2", "label": "dequeue"}],
					"targets": [
						{"id": "t1", "label": "back", "acceptsItems": ["i1"]},
						{"id": "t2", "label": "front", "acceptsItems": ["i2"]}
					]
				}
			]
		}
	]
}`

func TestModuleContent_Valid(t *testing.T) {
	assert.NoError(t, ModuleContent().Validate(validModuleContent))
}

func TestModuleContent_CrossFieldFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantMsg string
	}{
		{
			name: "drag drop item and target counts differ",
			mutate: func(doc string) string {
				return strings.Replace(doc,
					`[{"id": "i1", "label": "enqueue"}, {"id": "i2", "label": "dequeue"}]`,
					`[{"id": "i1", "label": "enqueue"}]`, 1)
			},
			wantMsg: "equal item and target counts",
		},
		{
			name: "fill blanks placeholder without entry",
			mutate: func(doc string) string {
				return strings.Replace(doc, `a {{b1}} structure`, `a {{b1}} {{b2}} structure`, 1)
			},
			wantMsg: "placeholders",
		},
		{
			name: "drag drop target accepts unknown item",
			mutate: func(doc string) string {
				return strings.Replace(doc, `"acceptsItems": ["i2"]`, `"acceptsItems": ["ghost"]`, 1)
			},
			wantMsg: "unknown item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ModuleContent().Validate(tt.mutate(validModuleContent))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestModuleContent_QuestionTypesMustRotate(t *testing.T) {
	doc := `{
		"title": "Queue Basics",
		"description": "FIFO semantics and operations.",
		"introduction": "",
		"learningObjectives": ["Explain FIFO ordering"],
		"summary": "",
		"lessons": [
			{
				"title": "What is a queue",
				"description": "",
				"type": "quiz",
				"sections": [{"title": "FIFO", "body": "First in, first out."}],
				"practiceQuestions": [
					{
						"type": "mcq",
						"question": "First?",
						"options": ["a", "b", "c", "d"],
						"correctIndex": 0
					},
					{
						"type": "mcq",
						"question": "Again?",
						"options": ["a", "b", "c", "d"],
						"correctIndex": 1
					}
				]
			}
		]
	}`
	err := ModuleContent().Validate(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rotate")
}

func TestOutline_AcceptsCourseAndRejection(t *testing.T) {
	course := `{
		"title": "Intro to Queues",
		"description": "A short course.",
		"modules": [
			{"title": "Basics", "description": "FIFO.", "lessons": [{"title": "What is a queue"}]}
		]
	}`
	assert.NoError(t, Outline().Validate(course))

	rejection := `{"error": true, "errorType": "invalid_topic", "message": "Not a topic."}`
	assert.NoError(t, Outline().Validate(rejection))
}

func TestQuiz_RequiresFourOptions(t *testing.T) {
	doc := `{
		"topic": "Queues",
		"questions": [
			{"question": "Q?", "options": ["a", "b"], "correctIndex": 0, "explanation": "e"}
		]
	}`
	err := Quiz().Validate(doc)
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, SchemaQuiz, ve.Schema)
	assert.NotEmpty(t, ve.Errors)
}

func TestNotes_NonMCQMustNotCarryOptions(t *testing.T) {
	doc := `{
		"topic": "Queues",
		"learningObjectives": ["Explain FIFO"],
		"sections": [
			{
				"title": "Basics",
				"body": "FIFO.",
				"quiz": [
					{"type": "true-false", "question": "Queues are LIFO.", "answer": "false", "options": ["true", "false", "maybe", "never"]}
				]
			}
		]
	}`
	err := Notes().Validate(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not carry an options array")
}

func TestSimulationIdeas_ApplicabilityGates(t *testing.T) {
	applicableNoIdeas := `{"applicable": true, "ideas": []}`
	err := SimulationIdeas().Validate(applicableNoIdeas)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1-3 simulation ideas")

	inapplicableWithIdeas := `{"applicable": false, "reason": "too abstract", "ideas": [
		{"title": "t", "description": "d", "concept": "c"}
	]}`
	err = SimulationIdeas().Validate(inapplicableWithIdeas)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must propose no ideas")

	inapplicable := `{"applicable": false, "reason": "too abstract", "ideas": []}`
	assert.NoError(t, SimulationIdeas().Validate(inapplicable))
}

func TestValidate_NotJSON(t *testing.T) {
	err := Quiz().Validate("definitely not json")
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "(root)", ve.Errors[0].Field)
}
