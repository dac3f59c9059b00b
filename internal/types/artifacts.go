package types

import (
	"time"

	"github.com/google/uuid"
)

// ArtifactStatus is the one-shot generation status carried by every
// structured artifact, independent of the capsule pipeline's status.
type ArtifactStatus string

const (
	ArtifactPending    ArtifactStatus = "pending"
	ArtifactGenerating ArtifactStatus = "generating"
	ArtifactCompleted  ArtifactStatus = "completed"
	ArtifactFailed     ArtifactStatus = "failed"
)

// ArtifactKind enumerates the structured artifact categories.
type ArtifactKind string

const (
	ArtifactNotes           ArtifactKind = "notes"
	ArtifactQuiz            ArtifactKind = "quiz"
	ArtifactFlashcards      ArtifactKind = "flashcards"
	ArtifactSimulationIdeas ArtifactKind = "simulation_ideas"
	ArtifactSimulationCode  ArtifactKind = "simulation_code"
)

// Artifact is a schema-validated JSON document attached to a video or a
// capsule lesson.
type Artifact struct {
	ID        uuid.UUID      `json:"id"`
	Kind      ArtifactKind   `json:"kind"`
	SubjectID string         `json:"subject_id"` // video id or lesson id
	Status    ArtifactStatus `json:"status"`
	Error     *string        `json:"error,omitempty"`
	Content   map[string]any `json:"content,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CalloutType is the closed enum for notes section callouts.
type CalloutType string

const (
	CalloutTip           CalloutType = "tip"
	CalloutExample       CalloutType = "example"
	CalloutNote          CalloutType = "note"
	CalloutCommonMistake CalloutType = "common-mistake"
)

// HighlightType is the closed enum for notes highlights. It is deliberately
// disjoint from CalloutType and the two must never be confused.
type HighlightType string

const (
	HighlightInsight   HighlightType = "insight"
	HighlightImportant HighlightType = "important"
	HighlightWarning   HighlightType = "warning"
)

// Notes is the structured study-notes artifact.
type Notes struct {
	Topic              string         `json:"topic"`
	LearningObjectives []string       `json:"learningObjectives"`
	Sections           []NotesSection `json:"sections"`
}

// NotesSection is one ordered section of study notes.
type NotesSection struct {
	Title               string          `json:"title"`
	Body                string          `json:"body"`
	Callouts            []Callout       `json:"callouts,omitempty"`
	Highlights          []Highlight     `json:"highlights,omitempty"`
	Definitions         []Definition    `json:"definitions,omitempty"`
	CodeBlocks          []CodeExample   `json:"codeBlocks,omitempty"`
	InteractivePrompts  []string        `json:"interactivePrompts,omitempty"`
	ReflectionQuestions []string        `json:"reflectionQuestions,omitempty"`
	Quiz                []NotesQuizItem `json:"quiz,omitempty"`
}

// Callout is a typed aside within a notes section.
type Callout struct {
	Type CalloutType `json:"type"`
	Text string      `json:"text"`
}

// Highlight marks a span of note text with a significance level.
type Highlight struct {
	Type HighlightType `json:"type"`
	Text string        `json:"text"`
}

// Definition is a term/meaning pair.
type Definition struct {
	Term    string `json:"term"`
	Meaning string `json:"meaning"`
}

// NotesQuizItemType enumerates the section-level quiz item kinds.
type NotesQuizItemType string

const (
	NotesQuizMCQ       NotesQuizItemType = "mcq"
	NotesQuizTrueFalse NotesQuizItemType = "true-false"
	NotesQuizFillBlank NotesQuizItemType = "fill-blank"
)

// NotesQuizItem is one section-quiz item. Only mcq items carry an options
// array (exactly 4); non-mcq items must not carry one.
type NotesQuizItem struct {
	Type        NotesQuizItemType `json:"type"`
	Question    string            `json:"question"`
	Options     []string          `json:"options,omitempty"`
	Answer      string            `json:"answer"`
	Explanation string            `json:"explanation,omitempty"`
}

// Quiz is the final comprehensive quiz: a flat list of 4-option MCQs.
type Quiz struct {
	Topic     string         `json:"topic"`
	Questions []QuizQuestion `json:"questions"`
}

// QuizQuestion is a 4-option multiple choice question with an explanation.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// Flashcards is a flat list of study cards.
type Flashcards struct {
	Topic string      `json:"topic"`
	Cards []Flashcard `json:"cards"`
}

// Flashcard is a front/back card with an optional hint.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
	Hint  string `json:"hint,omitempty"`
}

// SimulationIdeas is the first phase of simulation generation: 1-3 proposed
// ideas plus an explicit applicability judgment. Zero viable simulations is
// a valid, non-error outcome.
type SimulationIdeas struct {
	Applicable bool             `json:"applicable"`
	Reason     string           `json:"reason,omitempty"`
	Ideas      []SimulationIdea `json:"ideas,omitempty"`
}

// SimulationIdea is one proposed interactive simulation.
type SimulationIdea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Concept     string `json:"concept"`
}

// SimulationCode is the second phase: self-contained HTML/CSS/JS for one
// chosen idea. Never executed or validated by this system.
type SimulationCode struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
	CSS   string `json:"css,omitempty"`
	JS    string `json:"js,omitempty"`
}
