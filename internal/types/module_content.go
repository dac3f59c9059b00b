package types

// ModuleContent is the full generated content for one module, including all
// of its lessons. A module and its lessons are persisted as one atomic unit.
type ModuleContent struct {
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Introduction       string          `json:"introduction"`
	LearningObjectives []string        `json:"learningObjectives"`
	Summary            string          `json:"summary"`
	Lessons            []LessonContent `json:"lessons"`
}

// LessonContent is one generated lesson: ordered sections, optional code
// examples and visualization bundles, plus 2-4 practice questions whose type
// rotates across mcq, fillBlanks and dragDrop.
type LessonContent struct {
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Type              LessonType         `json:"type"`
	Sections          []LessonSection    `json:"sections"`
	CodeExamples      []CodeExample      `json:"codeExamples,omitempty"`
	Visualizations    []Visualization    `json:"visualizations,omitempty"`
	PracticeQuestions []PracticeQuestion `json:"practiceQuestions"`
}

// LessonSection is a titled block of lesson prose.
type LessonSection struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// CodeExample is an annotated code snippet within a lesson.
type CodeExample struct {
	Language    string `json:"language"`
	Code        string `json:"code"`
	Explanation string `json:"explanation,omitempty"`
}

// Visualization is a self-contained interactive bundle. The HTML/CSS/JS are
// opaque strings; execution safety is the renderer's concern.
type Visualization struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
	CSS   string `json:"css,omitempty"`
	JS    string `json:"js,omitempty"`
}

// PracticeQuestionType enumerates the practice question kinds.
type PracticeQuestionType string

const (
	QuestionMCQ        PracticeQuestionType = "mcq"
	QuestionFillBlanks PracticeQuestionType = "fillBlanks"
	QuestionDragDrop   PracticeQuestionType = "dragDrop"
)

// PracticeQuestion is a tagged union over the three question kinds; the
// fields populated depend on Type.
type PracticeQuestion struct {
	Type PracticeQuestionType `json:"type"`

	// mcq
	Question     string   `json:"question,omitempty"`
	Options      []string `json:"options,omitempty"` // exactly 4 for mcq
	CorrectIndex *int     `json:"correctIndex,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`

	// fillBlanks
	Text   string      `json:"text,omitempty"` // contains {{blankId}} placeholders
	Blanks []FillBlank `json:"blanks,omitempty"`

	// dragDrop
	Items   []DragItem   `json:"items,omitempty"`
	Targets []DropTarget `json:"targets,omitempty"`
}

// FillBlank is one blank in a fill-in-the-blanks question.
type FillBlank struct {
	ID     string `json:"id"`
	Answer string `json:"answer"`
}

// DragItem is a draggable item in a drag-drop question.
type DragItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DropTarget is a drop target; AcceptsItems lists the item ids it accepts.
type DropTarget struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	AcceptsItems []string `json:"acceptsItems"`
}
