package types

// Rejection is the structured error shape the outline generator returns when
// a request fails the safety or validity pre-check. Its message is surfaced
// verbatim as the capsule's failure reason.
type Rejection struct {
	ErrorType string `json:"errorType"` // e.g. "harmful_content", "invalid_topic", "url_input"
	Message   string `json:"message"`
}

// CourseOutline is the skeleton produced by the first generation stage:
// titles and descriptions only, no full content.
type CourseOutline struct {
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	EstimatedDuration string          `json:"estimatedDuration,omitempty"`
	Modules           []OutlineModule `json:"modules"`
}

// OutlineModule is a module skeleton within an outline.
type OutlineModule struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Lessons     []OutlineLesson `json:"lessons"`
}

// OutlineLesson is a lesson skeleton within an outline module.
type OutlineLesson struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Type        LessonType `json:"type,omitempty"`
}

// OutlineResult is the tagged union produced by the outline generator:
// exactly one of Rejected or Outline is non-nil.
type OutlineResult struct {
	Rejected *Rejection
	Outline  *CourseOutline
}

// TotalLessons counts lesson skeletons across all modules.
func (o *CourseOutline) TotalLessons() int {
	total := 0
	for _, m := range o.Modules {
		total += len(m.Lessons)
	}
	return total
}
