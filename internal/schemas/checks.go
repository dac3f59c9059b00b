package schemas

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jordan/capsule-engine/internal/types"
)

// blankPlaceholderRe matches {{blankId}} placeholders in fill-blanks text.
var blankPlaceholderRe = regexp.MustCompile(`\{\{([A-Za-z0-9_-]+)\}\}`)

func fieldErr(schema, field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Schema: schema,
		Errors: []FieldError{{Field: field, Message: fmt.Sprintf(format, args...)}},
	}
}

// checkModuleContent enforces the cross-field invariants of module content
// that the shape grammar cannot express: MCQ option/index constraints,
// fill-blanks placeholder bijection, drag-drop item/target bijection, and
// practice question type rotation.
func checkModuleContent(jsonText []byte) error {
	var content types.ModuleContent
	if err := json.Unmarshal(jsonText, &content); err != nil {
		return fmt.Errorf("failed to decode module content: %w", err)
	}

	for li, lesson := range content.Lessons {
		var prevType types.PracticeQuestionType
		for qi, q := range lesson.PracticeQuestions {
			field := fmt.Sprintf("lessons.%d.practiceQuestions.%d", li, qi)

			if qi > 0 && q.Type == prevType {
				return fieldErr(SchemaModuleContent, field,
					"practice question types must rotate; %q repeats the previous question's type", q.Type)
			}
			prevType = q.Type

			switch q.Type {
			case types.QuestionMCQ:
				if err := checkMCQ(SchemaModuleContent, field, q.Options, q.CorrectIndex); err != nil {
					return err
				}
			case types.QuestionFillBlanks:
				if err := checkFillBlanks(field, q.Text, q.Blanks); err != nil {
					return err
				}
			case types.QuestionDragDrop:
				if err := checkDragDrop(field, q.Items, q.Targets); err != nil {
					return err
				}
			default:
				return fieldErr(SchemaModuleContent, field, "unknown practice question type %q", q.Type)
			}
		}
	}
	return nil
}

func checkMCQ(schema, field string, options []string, correctIndex *int) error {
	if len(options) != 4 {
		return fieldErr(schema, field+".options", "mcq requires exactly 4 options, got %d", len(options))
	}
	if correctIndex == nil {
		return fieldErr(schema, field+".correctIndex", "mcq requires correctIndex")
	}
	if *correctIndex < 0 || *correctIndex > 3 {
		return fieldErr(schema, field+".correctIndex", "correctIndex must be in [0,3], got %d", *correctIndex)
	}
	return nil
}

func checkFillBlanks(field, text string, blanks []types.FillBlank) error {
	matches := blankPlaceholderRe.FindAllStringSubmatch(text, -1)
	if len(matches) != len(blanks) {
		return fieldErr(SchemaModuleContent, field,
			"fill-blanks text has %d placeholders but %d blank entries", len(matches), len(blanks))
	}

	known := make(map[string]bool, len(blanks))
	for _, b := range blanks {
		known[b.ID] = true
	}
	for _, m := range matches {
		if !known[m[1]] {
			return fieldErr(SchemaModuleContent, field,
				"placeholder {{%s}} has no matching blank entry", m[1])
		}
	}
	return nil
}

func checkDragDrop(field string, items []types.DragItem, targets []types.DropTarget) error {
	if len(items) != len(targets) {
		return fieldErr(SchemaModuleContent, field,
			"drag-drop requires equal item and target counts, got %d items and %d targets",
			len(items), len(targets))
	}

	itemIDs := make(map[string]bool, len(items))
	for _, it := range items {
		itemIDs[it.ID] = true
	}

	accepted := make(map[string]int, len(items))
	for _, t := range targets {
		if len(t.AcceptsItems) == 0 {
			return fieldErr(SchemaModuleContent, field,
				"drag-drop target %q accepts no items", t.ID)
		}
		for _, id := range t.AcceptsItems {
			if !itemIDs[id] {
				return fieldErr(SchemaModuleContent, field,
					"drag-drop target %q accepts unknown item %q", t.ID, id)
			}
			accepted[id]++
		}
	}

	for _, it := range items {
		if accepted[it.ID] != 1 {
			return fieldErr(SchemaModuleContent, field,
				"drag-drop item %q must appear in exactly one target's accepted items, found %d",
				it.ID, accepted[it.ID])
		}
	}
	return nil
}

// checkNotes enforces the section-quiz option rule: only mcq items carry an
// options array (exactly 4); non-mcq items must not carry one.
func checkNotes(jsonText []byte) error {
	var notes types.Notes
	if err := json.Unmarshal(jsonText, &notes); err != nil {
		return fmt.Errorf("failed to decode notes: %w", err)
	}

	for si, section := range notes.Sections {
		for qi, item := range section.Quiz {
			field := fmt.Sprintf("sections.%d.quiz.%d", si, qi)
			switch item.Type {
			case types.NotesQuizMCQ:
				if len(item.Options) != 4 {
					return fieldErr(SchemaNotes, field+".options",
						"mcq quiz item requires exactly 4 options, got %d", len(item.Options))
				}
			case types.NotesQuizTrueFalse, types.NotesQuizFillBlank:
				if len(item.Options) != 0 {
					return fieldErr(SchemaNotes, field+".options",
						"%s quiz item must not carry an options array", item.Type)
				}
			default:
				return fieldErr(SchemaNotes, field, "unknown quiz item type %q", item.Type)
			}
		}
	}
	return nil
}

// checkSimulationIdeas ties the applicability judgment to the idea count:
// an applicable topic proposes 1-3 ideas, an inapplicable one proposes none.
func checkSimulationIdeas(jsonText []byte) error {
	var ideas types.SimulationIdeas
	if err := json.Unmarshal(jsonText, &ideas); err != nil {
		return fmt.Errorf("failed to decode simulation ideas: %w", err)
	}

	if ideas.Applicable {
		if len(ideas.Ideas) < 1 || len(ideas.Ideas) > 3 {
			return fieldErr(SchemaSimulationIdeas, "ideas",
				"applicable topic requires 1-3 simulation ideas, got %d", len(ideas.Ideas))
		}
	} else if len(ideas.Ideas) != 0 {
		return fieldErr(SchemaSimulationIdeas, "ideas",
			"inapplicable topic must propose no ideas, got %d", len(ideas.Ideas))
	}
	return nil
}
