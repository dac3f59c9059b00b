// Package generate implements the structured content generators. Every
// generator follows the same path: build prompts from the embedded templates,
// call the model with JSON output requested, then hand the raw text to the
// repair engine, which only returns schema-valid documents.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jordan/capsule-engine/internal/llm"
	"github.com/jordan/capsule-engine/internal/prompts"
	"github.com/jordan/capsule-engine/internal/repair"
	"github.com/jordan/capsule-engine/internal/schemas"
	"github.com/jordan/capsule-engine/internal/types"
)

// Context budgets in characters. Long-form inputs (module content, notes)
// get the larger budget; summary-style artifacts work from less.
const (
	contentContextBudget = 30000
	summaryContextBudget = 15000
)

// Generator produces schema-valid structured content.
type Generator struct {
	client   llm.Client
	repairer *repair.Engine
	logger   zerolog.Logger
}

// New builds a Generator.
func New(client llm.Client, repairer *repair.Engine, logger zerolog.Logger) *Generator {
	return &Generator{
		client:   client,
		repairer: repairer,
		logger:   logger.With().Str("component", "generate").Logger(),
	}
}

// runStructured executes one generate-then-repair round and decodes the
// canonical document into out.
func (g *Generator) runStructured(ctx context.Context, schema *schemas.Schema, system, user string, opts llm.Options, out any) error {
	opts.JSONOutput = true
	raw, err := g.client.GenerateText(ctx, system, user, opts)
	if err != nil {
		return fmt.Errorf("generating %s: %w", schema.Name(), err)
	}
	canonical, err := g.repairer.Repair(ctx, schema, raw, user)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(canonical), out); err != nil {
		return fmt.Errorf("decoding validated %s document: %w", schema.Name(), err)
	}
	return nil
}

// Outline generates a course outline for a topic. The result is a tagged
// union: either a safety/validity rejection or an outline, never both.
func (g *Generator) Outline(ctx context.Context, topic, difficulty, learnerContext string) (*types.OutlineResult, error) {
	system := prompts.MustGet("capsule.json", "outline-system")
	user := prompts.Format(prompts.MustGet("capsule.json", "outline-user"), map[string]string{
		"Topic":      topic,
		"Difficulty": difficulty,
		"Context":    llm.TruncateContext(learnerContext, summaryContextBudget),
	})

	raw, err := g.client.GenerateText(ctx, system, user, llm.Options{
		Tier:       llm.TierStandard,
		JSONOutput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("generating outline: %w", err)
	}
	canonical, err := g.repairer.Repair(ctx, schemas.Outline(), raw, user)
	if err != nil {
		return nil, err
	}

	var rejected struct {
		Error     bool   `json:"error"`
		ErrorType string `json:"errorType"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal([]byte(canonical), &rejected); err != nil {
		return nil, fmt.Errorf("decoding validated outline document: %w", err)
	}
	if rejected.Error {
		g.logger.Info().
			Str("error_type", rejected.ErrorType).
			Msg("outline request rejected")
		return &types.OutlineResult{
			Rejected: &types.Rejection{ErrorType: rejected.ErrorType, Message: rejected.Message},
		}, nil
	}

	var outline types.CourseOutline
	if err := json.Unmarshal([]byte(canonical), &outline); err != nil {
		return nil, fmt.Errorf("decoding validated outline document: %w", err)
	}
	return &types.OutlineResult{Outline: &outline}, nil
}

// ModuleContent generates the full content for one module of an outline.
// moduleIndex is zero-based.
func (g *Generator) ModuleContent(ctx context.Context, course *types.CourseOutline, moduleIndex int) (*types.ModuleContent, error) {
	if moduleIndex < 0 || moduleIndex >= len(course.Modules) {
		return nil, fmt.Errorf("module index %d out of range (course has %d modules)", moduleIndex, len(course.Modules))
	}
	mod := course.Modules[moduleIndex]

	var plan strings.Builder
	for i, lesson := range mod.Lessons {
		fmt.Fprintf(&plan, "%d. %s", i+1, lesson.Title)
		if lesson.Type != "" {
			fmt.Fprintf(&plan, " (type: %s)", lesson.Type)
		}
		if lesson.Description != "" {
			fmt.Fprintf(&plan, " — %s", lesson.Description)
		}
		plan.WriteString("\n")
	}

	system := prompts.MustGet("capsule.json", "module-content-system")
	user := prompts.Format(prompts.MustGet("capsule.json", "module-content-user"), map[string]string{
		"ModuleNumber":      fmt.Sprintf("%d", moduleIndex+1),
		"ModuleTotal":       fmt.Sprintf("%d", len(course.Modules)),
		"CourseTitle":       course.Title,
		"ModuleTitle":       mod.Title,
		"ModuleDescription": mod.Description,
		"LessonPlan":        plan.String(),
		"CourseContext":     llm.TruncateContext(courseContext(course), contentContextBudget),
	})

	var content types.ModuleContent
	err := g.runStructured(ctx, schemas.ModuleContent(), system, user, llm.Options{Tier: llm.TierAdvanced}, &content)
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// courseContext renders the outline as a compact text block so each module
// generation sees where it sits in the course.
func courseContext(course *types.CourseOutline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n%s\n\n", course.Title, course.Description)
	for i, mod := range course.Modules {
		fmt.Fprintf(&b, "Module %d: %s — %s\n", i+1, mod.Title, mod.Description)
		for _, lesson := range mod.Lessons {
			fmt.Fprintf(&b, "  - %s\n", lesson.Title)
		}
	}
	return b.String()
}

// Notes generates structured study notes from source material.
func (g *Generator) Notes(ctx context.Context, title, material string) (*types.Notes, error) {
	system := prompts.MustGet("artifacts.json", "notes-system")
	user := prompts.Format(prompts.MustGet("artifacts.json", "notes-user"), map[string]string{
		"Title":    title,
		"Material": llm.TruncateContext(material, contentContextBudget),
	})

	var notes types.Notes
	err := g.runStructured(ctx, schemas.Notes(), system, user, llm.Options{Tier: llm.TierStandard}, &notes)
	if err != nil {
		return nil, err
	}
	return &notes, nil
}

// Quiz generates a comprehensive quiz from source material.
func (g *Generator) Quiz(ctx context.Context, title, material string) (*types.Quiz, error) {
	system := prompts.MustGet("artifacts.json", "quiz-system")
	user := prompts.Format(prompts.MustGet("artifacts.json", "quiz-user"), map[string]string{
		"Title":    title,
		"Material": llm.TruncateContext(material, summaryContextBudget),
	})

	var quiz types.Quiz
	err := g.runStructured(ctx, schemas.Quiz(), system, user, llm.Options{Tier: llm.TierStandard}, &quiz)
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// Flashcards generates spaced-repetition cards from source material.
func (g *Generator) Flashcards(ctx context.Context, title, material string) (*types.Flashcards, error) {
	system := prompts.MustGet("artifacts.json", "flashcards-system")
	user := prompts.Format(prompts.MustGet("artifacts.json", "flashcards-user"), map[string]string{
		"Title":    title,
		"Material": llm.TruncateContext(material, summaryContextBudget),
	})

	var cards types.Flashcards
	err := g.runStructured(ctx, schemas.Flashcards(), system, user, llm.Options{Tier: llm.TierLite}, &cards)
	if err != nil {
		return nil, err
	}
	return &cards, nil
}

// SimulationIdeas runs the first simulation phase: judge applicability and
// propose up to three ideas. A not-applicable result is a success, not an
// error.
func (g *Generator) SimulationIdeas(ctx context.Context, title, material string) (*types.SimulationIdeas, error) {
	system := prompts.MustGet("artifacts.json", "simulation-ideas-system")
	user := prompts.Format(prompts.MustGet("artifacts.json", "simulation-ideas-user"), map[string]string{
		"Title":    title,
		"Material": llm.TruncateContext(material, summaryContextBudget),
	})

	var ideas types.SimulationIdeas
	err := g.runStructured(ctx, schemas.SimulationIdeas(), system, user, llm.Options{Tier: llm.TierLite}, &ideas)
	if err != nil {
		return nil, err
	}
	return &ideas, nil
}

// SimulationCode runs the second simulation phase: build one chosen idea as
// a self-contained HTML/CSS/JS bundle. The code is stored, never executed.
func (g *Generator) SimulationCode(ctx context.Context, idea types.SimulationIdea, material string) (*types.SimulationCode, error) {
	system := prompts.MustGet("artifacts.json", "simulation-code-system")
	user := prompts.Format(prompts.MustGet("artifacts.json", "simulation-code-user"), map[string]string{
		"IdeaTitle":       idea.Title,
		"IdeaDescription": idea.Description,
		"Concept":         idea.Concept,
		"Material":        llm.TruncateContext(material, summaryContextBudget),
	})

	var code types.SimulationCode
	err := g.runStructured(ctx, schemas.SimulationCode(), system, user, llm.Options{Tier: llm.TierAdvanced}, &code)
	if err != nil {
		return nil, err
	}
	return &code, nil
}
