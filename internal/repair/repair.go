// Package repair turns raw LLM output into schema-valid JSON. Deterministic
// fixes (fence stripping, LaTeX escape correction, empty-array removal) run
// first on every attempt; when they are not enough, a repair model is asked
// to fix the document against the reported validation errors, up to a bounded
// number of attempts.
package repair

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jordan/capsule-engine/internal/llm"
	"github.com/jordan/capsule-engine/internal/prompts"
)

// DefaultMaxAttempts bounds the parse/validate cycles per document.
const DefaultMaxAttempts = 5

const repairContextBudget = 15000

// Schema is the validation target for a repair run. Description is fed to
// the repair model so it knows what shape the document must take.
type Schema interface {
	Name() string
	Description() string
	Validate(jsonText string) error
}

// Engine runs the bounded repair loop.
type Engine struct {
	client      llm.Client
	maxAttempts int
	logger      zerolog.Logger
}

// NewEngine builds an Engine. maxAttempts <= 0 selects DefaultMaxAttempts.
func NewEngine(client llm.Client, maxAttempts int, logger zerolog.Logger) *Engine {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Engine{
		client:      client,
		maxAttempts: maxAttempts,
		logger:      logger.With().Str("component", "repair").Logger(),
	}
}

// Repair returns a canonical, schema-valid rendering of raw, or an error.
// Each attempt applies the deterministic fixes before parsing; documents that
// already validate pass through without any model call. A failed repair call
// escalates immediately rather than burning remaining attempts.
func (e *Engine) Repair(ctx context.Context, schema Schema, raw, originalContext string) (string, error) {
	var lastErr error
	current := raw

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		canonical, err := e.normalize(schema, current)
		if err == nil {
			if attempt > 1 {
				e.logger.Info().
					Str("schema", schema.Name()).
					Int("attempt", attempt).
					Msg("document repaired")
			}
			return canonical, nil
		}
		lastErr = err
		e.logger.Warn().
			Str("schema", schema.Name()).
			Int("attempt", attempt).
			Err(err).
			Msg("document failed validation")

		if attempt == e.maxAttempts {
			break
		}

		fixed, callErr := e.callRepairModel(ctx, schema, current, err, originalContext)
		if callErr != nil {
			return "", &RepairCallError{Attempt: attempt, Cause: callErr}
		}
		current = fixed
	}

	return "", &AttemptsExhaustedError{
		Schema:   schema.Name(),
		Attempts: e.maxAttempts,
		LastErr:  lastErr,
	}
}

// normalize applies the deterministic fixes, parses, strips empty arrays,
// and validates. On success it returns the canonical pretty-printed JSON.
func (e *Engine) normalize(schema Schema, raw string) (string, error) {
	cleaned := FixLaTeXEscapes(StripFences(raw))

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	doc = StripEmptyArrays(doc)

	canonical, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("re-encoding document: %w", err)
	}
	if err := schema.Validate(string(canonical)); err != nil {
		return "", err
	}
	return string(canonical), nil
}

func (e *Engine) callRepairModel(ctx context.Context, schema Schema, document string, validationErr error, originalContext string) (string, error) {
	system, err := prompts.Get("repair.json", "repair-specialist")
	if err != nil {
		return "", err
	}
	userTemplate, err := prompts.Get("repair.json", "repair-user")
	if err != nil {
		return "", err
	}
	user := prompts.Format(userTemplate, map[string]string{
		"SchemaName":        schema.Name(),
		"SchemaDescription": schema.Description(),
		"ValidationErrors":  validationErr.Error(),
		"Document":          document,
		"Context":           llm.TruncateContext(originalContext, repairContextBudget),
	})

	return e.client.GenerateText(ctx, system, user, llm.Options{
		Tier:       llm.TierStandard,
		JSONOutput: true,
	})
}
