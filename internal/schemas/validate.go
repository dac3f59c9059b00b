// Package schemas provides JSON Schema validation for every structured
// generation artifact. Each schema pairs an embedded JSON Schema document
// (shape) with Go-level cross-field checks (invariants a shape grammar
// cannot express, like placeholder/blank bijections).
package schemas

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// ValidationError represents a schema validation failure with field paths
type ValidationError struct {
	Schema string
	Errors []FieldError
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation against %s failed:\n", ve.Schema))
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Schema binds a named JSON Schema document to a human-readable description
// (used by the repair prompt) and optional cross-field checks.
type Schema struct {
	name        string
	description string
	compiled    *gojsonschema.Schema
	check       func(jsonText []byte) error
}

// Name returns the schema's name.
func (s *Schema) Name() string { return s.name }

// Description returns the human-readable output-shape contract.
func (s *Schema) Description() string { return s.description }

// Validate parses and validates a JSON document against the schema,
// returning nil on success or a *ValidationError describing every violation.
func (s *Schema) Validate(jsonText string) error {
	result, err := s.compiled.Validate(gojsonschema.NewStringLoader(jsonText))
	if err != nil {
		return &ValidationError{
			Schema: s.name,
			Errors: []FieldError{{Field: "(root)", Message: fmt.Sprintf("document is not valid JSON: %v", err)}},
		}
	}

	if !result.Valid() {
		ve := &ValidationError{
			Schema: s.name,
			Errors: make([]FieldError, 0, len(result.Errors())),
		}
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			ve.Errors = append(ve.Errors, FieldError{Field: field, Message: desc.Description()})
		}
		return ve
	}

	if s.check != nil {
		if err := s.check([]byte(jsonText)); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				return ve
			}
			return &ValidationError{
				Schema: s.name,
				Errors: []FieldError{{Field: "(root)", Message: err.Error()}},
			}
		}
	}

	return nil
}

// mustLoad compiles an embedded schema document, panicking on failure.
// Schemas are compile-time assets; a broken one is a programming error.
func mustLoad(name, filename, description string, check func([]byte) error) *Schema {
	data, err := schemaFiles.ReadFile(filename)
	if err != nil {
		panic(fmt.Sprintf("failed to read schema %s: %v", filename, err))
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		panic(fmt.Sprintf("failed to compile schema %s: %v", filename, err))
	}
	return &Schema{
		name:        name,
		description: description,
		compiled:    compiled,
		check:       check,
	}
}
