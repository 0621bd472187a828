// Package schemas holds the JSON Schema documents that LLM output must
// conform to, and validation helpers producing structured field errors.
package schemas

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// IssueItem validates the structured analysis of a single issue.
const IssueItem = `{
	"type": "object",
	"required": ["headline", "key_facts", "insight", "framework"],
	"properties": {
		"headline": {"type": "string", "minLength": 1},
		"key_facts": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"insight": {"type": "string", "minLength": 1},
		"framework": {"type": "string"},
		"sources": {"type": "array", "items": {"type": "string"}}
	}
}`

// Clusters validates the topic grouping output.
const Clusters = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["topic", "issues"],
		"properties": {
			"topic": {"type": "string", "minLength": 1},
			"issues": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["headline"],
					"properties": {
						"headline": {"type": "string"},
						"summary": {"type": "string"},
						"urls": {"type": "array", "items": {"type": "string"}}
					}
				}
			}
		}
	}
}`

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema: %s", e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed: ")
	for i, err := range ve.Errors {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return sb.String()
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}

	// Build structured error
	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}
