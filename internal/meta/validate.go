// Package meta provides optional JSON Schema validation of CustomMeta
// bodies, grounded in the teacher's schema_validation.go SchemaValidator,
// narrowed from capability-argument/output validation to a single body
// shape and built directly on gojsonschema's loader types instead of the
// teacher's partial, unimplemented FileSchemaResolver.
package meta

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError reports a CustomMeta body that failed schema validation.
type ValidationError struct {
	Details string
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("custom_meta schema validation failed: %s", e.Details)
}

// Validator validates CustomMeta bodies against one JSON Schema. Off by
// default: handler runtimes that never construct one pay nothing (most
// stages never declare a schema).
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidatorFromJSON compiles a Draft-7 JSON Schema document.
func NewValidatorFromJSON(schemaJSON []byte) (*Validator, error) {
	loader := gojsonschema.NewBytesLoader(schemaJSON)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// NewValidatorFromFile compiles a schema from a filesystem path.
func NewValidatorFromFile(path string) (*Validator, error) {
	loader := gojsonschema.NewReferenceLoader("file://" + path)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile schema from %s: %w", path, err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks body (a decoded CustomMeta.Body) against the schema.
func (v *Validator) Validate(body map[string]interface{}) error {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(body))
	if err != nil {
		return fmt.Errorf("validate custom_meta body: %w", err)
	}
	if result.Valid() {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	return &ValidationError{Details: issues[0], Issues: issues}
}
