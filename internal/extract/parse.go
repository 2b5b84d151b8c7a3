// Package extract pulls structured facts out of chat exchanges using a fast
// model. Extraction is best-effort: every failure path yields an empty result
// instead of an error so the chat flow is never disrupted.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

var codeFencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?\\s*```$")

// cleanJSONResponse strips a surrounding markdown code fence from model
// output, if present.
func cleanJSONResponse(text string) string {
	trimmed := strings.TrimSpace(text)
	if match := codeFencePattern.FindStringSubmatch(trimmed); match != nil {
		return strings.TrimSpace(match[1])
	}
	return trimmed
}

// decodeValidated parses raw model output as JSON, validates it against the
// resolved schema, and decodes it into target.
func decodeValidated(raw string, schema *jsonschema.Resolved, target any) error {
	cleaned := cleanJSONResponse(raw)

	var instance any
	if err := json.Unmarshal([]byte(cleaned), &instance); err != nil {
		return fmt.Errorf("output is not valid JSON: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("output does not match schema: %w", err)
	}
	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		return fmt.Errorf("failed to decode output: %w", err)
	}
	return nil
}

func mustResolve(schema *jsonschema.Schema) *jsonschema.Resolved {
	resolved, err := schema.Resolve(nil)
	if err != nil {
		panic(err)
	}
	return resolved
}
