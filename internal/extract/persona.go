package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"

	"github.com/clawcoach/clawcoach/internal/types"
)

const personaInstruction = `You extract fitness persona data from coaching conversations. Return ONLY valid JSON with these fields:
- fitness_level: beginner/intermediate/advanced or null if not mentioned
- goals: comma-separated goals or null
- motivation: what drives them or null
- schedule: workout frequency and timing or null
- injuries: limitations or "none" or null if not discussed
- preferred_workout_types: exercise preferences or null
- communication_preferences: how they like to be coached or null
- additional_context: anything else relevant or null
- onboarding_complete: true ONLY when at least fitness_level, goals, AND schedule are all filled

Return JSON only, no markdown.`

// PersonaExtraction is the structured result of onboarding-mode extraction.
// The OnboardingComplete flag is the model's own judgment; callers may weigh
// it against Persona.MinimumFieldsPresent.
type PersonaExtraction struct {
	types.Persona
	OnboardingComplete bool `json:"onboarding_complete"`
}

func nullableString() *jsonschema.Schema {
	return &jsonschema.Schema{Types: []string{"string", "null"}}
}

var personaSchema = mustResolve(&jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"fitness_level":             nullableString(),
		"goals":                     nullableString(),
		"motivation":                nullableString(),
		"schedule":                  nullableString(),
		"injuries":                  nullableString(),
		"preferred_workout_types":   nullableString(),
		"communication_preferences": nullableString(),
		"additional_context":        nullableString(),
		"onboarding_complete":       {Type: "boolean"},
	},
	Required: []string{
		"fitness_level", "goals", "motivation", "schedule", "injuries",
		"preferred_workout_types", "communication_preferences",
		"additional_context", "onboarding_complete",
	},
})

// personaOutputSchema constrains the extraction agent's generation; the
// returned text is still validated against personaSchema before use.
func personaOutputSchema() *genai.Schema {
	nullableString := func() *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Nullable: genai.Ptr(true)}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"fitness_level":             nullableString(),
			"goals":                     nullableString(),
			"motivation":                nullableString(),
			"schedule":                  nullableString(),
			"injuries":                  nullableString(),
			"preferred_workout_types":   nullableString(),
			"communication_preferences": nullableString(),
			"additional_context":        nullableString(),
			"onboarding_complete":       {Type: genai.TypeBoolean},
		},
		Required: []string{
			"fitness_level", "goals", "motivation", "schedule", "injuries",
			"preferred_workout_types", "communication_preferences",
			"additional_context", "onboarding_complete",
		},
	}
}

// Persona extracts persona fields from the full onboarding conversation.
// Returns nil on any failure (network, non-JSON output, schema mismatch);
// extraction never raises to its caller.
func (e *Extractor) Persona(ctx context.Context, messages []types.ChatMessage) *PersonaExtraction {
	var conversation strings.Builder
	for i, m := range messages {
		if i > 0 {
			conversation.WriteString("\n\n")
		}
		speaker := "Coach"
		if m.Role == types.RoleUser {
			speaker = "User"
		}
		conversation.WriteString(speaker)
		conversation.WriteString(": ")
		conversation.WriteString(m.Content)
	}

	input := fmt.Sprintf("Extract persona from this conversation:\n\n%s", conversation.String())
	raw, err := e.persona.GenerateJSON(ctx, input)
	if err != nil {
		slog.Warn("persona extraction call failed", "error", err)
		return nil
	}

	var result PersonaExtraction
	if err := decodeValidated(raw, personaSchema, &result); err != nil {
		slog.Warn("persona extraction returned unusable output", "error", err)
		return nil
	}
	return &result
}
