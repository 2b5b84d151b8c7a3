package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"

	"github.com/clawcoach/clawcoach/internal/types"
)

const memoryInstruction = `You extract key facts worth remembering from fitness coaching conversations. Return ONLY valid JSON with a "notes" array (0-3 items). Each note has:
- content: a concise fact (1-2 sentences)
- category: one of "general", "preference", "achievement", "health", "schedule"

Only extract genuinely memorable information: personal details, preferences, achievements, health updates, schedule changes. Return {"notes": []} if nothing notable.

Return JSON only, no markdown.`

// maxNotesPerExchange bounds how many notes one exchange may produce.
const maxNotesPerExchange = 3

type memoryExtraction struct {
	Notes []extractedNote `json:"notes"`
}

type extractedNote struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

var memorySchema = mustResolve(&jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"notes": {
			Type: "array",
			Items: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"content": {Type: "string"},
					"category": {
						Type: "string",
						Enum: []any{
							types.CategoryGeneral,
							types.CategoryPreference,
							types.CategoryAchievement,
							types.CategoryHealth,
							types.CategorySchedule,
						},
					},
				},
				Required: []string{"content", "category"},
			},
		},
	},
	Required: []string{"notes"},
})

// memoryOutputSchema constrains the extraction agent's generation; the
// returned text is still validated against memorySchema before use.
func memoryOutputSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"notes": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"content": {Type: genai.TypeString},
						"category": {
							Type: genai.TypeString,
							Enum: []string{
								types.CategoryGeneral,
								types.CategoryPreference,
								types.CategoryAchievement,
								types.CategoryHealth,
								types.CategorySchedule,
							},
						},
					},
					Required: []string{"content", "category"},
				},
			},
		},
		Required: []string{"notes"},
	}
}

// MemoryNotes extracts 0-3 memory notes from the latest exchange only. An
// empty result is common (most exchanges are not memorable) and is also the
// result of any failure.
func (e *Extractor) MemoryNotes(ctx context.Context, userMessage, assistantMessage string) []types.MemoryNote {
	input := fmt.Sprintf("Extract memorable facts from this exchange:\n\nUser: %s\n\nCoach: %s", userMessage, assistantMessage)
	raw, err := e.memory.GenerateJSON(ctx, input)
	if err != nil {
		slog.Warn("memory extraction call failed", "error", err)
		return nil
	}

	var result memoryExtraction
	if err := decodeValidated(raw, memorySchema, &result); err != nil {
		slog.Warn("memory extraction returned unusable output", "error", err)
		return nil
	}
	if len(result.Notes) > maxNotesPerExchange {
		slog.Warn("memory extraction exceeded note limit", "count", len(result.Notes))
		return nil
	}

	notes := make([]types.MemoryNote, 0, len(result.Notes))
	for _, n := range result.Notes {
		if n.Content == "" || !types.ValidCategory(n.Category) {
			continue
		}
		notes = append(notes, types.MemoryNote{Content: n.Content, Category: n.Category})
	}
	return notes
}
