package extract

import (
	"context"
	"fmt"

	"github.com/clawcoach/clawcoach/internal/models"
)

// Extractor runs post-exchange fact extraction. Each task (persona, memory)
// is bound to its own single-purpose extraction agent.
type Extractor struct {
	persona models.ExtractionClient
	memory  models.ExtractionClient
}

// New returns an Extractor using the given task clients.
func New(persona, memory models.ExtractionClient) *Extractor {
	return &Extractor{persona: persona, memory: memory}
}

// NewGeminiExtractor builds the production Extractor: two Gemini-backed
// agents, one per extraction task, sharing the same model.
func NewGeminiExtractor(ctx context.Context, apiKey, modelName string) (*Extractor, error) {
	personaAgent, err := models.NewExtractionAgent(ctx, apiKey, modelName, models.ExtractionAgentConfig{
		Name:         "persona_extractor",
		Description:  "Extracts structured fitness persona data from coaching conversations",
		Instruction:  personaInstruction,
		OutputSchema: personaOutputSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create persona extraction agent: %w", err)
	}

	memoryAgent, err := models.NewExtractionAgent(ctx, apiKey, modelName, models.ExtractionAgentConfig{
		Name:         "memory_extractor",
		Description:  "Extracts memorable facts from coaching exchanges",
		Instruction:  memoryInstruction,
		OutputSchema: memoryOutputSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create memory extraction agent: %w", err)
	}

	return New(personaAgent, memoryAgent), nil
}
