package models

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync/atomic"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"
)

const extractionAppName = "clawcoach_extraction"

// ExtractionClient is a fast model bound to one fixed extraction task. It is
// a separate, cheaper model than the coaching chat client.
type ExtractionClient interface {
	// GenerateJSON sends the input text to the model and returns the raw
	// output, which is expected to be a JSON document matching the task's
	// output schema.
	GenerateJSON(ctx context.Context, input string) (string, error)
}

// ExtractionAgentConfig fixes an extraction task: its instruction and the
// schema the model output must conform to.
type ExtractionAgentConfig struct {
	Name         string
	Description  string
	Instruction  string
	OutputSchema *genai.Schema
}

type extractionRunner interface {
	Run(ctx context.Context, userID, sessionID string, msg *genai.Content, cfg agent.RunConfig) iter.Seq2[*session.Event, error]
}

type extractionAgent struct {
	name           string
	runner         extractionRunner
	sessionService session.Service
	counter        uint64
}

// NewExtractionAgent builds a Gemini-backed single-task extraction agent.
func NewExtractionAgent(ctx context.Context, apiKey, modelName string, cfg ExtractionAgentConfig) (ExtractionClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	model, err := gemini.NewModel(ctx, modelName, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction model: %w", err)
	}

	llmAgent, err := llmagent.New(llmagent.Config{
		Name:            cfg.Name,
		Description:     cfg.Description,
		Model:           model,
		Instruction:     cfg.Instruction,
		OutputSchema:    cfg.OutputSchema,
		IncludeContents: llmagent.IncludeContentsNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        extractionAppName,
		Agent:          llmAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction runner: %w", err)
	}

	return &extractionAgent{
		name:           cfg.Name,
		runner:         r,
		sessionService: sessionService,
	}, nil
}

func (a *extractionAgent) GenerateJSON(ctx context.Context, input string) (string, error) {
	sessionID := fmt.Sprintf("%s-%d", a.name, atomic.AddUint64(&a.counter, 1))
	if _, err := a.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   extractionAppName,
		UserID:    a.name,
		SessionID: sessionID,
	}); err != nil {
		if _, getErr := a.sessionService.Get(ctx, &session.GetRequest{
			AppName:   extractionAppName,
			UserID:    a.name,
			SessionID: sessionID,
		}); getErr != nil {
			return "", fmt.Errorf("failed to create extraction session: %w", err)
		}
	}

	msg := genai.NewContentFromText(input, genai.RoleUser)
	events := a.runner.Run(ctx, a.name, sessionID, msg, agent.RunConfig{
		StreamingMode: agent.StreamingModeNone,
	})

	var last string
	for event, err := range events {
		if err != nil {
			return "", fmt.Errorf("extraction run failed: %w", err)
		}
		if event == nil || event.Content == nil {
			continue
		}
		if event.Author == "user" {
			continue
		}
		text := strings.TrimSpace(contentText(event.Content))
		if text == "" {
			continue
		}
		last = text
		if event.IsFinalResponse() {
			break
		}
	}
	if last == "" {
		return "", fmt.Errorf("empty extraction response")
	}
	return last, nil
}

func contentText(content *genai.Content) string {
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
