// Package models wraps the model-provider SDKs behind small interfaces the
// rest of the service depends on.
package models

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/clawcoach/clawcoach/internal/types"
)

const defaultMaxTokens = 1024

// ChatClient is the coaching model used for user-facing turns.
type ChatClient interface {
	// Stream invokes the model and forwards each text delta to onDelta as it
	// arrives. Returns the full response text. If the stream fails after
	// partial output, the partial text is returned along with the error.
	Stream(ctx context.Context, system string, messages []types.ChatMessage, onDelta func(delta string) error) (string, error)
	// Complete invokes the model without streaming.
	Complete(ctx context.Context, system string, messages []types.ChatMessage) (string, error)
}

// chatModel wraps an OpenAI-compatible chat client.
type chatModel struct {
	client    openai.Client
	name      string
	maxTokens int64
}

// NewChatModel creates the primary coaching chat client.
func NewChatModel(apiKey, modelName string) (ChatClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	return &chatModel{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		name:      modelName,
		maxTokens: defaultMaxTokens,
	}, nil
}

func (m *chatModel) params(system string, messages []types.ChatMessage) openai.ChatCompletionNewParams {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	converted = append(converted, openai.SystemMessage(system))
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(msg.Content))
		default:
			converted = append(converted, openai.UserMessage(msg.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Model:     m.name,
		Messages:  converted,
		MaxTokens: openai.Int(m.maxTokens),
	}
}

func (m *chatModel) Stream(ctx context.Context, system string, messages []types.ChatMessage, onDelta func(string) error) (string, error) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, m.params(system, messages))
	defer func() { _ = stream.Close() }()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return full.String(), fmt.Errorf("delta relay failed: %w", err)
		}
	}
	if err := stream.Err(); err != nil {
		return full.String(), fmt.Errorf("stream error: %w", err)
	}
	return full.String(), nil
}

func (m *chatModel) Complete(ctx context.Context, system string, messages []types.ChatMessage) (string, error) {
	resp, err := m.client.Chat.Completions.New(ctx, m.params(system, messages))
	if err != nil {
		return "", fmt.Errorf("failed to call chat API: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
