package intent

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/bookline-ai/booking-agent/internal/model"
)

// OpenAIAnalyzer classifies messages with an OpenAI chat model in JSON mode.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnalyzer creates a new OpenAI-backed analyzer.
func NewOpenAIAnalyzer(apiKey, modelName string) (*OpenAIAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	return &OpenAIAnalyzer{
		client: openai.NewClient(apiKey),
		model:  modelName,
	}, nil
}

// Name returns the provider name.
func (a *OpenAIAnalyzer) Name() string {
	return "openai"
}

// Analyze classifies the message.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, message string, history []model.Turn) (*Result, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, turn := range recentTurns(history, 6) {
		role := openai.ChatMessageRoleUser
		if turn.Role == model.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.model,
		Messages:  messages,
		MaxTokens: 256,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}

	return parseResult(resp.Choices[0].Message.Content)
}
