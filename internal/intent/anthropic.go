package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/bookline-ai/booking-agent/internal/model"
)

// AnthropicAnalyzer classifies messages with a Claude model.
type AnthropicAnalyzer struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicAnalyzer creates a new Anthropic-backed analyzer.
func NewAnthropicAnalyzer(apiKey, modelName string) (*AnthropicAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("Anthropic API key is required")
	}
	if modelName == "" {
		modelName = "claude-3-5-haiku-20241022"
	}

	return &AnthropicAnalyzer{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  modelName,
	}, nil
}

// Name returns the provider name.
func (a *AnthropicAnalyzer) Name() string {
	return "anthropic"
}

// Analyze classifies the message. Instructions and recent history are
// folded into a single user turn.
func (a *AnthropicAnalyzer) Analyze(ctx context.Context, message string, history []model.Turn) (*Result, error) {
	var prompt strings.Builder
	prompt.WriteString(systemPrompt)
	if turns := recentTurns(history, 6); len(turns) > 0 {
		prompt.WriteString("\n\nConversation so far:\n")
		for _, turn := range turns {
			fmt.Fprintf(&prompt, "%s: %s\n", turn.Role, turn.Content)
		}
	}
	fmt.Fprintf(&prompt, "\nUser message: %s\n\nJSON:", message)

	messages := []anthropic.MessageParam{
		{
			Role: anthropic.F(anthropic.MessageParamRole("user")),
			Content: anthropic.F([]anthropic.ContentBlockParamUnion{
				anthropic.TextBlockParam{
					Type: anthropic.F(anthropic.TextBlockParamTypeText),
					Text: anthropic.F(prompt.String()),
				},
			}),
		},
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.F(a.model),
		MaxTokens: anthropic.F(int64(256)),
		Messages:  anthropic.F(messages),
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			content += block.Text
		}
	}
	if content == "" {
		return nil, errors.New("anthropic returned no text content")
	}

	return parseResult(content)
}
