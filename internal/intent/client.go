// Package intent classifies user messages into the intents the dialogue
// engine routes on.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bookline-ai/booking-agent/internal/model"
)

// Intent is a coarse label for what the user wants from a message.
type Intent string

const (
	IntentBooking      Intent = "booking"
	IntentAvailability Intent = "availability"
	IntentConfirm      Intent = "confirm"
	IntentDecline      Intent = "decline"
	IntentRestart      Intent = "restart"
	IntentQuery        Intent = "query"
)

// Result is the outcome of analyzing one message. Response carries a
// free-text answer for general questions; it is empty for flow intents.
type Result struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Response   string  `json:"response,omitempty"`
}

// Client is the interface for intent analyzers.
type Client interface {
	// Analyze classifies the message given recent conversation history.
	Analyze(ctx context.Context, message string, history []model.Turn) (*Result, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of intent provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderKeyword   Provider = "keyword"
)

// NewClient creates an intent client for the provider. The model name is
// ignored by the keyword provider.
func NewClient(provider Provider, apiKey, model string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicAnalyzer(apiKey, model)
	case ProviderOpenAI:
		return NewOpenAIAnalyzer(apiKey, model)
	case ProviderKeyword:
		return NewKeywordAnalyzer(), nil
	default:
		return nil, fmt.Errorf("unknown intent provider %q", provider)
	}
}

// ParseIntent maps a label onto a known intent; anything unrecognized is
// treated as a general query.
func ParseIntent(label string) Intent {
	switch Intent(strings.ToLower(strings.TrimSpace(label))) {
	case IntentBooking:
		return IntentBooking
	case IntentAvailability:
		return IntentAvailability
	case IntentConfirm:
		return IntentConfirm
	case IntentDecline:
		return IntentDecline
	case IntentRestart:
		return IntentRestart
	default:
		return IntentQuery
	}
}

const systemPrompt = `You classify messages sent to an appointment booking assistant.

Reply with a single JSON object and nothing else:
{"intent": "<label>", "confidence": <0.0-1.0>, "response": "<answer>"}

Labels:
- booking: the user wants to schedule an appointment
- availability: the user asks which times or days are open
- confirm: the user agrees to a proposal (yes, sounds good)
- decline: the user rejects a proposal (no, something else)
- restart: the user wants to abandon the current request and start over
- query: anything else

Set "response" only for query: a short helpful answer about what the
assistant can do. Leave it empty otherwise.`

// parseResult decodes a provider completion into a Result. Providers are
// asked for bare JSON, but a fenced code block is tolerated.
func parseResult(content string) (*Result, error) {
	var wire struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
		Response   string  `json:"response"`
	}
	if err := json.Unmarshal([]byte(stripFence(content)), &wire); err != nil {
		return nil, fmt.Errorf("parsing intent response: %w", err)
	}

	confidence := wire.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &Result{
		Intent:     ParseIntent(wire.Intent),
		Confidence: confidence,
		Response:   strings.TrimSpace(wire.Response),
	}, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// recentTurns returns the last n turns of history for provider context.
func recentTurns(history []model.Turn, n int) []model.Turn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
