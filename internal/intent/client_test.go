package intent

import (
	"testing"
)

func TestParseResult(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		wantIntent     Intent
		wantConfidence float64
		wantResponse   string
		wantErr        bool
	}{
		{
			name:           "plain json",
			content:        `{"intent": "booking", "confidence": 0.95, "response": ""}`,
			wantIntent:     IntentBooking,
			wantConfidence: 0.95,
		},
		{
			name:           "fenced json",
			content:        "```json\n{\"intent\": \"availability\", \"confidence\": 0.8}\n```",
			wantIntent:     IntentAvailability,
			wantConfidence: 0.8,
		},
		{
			name:           "unknown label becomes query",
			content:        `{"intent": "smalltalk", "confidence": 0.7}`,
			wantIntent:     IntentQuery,
			wantConfidence: 0.7,
		},
		{
			name:           "uppercase label",
			content:        `{"intent": "CONFIRM", "confidence": 1.0}`,
			wantIntent:     IntentConfirm,
			wantConfidence: 1,
		},
		{
			name:           "confidence clamped",
			content:        `{"intent": "decline", "confidence": 1.4}`,
			wantIntent:     IntentDecline,
			wantConfidence: 1,
		},
		{
			name:           "query carries response",
			content:        `{"intent": "query", "confidence": 0.6, "response": " I can book appointments. "}`,
			wantIntent:     IntentQuery,
			wantConfidence: 0.6,
			wantResponse:   "I can book appointments.",
		},
		{
			name:    "not json",
			content: "sure, happy to help!",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResult(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseResult() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseResult() error = %v", err)
			}
			if got.Intent != tt.wantIntent {
				t.Errorf("intent = %q, want %q", got.Intent, tt.wantIntent)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConfidence)
			}
			if got.Response != tt.wantResponse {
				t.Errorf("response = %q, want %q", got.Response, tt.wantResponse)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient(ProviderKeyword, "", ""); err != nil {
		t.Errorf("NewClient(keyword) error = %v", err)
	}
	if _, err := NewClient(ProviderOpenAI, "", ""); err == nil {
		t.Error("NewClient(openai) without key expected error")
	}
	if _, err := NewClient(ProviderAnthropic, "", ""); err == nil {
		t.Error("NewClient(anthropic) without key expected error")
	}
	if _, err := NewClient(Provider("bogus"), "key", ""); err == nil {
		t.Error("NewClient(bogus) expected error")
	}

	c, err := NewClient(ProviderOpenAI, "test-key", "")
	if err != nil {
		t.Fatalf("NewClient(openai) error = %v", err)
	}
	if c.Name() != "openai" {
		t.Errorf("Name() = %q, want %q", c.Name(), "openai")
	}
}
