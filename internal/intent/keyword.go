package intent

import (
	"context"
	"strings"
	"unicode"

	"github.com/bookline-ai/booking-agent/internal/model"
)

// KeywordAnalyzer classifies messages by keyword matching. It needs no
// credentials, so it doubles as the offline provider for local runs.
type KeywordAnalyzer struct{}

// NewKeywordAnalyzer creates a keyword-based analyzer.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{}
}

// Name returns the provider name.
func (a *KeywordAnalyzer) Name() string {
	return "keyword"
}

// Rules are checked in order; the first hit wins. Single words match on
// word boundaries so "know" never reads as "no".
var keywordRules = []struct {
	intent  Intent
	words   []string
	phrases []string
}{
	{IntentRestart, []string{"restart", "reset"}, []string{"start over", "begin again", "never mind"}},
	{IntentBooking, []string{"book", "booking", "schedule", "appointment", "meeting", "reserve"}, nil},
	{IntentAvailability, []string{"available", "availability", "free", "open", "slots", "times", "when"}, nil},
	{IntentConfirm, []string{"yes", "yep", "yeah", "confirm", "correct", "sure", "ok", "okay"}, []string{"sounds good", "that works"}},
	{IntentDecline, []string{"no", "nope", "cancel", "different"}, []string{"something else"}},
}

// Analyze classifies the message. History is ignored; keyword matching is
// stateless.
func (a *KeywordAnalyzer) Analyze(_ context.Context, message string, _ []model.Turn) (*Result, error) {
	text := strings.ToLower(message)
	words := tokenize(text)

	for _, rule := range keywordRules {
		if matchesRule(words, text, rule.words, rule.phrases) {
			return &Result{Intent: rule.intent, Confidence: 0.9}, nil
		}
	}
	return &Result{Intent: IntentQuery, Confidence: 0.4}, nil
}

func matchesRule(words map[string]bool, text string, single []string, phrases []string) bool {
	for _, w := range single {
		if words[w] {
			return true
		}
	}
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	words := make(map[string]bool, len(fields))
	for _, f := range fields {
		words[f] = true
	}
	return words
}
