package llm

import (
	"context"
	"fmt"
	"strings"
)

type LLMClient interface {
	GenerateInference(
		ctx context.Context,
		messages []Message,
		callback func(chunk string) error,
		opts ...LLMOption,
	) error

	GetModel() string
}

type LLMSettings struct {
	model       string  // model name
	temperature float64 // randomness (0.0 to 1.0)
	maxTokens   int     // maximum tokens to generate
	system      string  // system prompt
}

type LLMOption func(*LLMSettings)

// Common options for all LLM providers
func WithTemperature(temp float64) LLMOption {
	return func(s *LLMSettings) { s.temperature = temp }
}

func WithMaxTokens(tokens int) LLMOption {
	return func(s *LLMSettings) { s.maxTokens = tokens }
}

func WithSystemPrompt(prompt string) LLMOption {
	return func(s *LLMSettings) { s.system = prompt }
}

type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system"
	Content string `json:"content"` // the message content
}

// FromConfig builds the configured provider. Provider names match the
// llm_provider config key; an empty provider defaults to anthropic.
func FromConfig(provider, model string) (LLMClient, error) {
	switch strings.ToLower(provider) {
	case "", "anthropic":
		return NewAnthropicClient(model), nil
	case "ollama":
		return NewOllamaClient(model)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
