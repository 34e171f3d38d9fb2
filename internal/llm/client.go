// Package llm provides a provider-agnostic interface for asking a language
// model for a JSON answer. OpenAI, Ollama (through its OpenAI-compatible API),
// Anthropic and Gemini implement it.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider names accepted in llm.providers.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// CompletionRequest is a two-message prompt plus sampling settings.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	// JSONOutput asks the provider to constrain the answer to JSON when it
	// supports that. The caller still validates what comes back.
	JSONOutput bool
}

// Client is the interface for LLM providers. It returns the raw text of the
// first answer; it does not parse or validate it.
//
// Keep interfaces small: one call plus two names for logging and auditing.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	ProviderName() string
	ModelName() string
}

// emptyContent is the error every client returns when the provider answered
// without any text.
func emptyContent(provider string) error {
	return fmt.Errorf("%s returned empty content", provider)
}

func trimContent(s string) string {
	return strings.TrimSpace(s)
}
