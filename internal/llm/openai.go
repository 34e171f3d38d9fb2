package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client with the chat completions API.
// The same client talks to Ollama, which serves an OpenAI-compatible API
// under /v1, so only the base URL and provider name differ.
type OpenAIClient struct {
	client   *openai.Client
	model    string
	provider string
}

// NewOpenAIClient creates a client for api.openai.com.
func NewOpenAIClient(apiKey string, model string) *OpenAIClient {
	return &OpenAIClient{
		client:   openai.NewClient(apiKey),
		model:    model,
		provider: ProviderOpenAI,
	}
}

// NewOpenAICompatibleClient creates a client for any OpenAI-compatible endpoint.
// provider is only used for logging and the call audit.
func NewOpenAICompatibleClient(provider, baseURL, apiKey, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIClient{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		provider: provider,
	}
}

// NewOllamaClient creates a client for a local Ollama server. Ollama ignores
// the API key but the header must still be well-formed.
func NewOllamaClient(baseURL, model string) *OpenAIClient {
	return NewOpenAICompatibleClient(ProviderOllama, baseURL, "ollama", model)
}

func (o *OpenAIClient) ProviderName() string { return o.provider }
func (o *OpenAIClient) ModelName() string    { return o.model }

func (o *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONOutput {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("%s API call: %w", o.provider, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", o.provider)
	}

	content := trimContent(resp.Choices[0].Message.Content)
	if content == "" {
		return "", emptyContent(o.provider)
	}
	return content, nil
}
