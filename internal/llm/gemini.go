package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient implements Client with the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// GeminiOption adjusts the genai client config before the client is built.
type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL points the client at another endpoint, such as a proxy.
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(cc *genai.ClientConfig) {
		cc.HTTPOptions.BaseURL = baseURL
	}
}

// NewGeminiClient creates a Gemini client. Unlike the other SDKs, genai builds
// its client eagerly and can fail, so this constructor returns an error.
func NewGeminiClient(ctx context.Context, apiKey string, model string, opts ...GeminiOption) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cc)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (g *GeminiClient) ProviderName() string { return ProviderGemini }
func (g *GeminiClient) ModelName() string    { return g.model }

func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		},
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.JSONOutput {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.UserPrompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	content := trimContent(resp.Text())
	if content == "" {
		return "", emptyContent(ProviderGemini)
	}
	return content, nil
}
