package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/moex-picks/internal/llm"
	"github.com/fleveque/moex-picks/internal/model"
	"github.com/fleveque/moex-picks/internal/storage"
)

// DefaultTemperature is the sampling temperature used when none is configured.
const DefaultTemperature = 0.7

// GenerationRequest is one prompt plus what the audit log needs to know about it.
type GenerationRequest struct {
	Prompt     Prompt
	MaxTokens  int
	Market     model.Market
	Identifier string // empty for top-10 requests
}

// Generator sends prompts to one language model and returns its raw text.
// It never validates the text: that is Normalize's job.
type Generator struct {
	client      llm.Client
	calls       storage.CallRepository // nil disables the audit log
	temperature float64
	logger      *zap.Logger
}

// NewGenerator wires a model client to the (optional) call audit.
func NewGenerator(client llm.Client, calls storage.CallRepository, temperature float64, logger *zap.Logger) *Generator {
	return &Generator{
		client:      client,
		calls:       calls,
		temperature: temperature,
		logger:      logger,
	}
}

// ProviderName and ModelName identify the model behind this generator.
func (g *Generator) ProviderName() string { return g.client.ProviderName() }
func (g *Generator) ModelName() string    { return g.client.ModelName() }

// Generate asks the model for a JSON answer. Any provider failure comes back
// as a *GenerationError; there is no retry at this layer.
func (g *Generator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	start := time.Now()

	content, err := g.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: req.Prompt.System,
		UserPrompt:   req.Prompt.User,
		Temperature:  g.temperature,
		MaxTokens:    req.MaxTokens,
		JSONOutput:   true,
	})
	duration := time.Since(start).Milliseconds()

	g.recordCall(ctx, req, err, duration)

	if err != nil {
		return "", &GenerationError{Provider: g.client.ProviderName(), Err: err}
	}

	g.logger.Debug("model answered",
		zap.String("provider", g.client.ProviderName()),
		zap.String("model", g.client.ModelName()),
		zap.String("market", string(req.Market)),
		zap.Int("chars", len(content)),
		zap.Int64("duration_ms", duration),
	)
	return content, nil
}

// recordCall stores call metadata for cost tracking. A failed write is logged
// and otherwise ignored: the audit must never break a request.
func (g *Generator) recordCall(ctx context.Context, req GenerationRequest, callErr error, durationMs int64) {
	if g.calls == nil {
		return
	}

	call := &model.LLMCall{
		Provider:   g.client.ProviderName(),
		Model:      g.client.ModelName(),
		Market:     req.Market,
		Success:    callErr == nil,
		DurationMs: &durationMs,
	}
	if req.Identifier != "" {
		id := req.Identifier
		call.Identifier = &id
	}
	if callErr != nil {
		msg := callErr.Error()
		call.ErrorMessage = &msg
	}

	// The request context may already be cancelled when the model timed out
	if err := g.calls.Create(context.WithoutCancel(ctx), call); err != nil {
		g.logger.Error("recording LLM call", zap.Error(err))
	}
}
