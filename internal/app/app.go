// Package app wires configuration into the running components. The server
// and the CLI share it so both build clients the same way.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/fleveque/moex-picks/internal/config"
	"github.com/fleveque/moex-picks/internal/llm"
	"github.com/fleveque/moex-picks/internal/quote"
	"github.com/fleveque/moex-picks/internal/server"
	"github.com/fleveque/moex-picks/internal/service"
	"github.com/fleveque/moex-picks/internal/storage"
)

// App holds every long-lived component. Close releases the database.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Calls     storage.CallRepository // nil when the audit is disabled
	Quotes    *quote.ISSClient
	Pipelines []NamedPipeline // in llm.providers order

	db *sqlx.DB
}

// NamedPipeline is a pipeline plus the provider name it is routed under.
type NamedPipeline struct {
	Provider string
	Pipeline *service.Pipeline
}

// NewLogger builds a development logger for "debug" and a production (JSON)
// logger for anything else.
func NewLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// New validates cfg and builds the components. Any error here is a setup
// failure and should stop the process.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a, err := NewBase(cfg, logger)
	if err != nil {
		return nil, err
	}

	pcfg := service.PipelineConfig{
		BatchMaxTokens:  cfg.LLM.BatchMaxTokens,
		DetailMaxTokens: cfg.LLM.DetailMaxTokens,
	}
	for _, name := range cfg.LLM.Providers {
		client, err := NewClient(ctx, name, cfg.LLM)
		if err != nil {
			a.Close()
			return nil, err
		}

		gen := service.NewGenerator(client, a.Calls, cfg.LLM.Temperature, logger.Named(name))
		a.Pipelines = append(a.Pipelines, NamedPipeline{
			Provider: name,
			Pipeline: service.NewPipeline(gen, a.Quotes, pcfg, logger.Named(name)),
		})
		logger.Info("llm provider ready",
			zap.String("provider", name),
			zap.String("model", client.ModelName()),
		)
	}

	return a, nil
}

// NewBase builds the audit repository and the quote client only. It skips
// provider validation, so commands that never call a model work without keys.
func NewBase(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if cfg.Storage.DatabasePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		db, err := storage.NewDatabase(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.db = db
		a.Calls = storage.NewCallRepository(db)
	} else {
		logger.Info("llm call audit disabled")
	}

	quotes, err := quote.NewISSClient(quote.Options{
		BaseURL:           cfg.Quotes.BaseURL,
		StockBoard:        quote.Board{Market: cfg.Quotes.StockMarket, Board: cfg.Quotes.StockBoard},
		BondBoard:         quote.Board{Market: cfg.Quotes.BondMarket, Board: cfg.Quotes.BondBoard},
		Timeout:           cfg.Quotes.Timeout,
		Concurrency:       cfg.Quotes.Concurrency,
		RequestsPerSecond: cfg.Quotes.RequestsPerSecond,
		Burst:             cfg.Quotes.Burst,
	}, logger.Named("quotes"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating quote client: %w", err)
	}
	a.Quotes = quotes

	return a, nil
}

// NewClient builds the llm.Client for one provider name.
func NewClient(ctx context.Context, name string, cfg config.LLMConfig) (llm.Client, error) {
	switch name {
	case llm.ProviderOpenAI:
		if cfg.OpenAI.BaseURL != "" {
			return llm.NewOpenAICompatibleClient(llm.ProviderOpenAI, cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model), nil
		}
		return llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model), nil
	case llm.ProviderOllama:
		return llm.NewOllamaClient(cfg.Ollama.BaseURL, cfg.Ollama.Model), nil
	case llm.ProviderAnthropic:
		return llm.NewAnthropicClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model), nil
	case llm.ProviderGemini:
		client, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}

// Pipeline returns the pipeline for provider, or the first one when provider
// is empty.
func (a *App) Pipeline(provider string) (*service.Pipeline, error) {
	if provider == "" && len(a.Pipelines) > 0 {
		return a.Pipelines[0].Pipeline, nil
	}
	for _, p := range a.Pipelines {
		if p.Provider == provider {
			return p.Pipeline, nil
		}
	}
	return nil, fmt.Errorf("provider %q is not configured", provider)
}

// ServerDeps exposes the pipelines as route families.
func (a *App) ServerDeps() server.Deps {
	deps := server.Deps{Calls: a.Calls}
	for _, p := range a.Pipelines {
		deps.Families = append(deps.Families, server.Family{Provider: p.Provider, Recommender: p.Pipeline})
	}
	return deps
}

// Close releases the audit database, if any.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
