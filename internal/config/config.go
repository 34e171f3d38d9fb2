// Package config handles application configuration using Viper.
// Defaults, an optional YAML file and environment variables are merged in that
// priority order (environment wins).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted in llm.providers. They match the llm package
// constants; config doesn't import llm to keep the dependency one-way.
var knownProviders = []string{"openai", "ollama", "anthropic", "gemini"}

// Config is the root configuration struct.
// `mapstructure` tags tell Viper how to map YAML/env keys to struct fields.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	CORS    CORSConfig    `mapstructure:"cors"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Quotes  QuotesConfig  `mapstructure:"quotes"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LLMConfig struct {
	// Providers lists the models to expose, one route family each.
	// The first one also serves the unprefixed /api/v1 routes.
	Providers       []string        `mapstructure:"providers"`
	Temperature     float64         `mapstructure:"temperature"`
	BatchMaxTokens  int             `mapstructure:"batch_max_tokens"`
	DetailMaxTokens int             `mapstructure:"detail_max_tokens"`
	OpenAI          OpenAIConfig    `mapstructure:"openai"`
	Anthropic       AnthropicConfig `mapstructure:"anthropic"`
	Gemini          GeminiConfig    `mapstructure:"gemini"`
	Ollama          OllamaConfig    `mapstructure:"ollama"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"` // empty means api.openai.com
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type QuotesConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	StockMarket       string        `mapstructure:"stock_market"`
	StockBoard        string        `mapstructure:"stock_board"`
	BondMarket        string        `mapstructure:"bond_market"`
	BondBoard         string        `mapstructure:"bond_board"`
	Timeout           time.Duration `mapstructure:"timeout"`
	Concurrency       int           `mapstructure:"concurrency"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

type StorageConfig struct {
	// DatabasePath is the SQLite file for the LLM call audit. Empty disables it.
	DatabasePath string `mapstructure:"database_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
// An empty configPath searches ./config.yaml and ./config/config.yaml and is
// fine if neither exists.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("llm.providers", []string{"openai"})
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.batch_max_tokens", 8000)
	v.SetDefault("llm.detail_max_tokens", 4000)
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")
	v.SetDefault("llm.ollama.base_url", "http://localhost:11434/v1")
	v.SetDefault("llm.ollama.model", "qwen2.5-coder:7b")
	v.SetDefault("quotes.base_url", "https://iss.moex.com")
	v.SetDefault("quotes.stock_market", "shares")
	v.SetDefault("quotes.stock_board", "TQBR")
	v.SetDefault("quotes.bond_market", "bonds")
	v.SetDefault("quotes.bond_board", "TQOB")
	v.SetDefault("quotes.timeout", "10s")
	v.SetDefault("quotes.concurrency", 4)
	v.SetDefault("quotes.requests_per_second", 0)
	v.SetDefault("quotes.burst", 1)
	v.SetDefault("storage.database_path", "./storage/moex-picks.db")
	v.SetDefault("log.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Read config file (ignore "not found": defaults + env are enough)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// PICKS_ prefix + nested keys: PICKS_SERVER_PORT=9090 → server.port=9090
	v.SetEnvPrefix("PICKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The conventional provider variables work too. BindEnv with several names
	// checks them in order, so PICKS_* still wins.
	bindings := map[string][]string{
		"llm.openai.api_key":    {"PICKS_LLM_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"llm.anthropic.api_key": {"PICKS_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"},
		"llm.gemini.api_key":    {"PICKS_LLM_GEMINI_API_KEY", "GEMINI_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// A comma-separated env value arrives as a single element
	cfg.LLM.Providers = splitList(cfg.LLM.Providers)
	for i, p := range cfg.LLM.Providers {
		cfg.LLM.Providers[i] = strings.ToLower(p)
	}
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)

	return &cfg, nil
}

// Validate reports configuration that makes the service unusable. A missing
// credential is a startup failure, not a per-request one.
func (c *Config) Validate() error {
	if len(c.LLM.Providers) == 0 {
		return errors.New("llm.providers: at least one provider is required")
	}

	seen := make(map[string]bool, len(c.LLM.Providers))
	for _, p := range c.LLM.Providers {
		if seen[p] {
			return fmt.Errorf("llm.providers: %q listed twice", p)
		}
		seen[p] = true

		switch p {
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return errors.New("llm.openai.api_key (or OPENAI_API_KEY) is required")
			}
		case "anthropic":
			if c.LLM.Anthropic.APIKey == "" {
				return errors.New("llm.anthropic.api_key (or ANTHROPIC_API_KEY) is required")
			}
		case "gemini":
			if c.LLM.Gemini.APIKey == "" {
				return errors.New("llm.gemini.api_key (or GEMINI_API_KEY) is required")
			}
		case "ollama":
			// Local server, no key
		default:
			return fmt.Errorf("llm.providers: unknown provider %q (known: %s)", p, strings.Join(knownProviders, ", "))
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	return nil
}

// Address returns the listen address string like "0.0.0.0:8000".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
