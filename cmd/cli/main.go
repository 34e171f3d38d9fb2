// Package main provides the command-line client for moex-picks. It runs the
// same pipeline as the server without HTTP in between.
//
// Run with: go run ./cmd/cli top10 --market bonds --provider ollama
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleveque/moex-picks/internal/app"
	"github.com/fleveque/moex-picks/internal/config"
	"github.com/fleveque/moex-picks/internal/model"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootCmd builds the command tree:
//
//	picks-cli top10 --market stocks
//	picks-cli instrument SBER --market stocks
//	picks-cli quote SBER GAZP --market stocks
//	picks-cli calls --limit 20
func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "picks-cli",
		Short:        "MOEX recommendation tools",
		SilenceUsage: true,
	}

	root.AddCommand(top10Cmd(), instrumentCmd(), quoteCmd(), callsCmd())
	return root
}

func top10Cmd() *cobra.Command {
	var market, provider string

	cmd := &cobra.Command{
		Use:   "top10",
		Short: "Ask the model for the top 10 instruments and print them with live prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := model.ParseMarket(market)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				p, err := a.Pipeline(provider)
				if err != nil {
					return err
				}
				if m == model.MarketBonds {
					return printResult(p.TopBonds(ctx))
				}
				return printResult(p.TopStocks(ctx))
			})
		},
	}

	cmd.Flags().StringVar(&market, "market", "stocks", "Market: stocks or bonds")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (default: first configured)")
	return cmd
}

func instrumentCmd() *cobra.Command {
	var market, provider string

	cmd := &cobra.Command{
		Use:   "instrument <TICKER|SECID>",
		Short: "Ask the model about one instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := model.ParseMarket(market)
			if err != nil {
				return err
			}
			return withApp(func(ctx context.Context, a *app.App) error {
				p, err := a.Pipeline(provider)
				if err != nil {
					return err
				}
				if m == model.MarketBonds {
					return printResult(p.BondDetail(ctx, args[0]))
				}
				return printResult(p.StockDetail(ctx, args[0]))
			})
		},
	}

	cmd.Flags().StringVar(&market, "market", "stocks", "Market: stocks or bonds")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (default: first configured)")
	return cmd
}

func quoteCmd() *cobra.Command {
	var market string

	cmd := &cobra.Command{
		Use:   "quote <ID>...",
		Short: "Print last traded prices from MOEX ISS",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := model.ParseMarket(market)
			if err != nil {
				return err
			}
			return withBase(func(ctx context.Context, a *app.App) error {
				// Unlike FetchQuotes, report why an identifier has no price
				for _, id := range args {
					price, err := a.Quotes.Price(ctx, id, m)
					if err != nil {
						a.Logger.Warn("quote unavailable", zap.String("identifier", id), zap.Error(err))
						continue
					}
					fmt.Printf("%s\t%v\n", id, price)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&market, "market", "stocks", "Market: stocks or bonds")
	return cmd
}

func callsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "calls",
		Short: "Show the LLM call audit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBase(func(ctx context.Context, a *app.App) error {
				if a.Calls == nil {
					return fmt.Errorf("llm call audit is disabled (storage.database_path is empty)")
				}

				total, err := a.Calls.Count(ctx)
				if err != nil {
					return err
				}
				byProvider, err := a.Calls.CountByProvider(ctx)
				if err != nil {
					return err
				}
				recent, err := a.Calls.ListRecent(ctx, limit)
				if err != nil {
					return err
				}

				return printJSON(map[string]any{
					"total":       total,
					"by_provider": byProvider,
					"recent":      recent,
				})
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of recent calls to show")
	return cmd
}

// withApp loads config, builds every component and runs fn with a context
// that is cancelled on Ctrl+C.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	return run(app.New, fn)
}

// withBase is withApp for commands that never call a model: no provider
// keys are needed.
func withBase(fn func(ctx context.Context, a *app.App) error) error {
	return run(func(_ context.Context, cfg *config.Config, logger *zap.Logger) (*app.App, error) {
		return app.NewBase(cfg, logger)
	}, fn)
}

func run(
	build func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app.App, error),
	fn func(ctx context.Context, a *app.App) error,
) error {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("PICKS_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// The CLI always logs human-readable output to stderr
	logger, err := app.NewLogger("debug")
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printResult(v any, err error) error {
	if err != nil {
		return err
	}
	return printJSON(v)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
