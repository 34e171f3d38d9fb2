// Package service contains the recommendation pipeline:
//
//	Generator  → ask the model for JSON
//	Normalize  → accept a list, a wrapped list or a single object
//	decode     → typed records, validated
//	Fetcher    → live prices from MOEX ISS, best effort
//	merge      → attach prices, stamp time and disclaimer
//
// Recommendation content is all-or-nothing; prices are best effort.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/moex-picks/internal/model"
	"github.com/fleveque/moex-picks/internal/quote"
)

// Default token budgets for the two request kinds.
const (
	DefaultBatchMaxTokens  = 8000
	DefaultDetailMaxTokens = 4000
)

// PipelineConfig holds the per-request model settings.
type PipelineConfig struct {
	BatchMaxTokens  int
	DetailMaxTokens int
}

// Pipeline merges one model's recommendations with live quotes.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	generator *Generator
	quotes    quote.Fetcher
	cfg       PipelineConfig
	now       func() time.Time
	logger    *zap.Logger
}

// NewPipeline creates a pipeline. Collaborators are passed in explicitly so
// tests can swap in stubs.
func NewPipeline(generator *Generator, quotes quote.Fetcher, cfg PipelineConfig, logger *zap.Logger) *Pipeline {
	if cfg.BatchMaxTokens <= 0 {
		cfg.BatchMaxTokens = DefaultBatchMaxTokens
	}
	if cfg.DetailMaxTokens <= 0 {
		cfg.DetailMaxTokens = DefaultDetailMaxTokens
	}
	return &Pipeline{
		generator: generator,
		quotes:    quotes,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

// ProviderName and ModelName describe the model this pipeline talks to.
func (p *Pipeline) ProviderName() string { return p.generator.ProviderName() }
func (p *Pipeline) ModelName() string    { return p.generator.ModelName() }

// TopStocks returns the model's top-10 equities with live prices attached.
func (p *Pipeline) TopStocks(ctx context.Context) (*model.Batch[model.StockRecommendation], error) {
	return produceBatch(ctx, p, model.MarketStocks, model.StockFromRecord)
}

// TopBonds returns the model's top-10 bonds with live prices attached.
func (p *Pipeline) TopBonds(ctx context.Context) (*model.Batch[model.BondRecommendation], error) {
	return produceBatch(ctx, p, model.MarketBonds, model.BondFromRecord)
}

// StockDetail returns the model's view on a single ticker.
func (p *Pipeline) StockDetail(ctx context.Context, ticker string) (*model.Detail[model.StockRecommendation], error) {
	return produceDetail(ctx, p, model.MarketStocks, ticker, model.StockFromRecord)
}

// BondDetail returns the model's view on a single bond.
func (p *Pipeline) BondDetail(ctx context.Context, secid string) (*model.Detail[model.BondRecommendation], error) {
	return produceDetail(ctx, p, model.MarketBonds, secid, model.BondFromRecord)
}

// instrumentPtr lets the generic helpers call the pointer-receiver methods of
// model.Instrument on a value type T.
type instrumentPtr[T any] interface {
	*T
	model.Instrument
}

func produceBatch[T any, P instrumentPtr[T]](
	ctx context.Context,
	p *Pipeline,
	market model.Market,
	decode func(model.Record) T,
) (*model.Batch[T], error) {
	raw, err := p.generator.Generate(ctx, GenerationRequest{
		Prompt:    TopPrompt(market, TopCount),
		MaxTokens: p.cfg.BatchMaxTokens,
		Market:    market,
	})
	if err != nil {
		return nil, err
	}

	records, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	recs := make([]T, 0, len(records))
	for i, r := range records {
		rec := decode(r)
		inst := P(&rec)
		inst.SetIdentifier(canonicalID(inst.Identifier()))
		if inst.Identifier() == "" || inst.DisplayName() == "" {
			return nil, malformed(fmt.Sprintf("recommendation %d has no %s or name", i, market.IdentifierField()), nil)
		}
		recs = append(recs, rec)
	}

	// Identifiers are passed on as extracted, duplicates included.
	ids := make([]string, 0, len(recs))
	for i := range recs {
		if id := P(&recs[i]).Identifier(); id != "" {
			ids = append(ids, id)
		}
	}
	prices := p.quotes.FetchQuotes(ctx, ids, market)
	priced := attachPrices[T, P](recs, prices)

	p.logger.Info("recommendations generated",
		zap.String("provider", p.ProviderName()),
		zap.String("market", string(market)),
		zap.Int("count", len(recs)),
		zap.Int("priced", priced),
	)

	return model.NewBatch(recs, p.now()), nil
}

func produceDetail[T any, P instrumentPtr[T]](
	ctx context.Context,
	p *Pipeline,
	market model.Market,
	identifier string,
	decode func(model.Record) T,
) (*model.Detail[T], error) {
	identifier = canonicalID(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("empty %s", market.IdentifierField())
	}

	raw, err := p.generator.Generate(ctx, GenerationRequest{
		Prompt:     DetailPrompt(market, identifier),
		MaxTokens:  p.cfg.DetailMaxTokens,
		Market:     market,
		Identifier: identifier,
	})
	if err != nil {
		return nil, err
	}

	records, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, malformed("no recommendation in response", nil)
	}

	// Only the first record counts, whatever shape it came in
	rec := decode(records[0])
	inst := P(&rec)
	if got := canonicalID(inst.Identifier()); got != "" && got != identifier {
		p.logger.Warn("model answered about another instrument",
			zap.String("requested", identifier),
			zap.String("answered", got),
		)
	}
	// The request names the instrument, so the price below always matches the record
	inst.SetIdentifier(identifier)

	prices := p.quotes.FetchQuotes(ctx, []string{identifier}, market)
	if price, ok := prices[identifier]; ok {
		inst.SetPrice(price)
	}

	p.logger.Info("recommendation generated",
		zap.String("provider", p.ProviderName()),
		zap.String("market", string(market)),
		zap.String("identifier", identifier),
		zap.Bool("priced", inst.Price() != nil),
	)

	return model.NewDetail(rec), nil
}

// attachPrices sets the price of every record whose identifier was resolved.
// It never adds, removes or reorders records. Returns how many got a price.
func attachPrices[T any, P instrumentPtr[T]](recs []T, prices model.QuoteMap) int {
	priced := 0
	for i := range recs {
		inst := P(&recs[i])
		if price, ok := prices[inst.Identifier()]; ok {
			inst.SetPrice(price)
			priced++
		}
	}
	return priced
}

// canonicalID upper-cases MOEX identifiers: the model sometimes answers "sber".
func canonicalID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
