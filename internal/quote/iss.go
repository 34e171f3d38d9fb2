// Package quote fetches last traded prices from the Moscow Exchange ISS API.
// Lookups are best effort: an identifier that fails for any reason is simply
// missing from the result.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fleveque/moex-picks/internal/model"
)

// Fetcher returns prices for whatever subset of identifiers it could resolve.
// It never fails as a whole.
type Fetcher interface {
	FetchQuotes(ctx context.Context, identifiers []string, market model.Market) model.QuoteMap
}

// Board is the ISS market and trading board used for one instrument kind,
// e.g. shares/TQBR for equities and bonds/TQOB for OFZ.
type Board struct {
	Market string
	Board  string
}

// Options configures an ISSClient. Zero values fall back to the defaults below.
type Options struct {
	BaseURL           string
	StockBoard        Board
	BondBoard         Board
	Timeout           time.Duration
	Concurrency       int
	RequestsPerSecond float64 // 0 disables pacing
	Burst             int
	HTTPClient        *http.Client // optional, for tests
}

const (
	DefaultBaseURL     = "https://iss.moex.com"
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 4
	maxBodySize        = 1 << 20
)

// ISSClient implements Fetcher against iss.moex.com.
type ISSClient struct {
	baseURL     *url.URL
	boards      map[model.Market]Board
	concurrency int
	limiter     *rate.Limiter
	client      *http.Client
	logger      *zap.Logger
}

// NewISSClient validates the options and builds a client. Only a bad base URL
// can fail here; that is a setup error, not a per-request one.
func NewISSClient(opts Options, logger *zap.Logger) (*ISSClient, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ISS base URL %q", base)
	}

	stock := opts.StockBoard
	if stock.Market == "" || stock.Board == "" {
		stock = Board{Market: "shares", Board: "TQBR"}
	}
	bond := opts.BondBoard
	if bond.Market == "" || bond.Board == "" {
		bond = Board{Market: "bonds", Board: "TQOB"}
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	// Pacing is outbound politeness towards ISS, not inbound rate limiting.
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &ISSClient{
		baseURL:     u,
		boards:      map[model.Market]Board{model.MarketStocks: stock, model.MarketBonds: bond},
		concurrency: concurrency,
		limiter:     limiter,
		client:      client,
		logger:      logger,
	}, nil
}

// FetchQuotes issues one request per identifier, including repeated ones, and
// collects the prices that came back. The failure reason for an identifier is
// logged at debug level and dropped.
func (c *ISSClient) FetchQuotes(ctx context.Context, identifiers []string, market model.Market) model.QuoteMap {
	prices := make(model.QuoteMap, len(identifiers))
	var mu sync.Mutex

	// errgroup only bounds concurrency here: fetch errors are swallowed, so
	// the group never cancels its siblings.
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for _, id := range identifiers {
		g.Go(func() error {
			price, err := c.fetchOne(ctx, id, market)
			if err != nil {
				c.logger.Debug("quote unavailable",
					zap.String("identifier", id),
					zap.String("market", string(market)),
					zap.Error(err),
				)
				return nil
			}

			mu.Lock()
			prices[id] = price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return prices
}

// Price fetches a single identifier. Exported for the CLI quote command.
func (c *ISSClient) Price(ctx context.Context, identifier string, market model.Market) (float64, error) {
	return c.fetchOne(ctx, identifier, market)
}

// SecurityURL builds the per-identifier ISS endpoint for the market's board.
func (c *ISSClient) SecurityURL(identifier string, market model.Market) string {
	b, ok := c.boards[market]
	if !ok {
		b = c.boards[model.MarketStocks]
	}

	query := url.Values{
		"iss.meta": {"off"},
		"iss.only": {"marketdata"},
	}
	return fmt.Sprintf("%s/iss/engines/stock/markets/%s/boards/%s/securities/%s.json?%s",
		c.baseURL.String(), b.Market, b.Board, url.PathEscape(identifier), query.Encode())
}

// issTable is the columns/data layout ISS uses for every block.
type issTable struct {
	Columns []string            `json:"columns"`
	Data    [][]json.RawMessage `json:"data"`
}

type issSecurityResponse struct {
	Marketdata issTable `json:"marketdata"`
}

func (c *ISSClient) fetchOne(ctx context.Context, identifier string, market model.Market) (float64, error) {
	if strings.TrimSpace(identifier) == "" {
		return 0, fmt.Errorf("empty identifier")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.SecurityURL(identifier, market)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "moex-picks/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("ISS returned HTTP %d for %s", resp.StatusCode, identifier)
	}

	var body issSecurityResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding quote: %w", err)
	}

	return lastPrice(body.Marketdata)
}

// lastPrice reads the LAST column of the first marketdata row. A null or zero
// LAST means no trades yet, which is reported as missing rather than 0.
func lastPrice(t issTable) (float64, error) {
	col := -1
	for i, name := range t.Columns {
		if strings.EqualFold(name, "LAST") {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, fmt.Errorf("marketdata has no LAST column")
	}
	if len(t.Data) == 0 {
		return 0, fmt.Errorf("marketdata is empty")
	}
	row := t.Data[0]
	if col >= len(row) {
		return 0, fmt.Errorf("marketdata row is shorter than its columns")
	}

	var last decimal.NullDecimal
	if err := json.Unmarshal(row[col], &last); err != nil {
		return 0, fmt.Errorf("parsing LAST: %w", err)
	}
	if !last.Valid || last.Decimal.IsZero() {
		return 0, fmt.Errorf("no last price")
	}

	price, _ := last.Decimal.Float64()
	return price, nil
}
