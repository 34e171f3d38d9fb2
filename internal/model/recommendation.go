// Package model defines the core data types for the recommendation service.
// Recommendations are built fresh for every request and never persisted.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Market selects the MOEX segment a request is about.
type Market string

const (
	MarketStocks Market = "stocks"
	MarketBonds  Market = "bonds"
)

// Disclaimer is appended to every response. It is a legal notice and is not configurable.
const Disclaimer = "Данная информация носит информационный характер и не является инвестиционной рекомендацией."

// ParseMarket accepts the plural route names as well as "equity"/"bond".
func ParseMarket(s string) (Market, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stocks", "stock", "shares", "equity":
		return MarketStocks, nil
	case "bonds", "bond":
		return MarketBonds, nil
	default:
		return "", fmt.Errorf("unknown market %q: must be stocks or bonds", s)
	}
}

// IdentifierField is the JSON key the model uses for the instrument id.
func (m Market) IdentifierField() string {
	if m == MarketBonds {
		return "secid"
	}
	return "ticker"
}

// QuoteMap maps an identifier to its last traded price. Identifiers that could
// not be resolved are absent; absence means "unknown", never zero.
type QuoteMap map[string]float64

// Analysis holds the free-text part shared by both instrument kinds.
type Analysis struct {
	Reasoning   string   `json:"reasoning"`
	Sources     []string `json:"sources"`
	TradingPlan string   `json:"trading_plan"`
}

// StockRecommendation is one equity pick.
type StockRecommendation struct {
	Ticker       string   `json:"ticker"`
	Name         string   `json:"name"`
	Sector       string   `json:"sector"`
	CurrentPrice *float64 `json:"current_price"`
	Analysis
}

// BondRecommendation is one bond pick. Optional numeric fields stay nil when
// the model leaves them out.
type BondRecommendation struct {
	SecID           string   `json:"secid"`
	Name            string   `json:"name"`
	Issuer          string   `json:"issuer"`
	CouponRate      *float64 `json:"coupon_rate"`
	MaturityDate    *string  `json:"maturity_date"`
	CurrentPrice    *float64 `json:"current_price"`
	YieldToMaturity *float64 `json:"yield_to_maturity"`
	Analysis
}

// Instrument is implemented by *StockRecommendation and *BondRecommendation.
// The pipeline only ever reads the identifier and writes the price.
type Instrument interface {
	Identifier() string
	DisplayName() string
	SetIdentifier(id string)
	SetPrice(price float64)
	Price() *float64
}

func (s *StockRecommendation) Identifier() string      { return s.Ticker }
func (s *StockRecommendation) DisplayName() string     { return s.Name }
func (s *StockRecommendation) SetIdentifier(id string) { s.Ticker = id }
func (s *StockRecommendation) SetPrice(price float64)  { s.CurrentPrice = &price }
func (s *StockRecommendation) Price() *float64         { return s.CurrentPrice }

func (b *BondRecommendation) Identifier() string      { return b.SecID }
func (b *BondRecommendation) DisplayName() string     { return b.Name }
func (b *BondRecommendation) SetIdentifier(id string) { b.SecID = id }
func (b *BondRecommendation) SetPrice(price float64)  { b.CurrentPrice = &price }
func (b *BondRecommendation) Price() *float64         { return b.CurrentPrice }

// StockFromRecord reads a stock pick out of an untyped model record.
// Missing or mistyped fields are left empty; they are never an error here.
// A "current_price" from the model is ignored: prices only come from quotes.
func StockFromRecord(r Record) StockRecommendation {
	return StockRecommendation{
		Ticker:   r.String("ticker"),
		Name:     r.String("name"),
		Sector:   r.String("sector"),
		Analysis: analysisFromRecord(r),
	}
}

// BondFromRecord reads a bond pick out of an untyped model record.
func BondFromRecord(r Record) BondRecommendation {
	b := BondRecommendation{
		SecID:           r.String("secid"),
		Name:            r.String("name"),
		Issuer:          r.String("issuer"),
		CouponRate:      r.Float("coupon_rate"),
		YieldToMaturity: r.Float("yield_to_maturity"),
		Analysis:        analysisFromRecord(r),
	}
	if d := r.String("maturity_date"); d != "" {
		b.MaturityDate = &d
	}
	return b
}

func analysisFromRecord(r Record) Analysis {
	return Analysis{
		Reasoning:   r.String("reasoning"),
		Sources:     r.Strings("sources"),
		TradingPlan: r.String("trading_plan"),
	}
}

// Batch is the top-10 envelope returned by the */top10 endpoints.
type Batch[T any] struct {
	Recommendations []T    `json:"recommendations"`
	GeneratedAt     string `json:"generated_at"`
	Disclaimer      string `json:"disclaimer"`
}

// NewBatch stamps the records with the generation time and the disclaimer.
// A nil slice is replaced with an empty one so the JSON is always an array.
func NewBatch[T any](recs []T, now time.Time) *Batch[T] {
	if recs == nil {
		recs = []T{}
	}
	return &Batch[T]{
		Recommendations: recs,
		GeneratedAt:     now.Format(time.RFC3339),
		Disclaimer:      Disclaimer,
	}
}

// Detail is a single recommendation with the disclaimer appended at the top
// level of the JSON object, as returned by the single-instrument endpoints.
type Detail[T any] struct {
	Recommendation T
	Disclaimer     string
}

// NewDetail wraps a single recommendation with the disclaimer.
func NewDetail[T any](rec T) *Detail[T] {
	return &Detail[T]{Recommendation: rec, Disclaimer: Disclaimer}
}

// MarshalJSON flattens the recommendation and adds a "disclaimer" key to it.
// Go can't embed a type parameter, so the object is spliced by hand.
func (d Detail[T]) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(d.Recommendation)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' || body[len(body)-1] != '}' {
		return nil, fmt.Errorf("detail recommendation must encode as a JSON object")
	}

	disclaimer, err := json.Marshal(d.Disclaimer)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(body[:len(body)-1])
	if len(bytes.TrimSpace(body[1:len(body)-1])) > 0 {
		buf.WriteByte(',')
	}
	buf.WriteString(`"disclaimer":`)
	buf.Write(disclaimer)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
