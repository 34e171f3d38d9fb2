package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseMarket(t *testing.T) {
	tests := []struct {
		in      string
		want    Market
		wantErr bool
	}{
		{"stocks", MarketStocks, false},
		{"Equity", MarketStocks, false},
		{" bonds ", MarketBonds, false},
		{"bond", MarketBonds, false},
		{"crypto", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMarket(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMarket(%q): unexpected error state %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMarket(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStockFromRecord(t *testing.T) {
	rec := Record{
		"ticker":        "SBER",
		"name":          "Sberbank",
		"sector":        "Banking",
		"reasoning":     "strong dividends",
		"sources":       []any{"https://moex.com", 42, ""},
		"trading_plan":  "buy below 300",
		"current_price": 999.0,
	}

	got := StockFromRecord(rec)
	if got.Ticker != "SBER" || got.Name != "Sberbank" || got.Sector != "Banking" {
		t.Errorf("unexpected identity fields: %+v", got)
	}
	if got.CurrentPrice != nil {
		t.Errorf("expected model price to be ignored, got %v", *got.CurrentPrice)
	}
	if len(got.Sources) != 1 || got.Sources[0] != "https://moex.com" {
		t.Errorf("expected only the string source to survive, got %v", got.Sources)
	}
}

func TestBondFromRecord_LooseTypes(t *testing.T) {
	rec := Record{
		"secid":         "SU26238RMFS4",
		"name":          "ОФЗ 26238",
		"issuer":        "Минфин РФ",
		"coupon_rate":   "7,1%",
		"maturity_date": "2041-05-15",
		"sources":       "https://moex.com",
	}

	got := BondFromRecord(rec)
	if got.CouponRate == nil || *got.CouponRate != 7.1 {
		t.Errorf("expected coupon 7.1, got %v", got.CouponRate)
	}
	if got.MaturityDate == nil || *got.MaturityDate != "2041-05-15" {
		t.Errorf("expected maturity date, got %v", got.MaturityDate)
	}
	if got.YieldToMaturity != nil {
		t.Errorf("expected yield to stay absent, got %v", *got.YieldToMaturity)
	}
	if len(got.Sources) != 1 {
		t.Errorf("expected lone string source to become a list, got %v", got.Sources)
	}
}

func TestRecord_String_Number(t *testing.T) {
	r := Record{"ticker": float64(1234), "name": nil}
	if got := r.String("ticker"); got != "1234" {
		t.Errorf("expected 1234, got %q", got)
	}
	if got := r.String("name"); got != "" {
		t.Errorf("expected empty for null, got %q", got)
	}
}

func TestNewBatch(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	b := NewBatch[StockRecommendation](nil, now)

	if b.GeneratedAt != "2026-03-02T10:30:00Z" {
		t.Errorf("unexpected timestamp %s", b.GeneratedAt)
	}
	if b.Disclaimer != Disclaimer {
		t.Error("expected fixed disclaimer")
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshaling batch: %v", err)
	}
	if !strings.Contains(string(data), `"recommendations":[]`) {
		t.Errorf("expected empty array, got %s", data)
	}
}

func TestDetail_MarshalJSON(t *testing.T) {
	price := 305.5
	d := NewDetail(StockRecommendation{Ticker: "SBER", Name: "Sberbank", CurrentPrice: &price})

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshaling detail: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("detail is not a JSON object: %v (%s)", err, data)
	}
	if decoded["ticker"] != "SBER" {
		t.Errorf("expected flattened ticker, got %v", decoded["ticker"])
	}
	if decoded["current_price"] != 305.5 {
		t.Errorf("expected price 305.5, got %v", decoded["current_price"])
	}
	if decoded["disclaimer"] != Disclaimer {
		t.Errorf("expected disclaimer key, got %v", decoded["disclaimer"])
	}
}
