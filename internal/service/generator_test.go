package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/fleveque/moex-picks/internal/model"
	"github.com/fleveque/moex-picks/internal/storage"
)

func setupCallRepo(t *testing.T) storage.CallRepository {
	t.Helper()

	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "calls.db"))
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return storage.NewCallRepository(db)
}

func TestGenerator_RecordsCalls(t *testing.T) {
	repo := setupCallRepo(t)
	ctx := context.Background()

	ok := NewGenerator(&stubClient{reply: `[]`}, repo, DefaultTemperature, zap.NewNop())
	if _, err := ok.Generate(ctx, GenerationRequest{
		Prompt:     DetailPrompt(model.MarketStocks, "SBER"),
		MaxTokens:  100,
		Market:     model.MarketStocks,
		Identifier: "SBER",
	}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	failing := NewGenerator(&stubClient{err: errors.New("401 unauthorized")}, repo, DefaultTemperature, zap.NewNop())
	if _, err := failing.Generate(ctx, GenerationRequest{
		Prompt:    TopPrompt(model.MarketBonds, TopCount),
		MaxTokens: 100,
		Market:    model.MarketBonds,
	}); err == nil {
		t.Fatal("expected error")
	}

	calls, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", len(calls))
	}

	// Newest first
	failed, succeeded := calls[0], calls[1]
	if failed.Success || failed.ErrorMessage == nil || *failed.ErrorMessage != "401 unauthorized" {
		t.Errorf("unexpected failed call %+v", failed)
	}
	if failed.Identifier != nil {
		t.Errorf("expected no identifier for a batch call, got %s", *failed.Identifier)
	}
	if !succeeded.Success || succeeded.Identifier == nil || *succeeded.Identifier != "SBER" {
		t.Errorf("unexpected successful call %+v", succeeded)
	}
	if succeeded.Provider != "stub" || succeeded.Model != "stub-model" {
		t.Errorf("unexpected provider/model %s/%s", succeeded.Provider, succeeded.Model)
	}
	if succeeded.DurationMs == nil {
		t.Error("expected duration to be recorded")
	}
}

func TestGenerator_WithoutAudit(t *testing.T) {
	gen := NewGenerator(&stubClient{reply: `{"ticker":"SBER"}`}, nil, DefaultTemperature, zap.NewNop())

	got, err := gen.Generate(context.Background(), GenerationRequest{Prompt: TopPrompt(model.MarketStocks, 1)})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != `{"ticker":"SBER"}` {
		t.Errorf("expected raw reply, got %q", got)
	}
}
