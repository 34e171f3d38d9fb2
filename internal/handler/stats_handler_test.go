package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/moex-picks/internal/model"
	"github.com/fleveque/moex-picks/internal/storage"
)

func TestHealthz(t *testing.T) {
	router := gin.New()
	router.GET("/health", NewHealthHandler(map[string]string{"openai": "gpt-4o"}).Healthz)

	w := doGet(router, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Models map[string]string `json:"models"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Status != "healthy" || body.Models["openai"] != "gpt-4o" {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestStats(t *testing.T) {
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := storage.NewCallRepository(db)

	ctx := context.Background()
	for _, call := range []*model.LLMCall{
		{Provider: "openai", Model: "gpt-4o", Market: model.MarketStocks, Success: true},
		{Provider: "openai", Model: "gpt-4o", Market: model.MarketBonds, Success: false},
		{Provider: "ollama", Model: "qwen2.5-coder:7b", Market: model.MarketStocks, Success: true},
	} {
		if err := repo.Create(ctx, call); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	router := gin.New()
	router.GET("/stats", NewStatsHandler(repo, zap.NewNop()).Stats)

	w := doGet(router, "/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Total      int64                 `json:"total"`
		Succeeded  int64                 `json:"succeeded"`
		Failed     int64                 `json:"failed"`
		ByProvider []model.ProviderCount `json:"by_provider"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Total != 3 || body.Succeeded != 2 || body.Failed != 1 {
		t.Errorf("unexpected counts %+v", body)
	}
	if len(body.ByProvider) != 2 {
		t.Errorf("expected 2 providers, got %+v", body.ByProvider)
	}
}

func TestStats_AuditDisabled(t *testing.T) {
	router := gin.New()
	router.GET("/stats", NewStatsHandler(nil, zap.NewNop()).Stats)

	w := doGet(router, "/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != `{"audit":"disabled"}` {
		t.Errorf("unexpected body %s", got)
	}
}

// failingCalls makes every count fail.
type failingCalls struct {
	storage.CallRepository
}

func (failingCalls) Count(context.Context) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestStats_RepositoryError(t *testing.T) {
	router := gin.New()
	router.GET("/stats", NewStatsHandler(failingCalls{}, zap.NewNop()).Stats)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/stats", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}
