package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/moex-picks/internal/middleware"
	"github.com/fleveque/moex-picks/internal/model"
	"github.com/fleveque/moex-picks/internal/service"
)

// Recommender is what one route family needs from the pipeline.
// *service.Pipeline implements it.
type Recommender interface {
	TopStocks(ctx context.Context) (*model.Batch[model.StockRecommendation], error)
	TopBonds(ctx context.Context) (*model.Batch[model.BondRecommendation], error)
	StockDetail(ctx context.Context, ticker string) (*model.Detail[model.StockRecommendation], error)
	BondDetail(ctx context.Context, secid string) (*model.Detail[model.BondRecommendation], error)
	ProviderName() string
	ModelName() string
}

// RecommendationHandler serves one route family backed by one model.
type RecommendationHandler struct {
	recommender Recommender
	logger      *zap.Logger
}

// NewRecommendationHandler creates a handler for a single provider.
func NewRecommendationHandler(recommender Recommender, logger *zap.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		logger:      logger.With(zap.String("provider", recommender.ProviderName())),
	}
}

// TopStocks returns the top-10 equities.
// Route: GET /api/v1/{provider}/stocks/top10
func (h *RecommendationHandler) TopStocks(c *gin.Context) {
	batch, err := h.recommender.TopStocks(c.Request.Context())
	if err != nil {
		h.fail(c, err, model.MarketStocks, "")
		return
	}
	c.JSON(http.StatusOK, batch)
}

// TopBonds returns the top-10 bonds.
// Route: GET /api/v1/{provider}/bonds/top10
func (h *RecommendationHandler) TopBonds(c *gin.Context) {
	batch, err := h.recommender.TopBonds(c.Request.Context())
	if err != nil {
		h.fail(c, err, model.MarketBonds, "")
		return
	}
	c.JSON(http.StatusOK, batch)
}

// StockDetail returns one equity with the disclaimer inlined.
// Route: GET /api/v1/{provider}/stocks/:ticker
func (h *RecommendationHandler) StockDetail(c *gin.Context) {
	ticker := identifierParam(c, "ticker")
	detail, err := h.recommender.StockDetail(c.Request.Context(), ticker)
	if err != nil {
		h.fail(c, err, model.MarketStocks, ticker)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// BondDetail returns one bond with the disclaimer inlined.
// Route: GET /api/v1/{provider}/bonds/:secid
func (h *RecommendationHandler) BondDetail(c *gin.Context) {
	secid := identifierParam(c, "secid")
	detail, err := h.recommender.BondDetail(c.Request.Context(), secid)
	if err != nil {
		h.fail(c, err, model.MarketBonds, secid)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Health reports which model backs this route family.
// Route: GET /api/v1/{provider}/health
func (h *RecommendationHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"provider": h.recommender.ProviderName(),
		"model":    h.recommender.ModelName(),
	})
}

// fail turns any pipeline error into a 500 with {"detail": msg}. Nothing
// partial is ever written.
func (h *RecommendationHandler) fail(c *gin.Context, err error, market model.Market, identifier string) {
	kind := "internal"
	var genErr *service.GenerationError
	var malErr *service.MalformedResponseError
	switch {
	case errors.As(err, &genErr):
		kind = "generation"
	case errors.As(err, &malErr):
		kind = "malformed_response"
	}

	h.logger.Error("recommendation failed",
		zap.String("request_id", middleware.RequestID(c)),
		zap.String("market", string(market)),
		zap.String("identifier", identifier),
		zap.String("kind", kind),
		zap.Error(err),
	)

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
}

func identifierParam(c *gin.Context, name string) string {
	return strings.ToUpper(strings.TrimSpace(c.Param(name)))
}
