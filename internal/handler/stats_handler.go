package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/moex-picks/internal/model"
	"github.com/fleveque/moex-picks/internal/storage"
)

// StatsHandler reports LLM call counts from the audit log.
type StatsHandler struct {
	calls  storage.CallRepository // nil when the audit is disabled
	logger *zap.Logger
}

// NewStatsHandler creates a StatsHandler. calls may be nil.
func NewStatsHandler(calls storage.CallRepository, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		calls:  calls,
		logger: logger,
	}
}

// Stats returns how many model calls were made and how many failed.
// Route: GET /api/v1/stats
func (h *StatsHandler) Stats(c *gin.Context) {
	if h.calls == nil {
		c.JSON(http.StatusOK, gin.H{"audit": "disabled"})
		return
	}

	ctx := c.Request.Context()

	total, err := h.calls.Count(ctx)
	if err != nil {
		h.logger.Error("counting llm calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
		return
	}

	failed, err := h.calls.CountBySuccess(ctx, false)
	if err != nil {
		h.logger.Error("counting failed llm calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
		return
	}

	byProvider, err := h.calls.CountByProvider(ctx)
	if err != nil {
		h.logger.Error("counting llm calls by provider", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
		return
	}
	if byProvider == nil {
		byProvider = []model.ProviderCount{}
	}

	c.JSON(http.StatusOK, gin.H{
		"total":       total,
		"succeeded":   total - failed,
		"failed":      failed,
		"by_provider": byProvider,
	})
}
