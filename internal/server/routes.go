// Package server configures the HTTP server and routes.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/moex-picks/internal/config"
	"github.com/fleveque/moex-picks/internal/handler"
	"github.com/fleveque/moex-picks/internal/middleware"
	"github.com/fleveque/moex-picks/internal/storage"
)

// Family is one route family: a provider name and the pipeline behind it.
type Family struct {
	Provider    string
	Recommender handler.Recommender
}

// Deps holds everything the routes need. Families keep the configured order.
type Deps struct {
	Families []Family
	Calls    storage.CallRepository // nil when the audit is disabled
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
//
//	GET /health
//	GET /api/v1/stats
//	GET /api/v1/{provider}/stocks/top10 ... one family per provider
//	GET /api/v1/stocks/top10 ...            the first provider again
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	models := make(map[string]string, len(deps.Families))
	for _, f := range deps.Families {
		models[f.Provider] = f.Recommender.ModelName()
	}

	healthHandler := handler.NewHealthHandler(models)
	statsHandler := handler.NewStatsHandler(deps.Calls, logger)

	r.GET("/health", healthHandler.Healthz)

	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// Preflight needs a matching route for the group middleware to run
	api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	api.GET("/stats", statsHandler.Stats)

	for i, f := range deps.Families {
		h := handler.NewRecommendationHandler(f.Recommender, logger)
		registerFamily(api.Group("/"+f.Provider), h)
		if i == 0 {
			registerFamily(api, h)
		}
	}
}

func registerFamily(g *gin.RouterGroup, h *handler.RecommendationHandler) {
	g.GET("/stocks/top10", h.TopStocks)
	g.GET("/bonds/top10", h.TopBonds)
	g.GET("/stocks/:ticker", h.StockDetail)
	g.GET("/bonds/:secid", h.BondDetail)
	g.GET("/health", h.Health)
}
