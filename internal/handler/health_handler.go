// Package handler contains HTTP request handlers.
// In Gin, a handler is any function with signature func(*gin.Context).
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports process liveness and the models it serves.
type HealthHandler struct {
	models map[string]string // provider → model
}

// NewHealthHandler creates a HealthHandler for the configured providers.
func NewHealthHandler(models map[string]string) *HealthHandler {
	return &HealthHandler{models: models}
}

// Healthz always answers 200 while the process is up. It does not call any
// provider: a slow model must not make the service look dead.
// Route: GET /health
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "moex-picks",
		"models":  h.models,
	})
}
