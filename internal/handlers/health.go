package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	serviceName    = "stanford-parse"
	serviceVersion = "0.1.0"
)

// Models reports model readiness. *registry.Registry implements it.
type Models interface {
	Ready() bool
	Status() map[string]string
}

// Check probes one dependency.
type Check func(ctx context.Context) error

// HealthHandler handles health check endpoints
type HealthHandler struct {
	models Models
	checks map[string]Check
}

// NewHealthHandler creates a health handler. checks maps dependency names
// to probes; a nil probe is reported as not configured.
func NewHealthHandler(models Models, checks map[string]Check) *HealthHandler {
	return &HealthHandler{models: models, checks: checks}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	Models       map[string]string `json:"models,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Health returns basic health status
//
// @Summary Liveness
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: serviceVersion,
	})
}

// DeepHealth returns health status with model and dependency checks
//
// @Summary Readiness
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/deep [get]
func (h *HealthHandler) DeepHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	allHealthy := h.models.Ready()

	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if check == nil {
			deps[name] = "not configured"
			continue
		}
		if err := check(ctx); err != nil {
			deps[name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			deps[name] = "healthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:       status,
		Service:      serviceName,
		Version:      serviceVersion,
		Models:       h.models.Status(),
		Dependencies: deps,
	})
}
