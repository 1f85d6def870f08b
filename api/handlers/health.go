package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gridsentinel/fault-diagnosis/internal/scorer"
	"github.com/gridsentinel/fault-diagnosis/pkg/database"
)

type HealthHandler struct {
	db    *database.DB
	model *scorer.Model
}

func NewHealthHandler(db *database.DB, model *scorer.Model) *HealthHandler {
	return &HealthHandler{db: db, model: model}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	status := "healthy"

	// Check ledger database
	if err := h.db.HealthCheck(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	} else {
		stats := h.db.GetConnectionStats()
		checks["database"] = fmt.Sprintf("healthy (open: %d, in use: %d)", stats.OpenConnections, stats.InUse)
	}

	// Check classifier model
	if h.model == nil {
		checks["model"] = "unhealthy: model not loaded"
		status = "unhealthy"
	} else if err := h.model.Validate(); err != nil {
		checks["model"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	} else {
		checks["model"] = "healthy"
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:    "not ready",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
