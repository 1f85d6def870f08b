package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gridsentinel/fault-diagnosis/internal/engine"
	"github.com/gridsentinel/fault-diagnosis/internal/events"
	"github.com/gridsentinel/fault-diagnosis/internal/logger"
	"github.com/gridsentinel/fault-diagnosis/internal/metrics"
	"github.com/gridsentinel/fault-diagnosis/internal/scorer"
	"github.com/gridsentinel/fault-diagnosis/pkg/database/queries"

	"github.com/gridsentinel/fault-diagnosis/api/middleware"
)

type DiagnoseHandler struct {
	engine    *engine.Engine
	diagRepo  *queries.DiagnosisRepository
	publisher *events.Publisher
}

func NewDiagnoseHandler(eng *engine.Engine, diagRepo *queries.DiagnosisRepository, publisher *events.Publisher) *DiagnoseHandler {
	return &DiagnoseHandler{
		engine:    eng,
		diagRepo:  diagRepo,
		publisher: publisher,
	}
}

// Diagnose runs a sensor payload through the diagnosis pipeline and appends
// the result to the ledger. The result is only returned once the ledger
// append has succeeded.
func (h *DiagnoseHandler) Diagnose(c *gin.Context) {
	start := time.Now()

	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		metrics.Get().IncValidationErrors()
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "request body must be a JSON object",
		})
		return
	}

	ctx := c.Request.Context()
	if traceID := middleware.GetTraceID(c); traceID != "" {
		ctx = logger.WithTraceID(ctx, traceID)
	}

	diagnosis, err := h.engine.Diagnose(raw)
	if err != nil {
		h.handleDiagnoseError(c, ctx, err)
		return
	}

	dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stored, err := h.diagRepo.Append(dbCtx, diagnosis)
	if err != nil {
		metrics.Get().IncLedgerErrors()
		h.publisher.Error(ctx, diagnosis.DeviceID, "Failed to record diagnosis", err)
		logger.ErrorCtxf(ctx, "Ledger append failed for %s: %v", diagnosis.DeviceID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "failed to record diagnosis",
		})
		return
	}

	m := metrics.Get()
	m.IncDiagnoses(stored.DeviceID)
	m.IncFault(stored.DeviceID, string(stored.FaultType))
	m.SetDiagnosisLatency(stored.DeviceID, time.Since(start))

	h.publisher.DiagnosisCompleted(ctx, stored)
	if stored.IsCritical() {
		h.publisher.CriticalFault(ctx, stored)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"device_id":      stored.DeviceID,
		"fault_type":     stored.FaultType,
		"confidence":     stored.Confidence,
		"severity":       stored.Severity,
		"recommendation": stored.Recommendation,
		"readings":       stored.Readings,
	})
}

func (h *DiagnoseHandler) handleDiagnoseError(c *gin.Context, ctx context.Context, err error) {
	var validationErr *engine.ValidationError
	if errors.As(err, &validationErr) {
		metrics.Get().IncValidationErrors()
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": validationErr.Error(),
		})
		return
	}

	if errors.Is(err, scorer.ErrModelUnavailable) {
		metrics.Get().IncScorerErrors()
		logger.ErrorCtxf(ctx, "Classifier unavailable: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "diagnosis service unavailable",
		})
		return
	}

	logger.ErrorCtxf(ctx, "Diagnosis failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  "error",
		"message": "diagnosis failed",
	})
}
