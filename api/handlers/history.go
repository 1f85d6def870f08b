package handlers

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gridsentinel/fault-diagnosis/internal/logger"
	"github.com/gridsentinel/fault-diagnosis/internal/metrics"
	"github.com/gridsentinel/fault-diagnosis/pkg/config"
	"github.com/gridsentinel/fault-diagnosis/pkg/database/queries"
)

type HistoryHandler struct {
	diagRepo *queries.DiagnosisRepository
	cfg      *config.APIConfig
}

func NewHistoryHandler(diagRepo *queries.DiagnosisRepository, cfg *config.APIConfig) *HistoryHandler {
	return &HistoryHandler{diagRepo: diagRepo, cfg: cfg}
}

// HistoryEntry reports confidence on a 0-1 scale while the diagnose response
// uses percent. Both shapes are load-bearing for existing consumers.
type HistoryEntry struct {
	ID             int64   `json:"id"`
	DeviceID       string  `json:"device_id"`
	FaultType      string  `json:"fault_type"`
	Confidence     float64 `json:"confidence"`
	Severity       string  `json:"severity"`
	Recommendation string  `json:"recommendation"`
	SensorReadings string  `json:"sensor_readings"`
	Timestamp      string  `json:"timestamp"`
}

func (h *HistoryHandler) History(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	limit := 20
	if h.cfg != nil && h.cfg.HistoryLimit > 0 {
		limit = h.cfg.HistoryLimit
	}

	diagnoses, err := h.diagRepo.Recent(ctx, limit)
	if err != nil {
		logger.Errorf("History query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "failed to load history",
		})
		return
	}

	entries := make([]HistoryEntry, 0, len(diagnoses))
	for _, d := range diagnoses {
		entries = append(entries, HistoryEntry{
			ID:             d.ID,
			DeviceID:       d.DeviceID,
			FaultType:      string(d.FaultType),
			Confidence:     d.Confidence / 100,
			Severity:       string(d.Severity),
			Recommendation: d.Recommendation,
			SensorReadings: d.Readings.Summary(),
			Timestamp:      d.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"count":     len(entries),
		"diagnoses": entries,
	})
}

func (h *HistoryHandler) Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	summary, err := h.diagRepo.Summarize(ctx)
	if err != nil {
		logger.Errorf("Stats query failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "failed to load statistics",
		})
		return
	}

	breakdown := make(map[string]int, len(summary.FaultBreakdown))
	for fault, count := range summary.FaultBreakdown {
		breakdown[string(fault)] = count
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "success",
		"total_diagnoses": summary.TotalDiagnoses,
		"fault_breakdown": breakdown,
		"avg_confidence":  math.Round(summary.AvgConfidence*100) / 100,
	})
}

func (h *HistoryHandler) RuntimeStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"runtime": metrics.Get().Snapshot(),
	})
}
