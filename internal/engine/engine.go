// Package engine implements the fault diagnosis pipeline: input
// validation, the threshold rule table, the statistical scorer merge,
// and final composition. The engine itself is stateless; its only
// dependency is the immutable trained scorer injected at construction.
package engine

import (
	"github.com/gridsentinel/fault-diagnosis/internal/logger"
	"github.com/gridsentinel/fault-diagnosis/pkg/models"
)

// Scorer produces a fault-label probability distribution for a reading.
// The trained model satisfies this; tests substitute their own.
type Scorer interface {
	Score(reading models.SensorReading) (map[models.FaultType]float64, error)
}

type Engine struct {
	scorer Scorer
}

func New(scorer Scorer) *Engine {
	return &Engine{scorer: scorer}
}

// Diagnose runs the full pipeline on a decoded request body. The
// returned diagnosis has no id or timestamp; those are assigned when the
// ledger appends it.
func (e *Engine) Diagnose(raw map[string]interface{}) (*models.Diagnosis, error) {
	reading, err := ParseReading(raw)
	if err != nil {
		return nil, err
	}
	return e.DiagnoseReading(reading)
}

// DiagnoseReading classifies an already validated reading.
func (e *Engine) DiagnoseReading(reading models.SensorReading) (*models.Diagnosis, error) {
	rule := ClassifyThresholds(reading)

	dist, err := e.scorer.Score(reading)
	if err != nil {
		return nil, err
	}

	diagnosis, err := Compose(reading, rule, dist)
	if err != nil {
		return nil, err
	}

	logger.WithDevice(reading.DeviceID).Debugf(
		"Diagnosed: %s (rule: %s, severity: %s, confidence: %.1f%%)",
		diagnosis.FaultType, rule.Rule, rule.Severity, diagnosis.Confidence,
	)

	return diagnosis, nil
}
