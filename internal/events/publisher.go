package events

import (
	"context"
	"fmt"

	"github.com/gridsentinel/fault-diagnosis/internal/logger"
	"github.com/gridsentinel/fault-diagnosis/pkg/models"
)

// Publisher provides convenience methods for emitting domain events.
type Publisher struct {
	bus *EventBus
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) DiagnosisCompleted(ctx context.Context, d *models.Diagnosis) {
	event := models.NewEvent(
		models.EventTypeDiagnosisCompleted,
		d.DeviceID,
		fmt.Sprintf("Diagnosis for %s: %s (%.1f%% confidence)", d.DeviceID, d.FaultType, d.Confidence),
	).WithData(map[string]interface{}{
		"diagnosis_id":   d.ID,
		"fault_type":     string(d.FaultType),
		"severity":       string(d.Severity),
		"confidence":     d.Confidence,
		"recommendation": d.Recommendation,
	})

	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		event = event.WithTraceID(traceID)
	}

	p.bus.Publish(event)
}

func (p *Publisher) CriticalFault(ctx context.Context, d *models.Diagnosis) {
	event := models.NewEvent(
		models.EventTypeCriticalFault,
		d.DeviceID,
		fmt.Sprintf("CRITICAL fault on %s: %s", d.DeviceID, d.FaultType),
	).WithSeverity(models.SeverityCrit).WithData(map[string]interface{}{
		"diagnosis_id":   d.ID,
		"fault_type":     string(d.FaultType),
		"confidence":     d.Confidence,
		"recommendation": d.Recommendation,
		"readings":       d.Readings,
	})

	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		event = event.WithTraceID(traceID)
	}

	p.bus.Publish(event)
}

func (p *Publisher) Error(ctx context.Context, deviceID, message string, err error) {
	event := models.NewEvent(
		models.EventTypeError,
		deviceID,
		message,
	).WithSeverity(models.SeverityWarn).WithData(map[string]interface{}{
		"error": err.Error(),
	})

	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		event = event.WithTraceID(traceID)
	}

	p.bus.Publish(event)
}
