package models

import "time"

type EventType string

const (
	EventTypeDiagnosisCompleted EventType = "diagnosis_completed"
	EventTypeCriticalFault      EventType = "critical_fault"
	EventTypeError              EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo EventSeverity = "info"
	SeverityWarn EventSeverity = "warning"
	SeverityCrit EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	DeviceID  string        `json:"device_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, deviceID, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		DeviceID:  deviceID,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}
