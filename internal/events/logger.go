package events

import (
	"github.com/gridsentinel/fault-diagnosis/internal/logger"
	"github.com/gridsentinel/fault-diagnosis/pkg/models"
	"github.com/sirupsen/logrus"
)

// EventLogger subscribes to all events and writes them to the structured log.
type EventLogger struct {
	bus  *EventBus
	done chan struct{}
}

func NewEventLogger(bus *EventBus) *EventLogger {
	return &EventLogger{
		bus:  bus,
		done: make(chan struct{}),
	}
}

func (l *EventLogger) Start() {
	ch := l.bus.SubscribeAll()

	go func() {
		defer close(l.done)
		for event := range ch {
			l.logEvent(event)
		}
	}()
}

func (l *EventLogger) Wait() {
	<-l.done
}

func (l *EventLogger) logEvent(event *models.Event) {
	fields := logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"device_id":  event.DeviceID,
	}
	if event.TraceID != "" {
		fields["trace_id"] = event.TraceID
	}

	entry := logger.WithFields(fields)

	switch event.Severity {
	case models.SeverityCrit:
		entry.Error(event.Message)
	case models.SeverityWarn:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}
}
