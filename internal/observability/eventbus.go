package observability

import (
	"context"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const metricsNamespace = "placefinder"

// EventBus implements the EventPublisher interface. Every event is logged and
// counted by type.
type EventBus struct {
	logger *zap.Logger
	events *prometheus.CounterVec
}

// NewEventBus creates a new event bus and registers its counters with reg.
func NewEventBus(logger *zap.Logger, reg prometheus.Registerer) (*EventBus, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "lookup",
		Name:      "events_total",
		Help:      "Lookup events by type.",
	}, []string{"event"})

	if reg != nil {
		if err := reg.Register(events); err != nil {
			return nil, fmt.Errorf("failed to register lookup event counter: %w", err)
		}
	}

	return &EventBus{
		logger: logger,
		events: events,
	}, nil
}

// Publish publishes an event with the given type and data.
func (e *EventBus) Publish(ctx context.Context, eventType string, data map[string]interface{}) {
	e.events.WithLabelValues(eventType).Inc()

	if e.logger == nil {
		return
	}

	// Sorted so log lines are stable across runs.
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys)+maxLoggerFieldCapacity)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, data[k]))
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if sessionID := GetSessionID(ctx); sessionID != "" {
		fields = append(fields, zap.String("session_id", sessionID))
	}

	e.logger.Info(eventType, fields...)
}

// Counter exposes the event counter for tests and dashboards.
func (e *EventBus) Counter() *prometheus.CounterVec {
	return e.events
}
