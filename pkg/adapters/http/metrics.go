package http

import (
	"context"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for a board and its HTTP surface.
type Metrics struct {
	shapes        *prometheus.CounterVec
	historyOps    *prometheus.CounterVec
	persistErrors *prometheus.CounterVec
	requests      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		shapes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waypoint_shapes_committed_total",
				Help: "Total number of shapes committed, by run and kind",
			},
			[]string{"run", "kind"},
		),
		historyOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waypoint_history_operations_total",
				Help: "Total number of undo, redo, clear and reset operations",
			},
			[]string{"run", "op"},
		),
		persistErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waypoint_persist_errors_total",
				Help: "Total number of failed timeline saves",
			},
			[]string{"run"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waypoint_http_requests_total",
				Help: "Total number of HTTP requests, by route and status code",
			},
			[]string{"method", "route", "code"},
		),
	}
	reg.MustRegister(m.shapes, m.historyOps, m.persistErrors, m.requests)
	return m
}

// Hooks returns lifecycle hooks that record board events. Pass them to
// waypoint.WithLifecycleHooks.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommit: func(_ context.Context, e *domain.ShapeEvent) {
			m.shapes.WithLabelValues(string(e.Run), string(e.Shape.Kind())).Inc()
		},
		OnHistory: func(_ context.Context, e *domain.HistoryEvent) {
			m.historyOps.WithLabelValues(string(e.Run), string(e.Type)).Inc()
		},
		OnPersistError: func(_ context.Context, e *domain.PersistEvent) {
			m.persistErrors.WithLabelValues(string(e.Run)).Inc()
		},
	}
}
