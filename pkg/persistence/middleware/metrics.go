package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
)

type metricsMiddleware struct {
	next     ports.TimelineStore
	duration *prometheus.HistogramVec
}

// NewMetricsMiddleware records the latency of every store call in
// waypoint_store_operation_duration_seconds{op,result}. A missing timeline counts
// as "not_found", not as an error.
func NewMetricsMiddleware(reg prometheus.Registerer) Middleware {
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "waypoint_store_operation_duration_seconds",
			Help:    "Duration of timeline store operations",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
		[]string{"op", "result"},
	)
	reg.MustRegister(duration)

	return func(next ports.TimelineStore) ports.TimelineStore {
		return &metricsMiddleware{next: next, duration: duration}
	}
}

func (m *metricsMiddleware) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrTimelineNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	m.duration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func (m *metricsMiddleware) Save(ctx context.Context, run domain.RunID, tl *domain.Timeline) error {
	start := time.Now()
	err := m.next.Save(ctx, run, tl)
	m.observe("save", start, err)
	return err
}

func (m *metricsMiddleware) Load(ctx context.Context, run domain.RunID) (*domain.Timeline, error) {
	start := time.Now()
	tl, err := m.next.Load(ctx, run)
	m.observe("load", start, err)
	return tl, err
}

func (m *metricsMiddleware) Delete(ctx context.Context, run domain.RunID) error {
	start := time.Now()
	err := m.next.Delete(ctx, run)
	m.observe("delete", start, err)
	return err
}

func (m *metricsMiddleware) List(ctx context.Context) ([]domain.RunID, error) {
	start := time.Now()
	runs, err := m.next.List(ctx)
	m.observe("list", start, err)
	return runs, err
}
