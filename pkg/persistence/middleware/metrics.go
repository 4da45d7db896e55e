package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics are the collectors recorded by NewMetricsMiddleware.
type StoreMetrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewStoreMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_store_operations_total",
				Help: "Total number of checkpoint store operations",
			},
			[]string{"op", "result"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quill_store_operation_duration_seconds",
				Help:    "Duration of checkpoint store operations",
				Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.Duration)
	}
	return m
}

type metricsMiddleware struct {
	next    ports.CheckpointStore
	metrics *StoreMetrics
}

// NewMetricsMiddleware records the count, outcome and latency of every store call.
func NewMetricsMiddleware(metrics *StoreMetrics) Middleware {
	return func(next ports.CheckpointStore) ports.CheckpointStore {
		return &metricsMiddleware{next: next, metrics: metrics}
	}
}

func (m *metricsMiddleware) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrNoCheckpoint):
		result = "not_found"
	case errors.Is(err, domain.ErrCheckpointConflict):
		result = "conflict"
	case err != nil:
		result = "error"
	}
	m.metrics.Operations.WithLabelValues(op, result).Inc()
	m.metrics.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *metricsMiddleware) Save(ctx context.Context, cp domain.Checkpoint) (err error) {
	defer func(start time.Time) { m.observe("save", start, err) }(time.Now())
	return m.next.Save(ctx, cp)
}

func (m *metricsMiddleware) LoadLatest(ctx context.Context, threadID string) (cp domain.Checkpoint, err error) {
	defer func(start time.Time) { m.observe("load_latest", start, err) }(time.Now())
	return m.next.LoadLatest(ctx, threadID)
}

func (m *metricsMiddleware) List(ctx context.Context, threadID string) (cps []domain.Checkpoint, err error) {
	defer func(start time.Time) { m.observe("list", start, err) }(time.Now())
	return m.next.List(ctx, threadID)
}

func (m *metricsMiddleware) Threads(ctx context.Context) (ids []string, err error) {
	defer func(start time.Time) { m.observe("threads", start, err) }(time.Now())
	return m.next.Threads(ctx)
}

func (m *metricsMiddleware) Delete(ctx context.Context, threadID string) (err error) {
	defer func(start time.Time) { m.observe("delete", start, err) }(time.Now())
	return m.next.Delete(ctx, threadID)
}
