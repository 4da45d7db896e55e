package observability

import (
	"context"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the run collectors fed by Hooks.
type Metrics struct {
	Steps        *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	Checkpoints  prometheus.Counter
	Runs         *prometheus.CounterVec
	ActiveSteps  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_steps_total",
				Help: "Total number of executed steps",
			},
			[]string{"step", "result"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quill_step_duration_seconds",
				Help:    "Duration of step executions",
				Buckets: prometheus.ExponentialBuckets(0.01, 3, 9),
			},
			[]string{"step"},
		),
		Checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quill_checkpoints_total",
			Help: "Total number of persisted checkpoints",
		}),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quill_runs_total",
				Help: "Total number of runs that stopped, by outcome",
			},
			[]string{"outcome"},
		),
		ActiveSteps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quill_active_steps",
			Help: "Number of steps currently executing",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Steps, m.StepDuration, m.Checkpoints, m.Runs, m.ActiveSteps)
	}
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(_ context.Context, e *domain.StepEvent) {
			m.ActiveSteps.Inc()
		},
		OnStepFinish: func(_ context.Context, e *domain.StepEvent) {
			m.ActiveSteps.Dec()
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.Steps.WithLabelValues(string(e.Step), result).Inc()
			m.StepDuration.WithLabelValues(string(e.Step)).Observe(e.Duration.Seconds())
		},
		OnCheckpoint: func(_ context.Context, _ *domain.CheckpointEvent) {
			m.Checkpoints.Inc()
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.Runs.WithLabelValues(Outcome(e)).Inc()
		},
	}
}

// Outcome classifies a stopped run as finished, failed or paused.
func Outcome(e *domain.RunEvent) string {
	switch {
	case e.Err != nil:
		return "failed"
	case e.Finished:
		return "finished"
	}
	return "paused"
}
