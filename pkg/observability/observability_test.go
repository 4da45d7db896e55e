package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	start := &domain.StepEvent{Step: domain.StepPlanner, StepIndex: 1}
	hooks.OnStepStart(ctx, start)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSteps))

	hooks.OnStepFinish(ctx, &domain.StepEvent{Step: domain.StepPlanner, Duration: time.Second})
	hooks.OnStepFinish(ctx, &domain.StepEvent{Step: domain.StepGenerate, Err: errors.New("boom")})
	hooks.OnCheckpoint(ctx, &domain.CheckpointEvent{})
	hooks.OnCheckpoint(ctx, &domain.CheckpointEvent{})
	hooks.OnRunFinish(ctx, &domain.RunEvent{Finished: true})
	hooks.OnRunFinish(ctx, &domain.RunEvent{Err: errors.New("boom")})
	hooks.OnRunFinish(ctx, &domain.RunEvent{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Steps.WithLabelValues("planner", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Steps.WithLabelValues("generate", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Checkpoints))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("finished")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("paused")))
	assert.Equal(t, -1.0, testutil.ToFloat64(m.ActiveSteps))

	count, err := testutil.GatherAndCount(reg, "quill_step_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_NilRegisterer(t *testing.T) {
	assert.NotPanics(t, func() {
		observability.NewMetrics(nil)
		observability.NewMetrics(nil)
	})
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.LoggingHooks(logger)
	ctx := context.Background()

	hooks.OnStepStart(ctx, &domain.StepEvent{EventBase: domain.EventBase{ThreadID: "t1"}, Step: domain.StepReflect})
	hooks.OnStepFinish(ctx, &domain.StepEvent{EventBase: domain.EventBase{ThreadID: "t1"}, Step: domain.StepReflect, Err: errors.New("boom")})
	hooks.OnRunFinish(ctx, &domain.RunEvent{EventBase: domain.EventBase{ThreadID: "t1"}, Finished: true, Steps: 3})

	out := buf.String()
	assert.Contains(t, out, "msg=step_start thread_id=t1 step=reflect")
	assert.Contains(t, out, "level=WARN msg=step_failed")
	assert.Contains(t, out, "err=boom")
	assert.Contains(t, out, "msg=run_finish thread_id=t1 outcome=finished steps=3")
}
