package middleware_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/quill/pkg/adapters/memory"
	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/persistence/middleware"
	"github.com/aretw0/quill/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_Contract(t *testing.T) {
	metrics := middleware.NewStoreMetrics(prometheus.NewRegistry())
	store := middleware.Chain(memory.NewStore(),
		middleware.NewLoggingMiddleware(slog.New(slog.DiscardHandler)),
		middleware.NewMetricsMiddleware(metrics),
	)

	ports.RunCheckpointStoreContract(t, store)
}

func TestMetricsMiddleware_CountsOutcomes(t *testing.T) {
	ctx := context.Background()
	metrics := middleware.NewStoreMetrics(nil)
	store := middleware.NewMetricsMiddleware(metrics)(memory.NewStore())

	cp := domain.Checkpoint{ThreadID: "t", Next: domain.StepPlanner, State: domain.NewState("x", 1)}
	require.NoError(t, store.Save(ctx, cp))

	conflicting := cp.Clone()
	conflicting.State.Task = "y"
	_ = store.Save(ctx, conflicting)
	_, _ = store.LoadLatest(ctx, "missing")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("save", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("save", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Operations.WithLabelValues("load_latest", "not_found")))
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := middleware.NewLoggingMiddleware(logger)(memory.NewStore())

	require.NoError(t, store.Save(context.Background(), domain.Checkpoint{ThreadID: "t-42", State: domain.NewState("x", 1)}))

	assert.Contains(t, buf.String(), "checkpoint saved")
	assert.Contains(t, buf.String(), "thread_id=t-42")
}
