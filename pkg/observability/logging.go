package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/quill/pkg/domain"
)

// LoggingHooks logs step and run boundaries as structured records.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_start",
				"thread_id", e.ThreadID,
				"step", e.Step,
				"step_index", e.StepIndex,
			)
		},
		OnStepFinish: func(ctx context.Context, e *domain.StepEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "step_failed",
					"thread_id", e.ThreadID,
					"step", e.Step,
					"duration", e.Duration,
					"err", e.Err,
				)
				return
			}
			logger.InfoContext(ctx, "step_finish",
				"thread_id", e.ThreadID,
				"step", e.Step,
				"step_index", e.StepIndex,
				"duration", e.Duration,
			)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_finish",
				"thread_id", e.ThreadID,
				"outcome", Outcome(e),
				"steps", e.Steps,
				"duration", e.Duration,
			)
		},
	}
}
