package middleware

import (
	"context"
	"log/slog"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.CheckpointStore
	logger *slog.Logger
}

// NewLoggingMiddleware logs writes at Debug and failures at Warn.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.CheckpointStore) ports.CheckpointStore {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) Save(ctx context.Context, cp domain.Checkpoint) error {
	err := m.next.Save(ctx, cp)
	if err != nil {
		m.logger.WarnContext(ctx, "checkpoint save failed", "thread_id", cp.ThreadID, "step_index", cp.StepIndex, "err", err)
		return err
	}
	m.logger.DebugContext(ctx, "checkpoint saved", "thread_id", cp.ThreadID, "step_index", cp.StepIndex, "next", cp.Next)
	return nil
}

func (m *loggingMiddleware) LoadLatest(ctx context.Context, threadID string) (domain.Checkpoint, error) {
	return m.next.LoadLatest(ctx, threadID)
}

func (m *loggingMiddleware) List(ctx context.Context, threadID string) ([]domain.Checkpoint, error) {
	return m.next.List(ctx, threadID)
}

func (m *loggingMiddleware) Threads(ctx context.Context) ([]string, error) {
	return m.next.Threads(ctx)
}

func (m *loggingMiddleware) Delete(ctx context.Context, threadID string) error {
	err := m.next.Delete(ctx, threadID)
	if err != nil {
		m.logger.WarnContext(ctx, "thread delete failed", "thread_id", threadID, "err", err)
		return err
	}
	m.logger.InfoContext(ctx, "thread deleted", "thread_id", threadID)
	return nil
}
