package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Runner consumes an execution and reports it through a Handler.
type Runner struct {
	Handler Handler
	Logger  *slog.Logger
}

// Option configures the Runner.
type Option func(*Runner)

// WithHandler sets the progress handler. Defaults to a TextHandler on stdout.
func WithHandler(h Handler) Option {
	return func(r *Runner) {
		r.Handler = h
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdout)
	}
	return r
}

// Run drains x, forwarding every event to the handler.
//
// When ctx is canceled the consumer stops pulling events, which leaves the
// thread paused at its latest checkpoint. The returned Result then reports
// neither Finished nor an error.
func (r *Runner) Run(ctx context.Context, x Execution) (Result, error) {
	if err := r.Handler.Begin(ctx, x.ThreadID()); err != nil {
		return Result{}, fmt.Errorf("output error: %w", err)
	}

	var runErr error
	for ev, err := range x.Events() {
		if err != nil {
			runErr = err
			break
		}
		if err := r.Handler.Event(ctx, ev); err != nil {
			runErr = fmt.Errorf("output error: %w", err)
			break
		}
		if ctx.Err() != nil {
			r.Logger.Debug("Runner: context done, pausing", "thread_id", x.ThreadID(), "step_index", ev.StepIndex)
			break
		}
	}

	result := NewResult(x, runErr)
	if err := r.Handler.End(context.WithoutCancel(ctx), result); err != nil && runErr == nil {
		runErr = fmt.Errorf("output error: %w", err)
	}
	return result, runErr
}
