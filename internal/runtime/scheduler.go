package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/quill/internal/logging"
	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/dsl"
	"github.com/aretw0/quill/pkg/session"
)

// errStopped signals that the consumer stopped iterating.
var errStopped = errors.New("consumer stopped iteration")

// Scheduler runs threads over one graph. It is safe for concurrent use;
// runs on the same thread are serialized by the session manager.
type Scheduler struct {
	graph    *dsl.Graph
	sessions *session.Manager
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Scheduler) {
		s.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for checkpoint timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// NewScheduler creates a scheduler for graph persisting through sessions.
func NewScheduler(graph *dsl.Graph, sessions *session.Manager, opts ...Option) *Scheduler {
	s := &Scheduler{
		graph:    graph,
		sessions: sessions,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start prepares a new lineage for threadID seeded with initial.
// Nothing runs until the returned execution is consumed.
func (s *Scheduler) Start(ctx context.Context, threadID string, initial domain.State) *Execution {
	seed := initial.Clone()
	return newExecution(threadID, func(x *Execution, yield func(domain.Event, error) bool) error {
		return s.run(ctx, x, &seed, yield)
	})
}

// Resume prepares the continuation of threadID from its latest checkpoint.
// Nothing runs until the returned execution is consumed.
func (s *Scheduler) Resume(ctx context.Context, threadID string) *Execution {
	return newExecution(threadID, func(x *Execution, yield func(domain.Event, error) bool) error {
		return s.run(ctx, x, nil, yield)
	})
}

func (s *Scheduler) run(ctx context.Context, x *Execution, seed *domain.State, yield func(domain.Event, error) bool) error {
	started := s.now()
	logger := s.logger.With("thread_id", x.threadID)

	err := s.sessions.WithLock(ctx, x.threadID, func(ctx context.Context) error {
		cp, err := s.origin(ctx, x.threadID, seed)
		if err != nil {
			return err
		}

		if seed != nil {
			logger.InfoContext(ctx, "run started", "entry", cp.Next)
		} else {
			logger.InfoContext(ctx, "run resumed", "step_index", cp.StepIndex, "next", cp.Next)
		}

		return s.loop(ctx, x, cp, logger, yield)
	})

	if !errors.Is(err, errStopped) {
		s.onRunFinish(ctx, &domain.RunEvent{
			EventBase: domain.EventBase{Timestamp: s.now(), Type: domain.EventRunFinish, ThreadID: x.threadID},
			Steps:     x.steps,
			Finished:  x.finished,
			Duration:  time.Since(started),
			Err:       err,
		})
	}

	switch {
	case err == nil:
		logger.InfoContext(ctx, "run finished", "steps", x.steps, "finished", x.finished)
	case errors.Is(err, errStopped):
		logger.InfoContext(ctx, "run paused by consumer", "steps", x.steps)
	default:
		logger.WarnContext(ctx, "run halted", "steps", x.steps, "err", err)
	}
	return err
}

// origin returns the checkpoint a run starts from. For a new thread it
// persists the seed as checkpoint 0.
func (s *Scheduler) origin(ctx context.Context, threadID string, seed *domain.State) (domain.Checkpoint, error) {
	store := s.sessions.Store()

	if seed == nil {
		return store.LoadLatest(ctx, threadID)
	}

	if _, err := store.LoadLatest(ctx, threadID); err == nil {
		return domain.Checkpoint{}, fmt.Errorf("%w: %q", domain.ErrThreadExists, threadID)
	} else if !errors.Is(err, domain.ErrNoCheckpoint) {
		return domain.Checkpoint{}, fmt.Errorf("failed to check thread existence: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return domain.Checkpoint{}, err
	}

	cp := domain.Checkpoint{
		ThreadID:  threadID,
		StepIndex: 0,
		Next:      s.graph.Entry(),
		State:     seed.Clone(),
		CreatedAt: s.now().UTC(),
	}
	if err := store.Save(ctx, cp); err != nil {
		return domain.Checkpoint{}, fmt.Errorf("failed to persist initial checkpoint: %w", err)
	}
	s.onCheckpoint(ctx, cp)
	return cp, nil
}

func (s *Scheduler) loop(ctx context.Context, x *Execution, cp domain.Checkpoint, logger *slog.Logger, yield func(domain.Event, error) bool) error {
	store := s.sessions.Store()
	reg := s.graph.Registry()

	state, idx, next := cp.State, cp.StepIndex, cp.Next
	x.state = state.Clone()

	for next != domain.End {
		// Cancellation is honored between steps only.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run canceled before step %q (index %d): %w", next, idx, err)
		}

		step := next
		stepStart := s.now()
		s.onStepStart(ctx, x.threadID, step, idx)
		logger.DebugContext(ctx, "step started", "step", step, "step_index", idx)

		var route domain.Route
		delta, err := reg.Invoke(ctx, step, idx, state)
		merged := state
		if err == nil {
			merged = domain.Merge(state, delta)
			if route, err = s.graph.Next(step, merged); err != nil {
				err = &domain.StepExecutionError{Step: step, StepIndex: idx, Cause: err}
			}
		}

		s.onStepFinish(ctx, x.threadID, step, idx, time.Since(stepStart), err)
		if err != nil {
			return err
		}

		saved := domain.Checkpoint{
			ThreadID:  x.threadID,
			StepIndex: idx + 1,
			Step:      step,
			Next:      route.Step(),
			State:     merged,
			CreatedAt: s.now().UTC(),
		}
		// The step already ran; its result must be durable even if the run was canceled meanwhile.
		if err := store.Save(context.WithoutCancel(ctx), saved); err != nil {
			return fmt.Errorf("failed to persist checkpoint %d of thread %q: %w", saved.StepIndex, x.threadID, err)
		}
		s.onCheckpoint(ctx, saved)
		logger.DebugContext(ctx, "step checkpointed", "step", step, "step_index", saved.StepIndex, "next", saved.Next)

		state, idx, next = merged, saved.StepIndex, saved.Next
		x.state = state.Clone()
		x.steps++

		if !yield(domain.Event{ThreadID: x.threadID, StepIndex: idx, Step: step, Delta: delta}, nil) {
			return errStopped
		}
	}

	x.finished = true
	return nil
}

func (s *Scheduler) onStepStart(ctx context.Context, threadID string, step domain.StepID, idx int) {
	if s.hooks.OnStepStart == nil {
		return
	}
	s.hooks.OnStepStart(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: s.now(), Type: domain.EventStepStart, ThreadID: threadID},
		Step:      step,
		StepIndex: idx,
	})
}

func (s *Scheduler) onStepFinish(ctx context.Context, threadID string, step domain.StepID, idx int, d time.Duration, err error) {
	if s.hooks.OnStepFinish == nil {
		return
	}
	s.hooks.OnStepFinish(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: s.now(), Type: domain.EventStepFinish, ThreadID: threadID},
		Step:      step,
		StepIndex: idx,
		Duration:  d,
		Err:       err,
	})
}

func (s *Scheduler) onCheckpoint(ctx context.Context, cp domain.Checkpoint) {
	if s.hooks.OnCheckpoint == nil {
		return
	}
	s.hooks.OnCheckpoint(ctx, &domain.CheckpointEvent{
		EventBase:  domain.EventBase{Timestamp: s.now(), Type: domain.EventCheckpoint, ThreadID: cp.ThreadID},
		Checkpoint: cp.Clone(),
	})
}

func (s *Scheduler) onRunFinish(ctx context.Context, e *domain.RunEvent) {
	if s.hooks.OnRunFinish == nil {
		return
	}
	s.hooks.OnRunFinish(ctx, e)
}
