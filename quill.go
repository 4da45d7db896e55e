package quill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/quill/internal/runtime"
	"github.com/aretw0/quill/pkg/adapters/memory"
	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/dsl"
	"github.com/aretw0/quill/pkg/essay"
	"github.com/aretw0/quill/pkg/ports"
	"github.com/aretw0/quill/pkg/session"
	"github.com/google/uuid"
)

// Version is the release of this build. Overridden at link time.
var Version = "0.1.0-dev"

// DefaultMaxRevisions is used by callers that do not pick a revision budget.
const DefaultMaxRevisions = 2

// Execution is a lazy, single-use run of one thread. See Engine.Stream.
type Execution = runtime.Execution

// Engine is the high-level entry point for the library.
// It wraps the internal scheduler and provides a simplified API for consumers.
type Engine struct {
	graph     *dsl.Graph
	scheduler *runtime.Scheduler
	sessions  *session.Manager

	store     ports.CheckpointStore
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	essayOpts []essay.Option
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the checkpoint store. Defaults to an in-memory store.
func WithStore(store ports.CheckpointStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker adds a distributed lock around every write to a thread, for
// deployments where several processes share one store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL sets the lease of the distributed lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the checkpoint timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithThreadIDGenerator overrides how Start and Stream name new threads.
func WithThreadIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.newID = gen
	}
}

// WithResearchLimits bounds the research steps of NewEssayEngine.
func WithResearchLimits(maxQueries, resultsPerQuery int) Option {
	return func(e *Engine) {
		e.essayOpts = append(e.essayOpts, essay.WithMaxQueries(maxQueries), essay.WithResultsPerQuery(resultsPerQuery))
	}
}

// New creates an engine executing graph.
func New(graph *dsl.Graph, opts ...Option) (*Engine, error) {
	if graph == nil {
		return nil, errors.New("graph is required")
	}
	e := newEngine(opts...)
	e.init(graph)
	return e, nil
}

// NewEssayEngine creates an engine running the essay workflow with the given collaborators.
func NewEssayEngine(completer ports.Completer, searcher ports.Searcher, opts ...Option) (*Engine, error) {
	if completer == nil || searcher == nil {
		return nil, errors.New("completer and searcher are required")
	}
	e := newEngine(opts...)
	graph, err := essay.BuildGraph(completer, searcher, e.essayOpts...)
	if err != nil {
		return nil, err
	}
	e.init(graph)
	return e, nil
}

func newEngine(opts ...Option) *Engine {
	e := &Engine{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	return e
}

func (e *Engine) init(graph *dsl.Graph) {
	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	if e.lockTTL > 0 {
		sessionOpts = append(sessionOpts, session.WithLockTTL(e.lockTTL))
	}

	e.graph = graph
	e.sessions = session.NewManager(e.store, sessionOpts...)
	e.scheduler = runtime.NewScheduler(graph, e.sessions,
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
		runtime.WithClock(e.now),
	)
}

// Start creates a new thread for task and runs it to completion.
// On failure the thread id is still returned so the run can be resumed.
func (e *Engine) Start(ctx context.Context, task string, maxRevisions int) (string, domain.State, error) {
	x := e.Stream(ctx, task, maxRevisions)
	final, err := x.Wait()
	return x.ThreadID(), final, err
}

// Stream creates a new thread for task and returns its lazy execution.
// Each event is delivered after its checkpoint is durable. The thread stays
// locked while the consumer handles an event, so Delete or Resume of the same
// thread must wait until the loop ends.
func (e *Engine) Stream(ctx context.Context, task string, maxRevisions int) *Execution {
	return e.StartThread(ctx, e.newID(), domain.NewState(task, maxRevisions))
}

// StartThread starts a run on a caller-named thread with an explicit initial state.
// It fails with domain.ErrThreadExists if the thread already has checkpoints.
func (e *Engine) StartThread(ctx context.Context, threadID string, initial domain.State) *Execution {
	return e.scheduler.Start(ctx, threadID, initial)
}

// Resume continues threadID from its latest checkpoint and returns the final state.
// Unknown threads fail with *domain.NoCheckpointError.
func (e *Engine) Resume(ctx context.Context, threadID string) (domain.State, error) {
	return e.ResumeStream(ctx, threadID).Wait()
}

// ResumeStream is the streaming form of Resume.
func (e *Engine) ResumeStream(ctx context.Context, threadID string) *Execution {
	return e.scheduler.Resume(ctx, threadID)
}

// Inspect returns the checkpoints of threadID ordered by step index.
// A thread with N completed steps has N+1 checkpoints.
func (e *Engine) Inspect(ctx context.Context, threadID string) ([]domain.Checkpoint, error) {
	cps, err := e.sessions.List(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if len(cps) == 0 {
		return nil, &domain.NoCheckpointError{ThreadID: threadID}
	}
	return cps, nil
}

// Latest returns the most recent checkpoint of threadID.
func (e *Engine) Latest(ctx context.Context, threadID string) (domain.Checkpoint, error) {
	return e.sessions.LoadLatest(ctx, threadID)
}

// Threads lists the known thread identifiers.
func (e *Engine) Threads(ctx context.Context) ([]string, error) {
	return e.sessions.Threads(ctx)
}

// Delete removes the checkpoint history of threadID. It waits for a run in
// progress on the same thread to release it.
func (e *Engine) Delete(ctx context.Context, threadID string) error {
	if err := e.sessions.Delete(ctx, threadID); err != nil {
		return fmt.Errorf("failed to delete thread %q: %w", threadID, err)
	}
	return nil
}

// Graph returns the compiled workflow graph.
func (e *Engine) Graph() *dsl.Graph {
	return e.graph
}
