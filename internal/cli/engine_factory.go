package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/quill"
	"github.com/aretw0/quill/internal/config"
	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/observability"
	"github.com/aretw0/quill/pkg/persistence/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// App is a wired engine plus the resources it owns.
type App struct {
	Config config.Config
	Logger *slog.Logger
	Engine *quill.Engine

	backend *Backend
}

// AppOptions selects how the engine is wired.
type AppOptions struct {
	// Offline uses deterministic stub collaborators.
	Offline bool

	// Registry receives the step and store metrics. Nil disables metrics.
	Registry prometheus.Registerer
}

// NewApp opens the configured store, builds the collaborators and creates
// the essay engine. Close releases the store.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts AppOptions) (*App, error) {
	var (
		hooks        = observability.LoggingHooks(logger)
		storeMetrics *middleware.StoreMetrics
	)
	if opts.Registry != nil {
		hooks = domain.CombineHooks(observability.NewMetrics(opts.Registry).Hooks(), hooks)
		storeMetrics = middleware.NewStoreMetrics(opts.Registry)
	}

	backend, err := OpenStore(ctx, cfg.Store, logger, storeMetrics)
	if err != nil {
		return nil, err
	}

	completer, searcher, err := NewCollaborators(cfg, opts.Offline, logger)
	if err != nil {
		return nil, errors.Join(err, backend.Close())
	}

	engineOpts := []quill.Option{
		quill.WithStore(backend.Store),
		quill.WithLogger(logger),
		quill.WithLifecycleHooks(hooks),
		quill.WithResearchLimits(cfg.Search.MaxQueries, cfg.Search.MaxResults),
	}
	if backend.Locker != nil {
		engineOpts = append(engineOpts,
			quill.WithLocker(backend.Locker),
			quill.WithLockTTL(cfg.Store.Redis.LockTTL),
		)
	}

	engine, err := quill.NewEssayEngine(completer, searcher, engineOpts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("error initializing engine: %w", err), backend.Close())
	}

	return &App{Config: cfg, Logger: logger, Engine: engine, backend: backend}, nil
}

// Close releases the store connections.
func (a *App) Close() error {
	return a.backend.Close()
}
