package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/quill/internal/config"
	"github.com/aretw0/quill/pkg/adapters/file"
	"github.com/aretw0/quill/pkg/adapters/memory"
	"github.com/aretw0/quill/pkg/adapters/redis"
	sqlstore "github.com/aretw0/quill/pkg/adapters/sql"
	"github.com/aretw0/quill/pkg/persistence"
	"github.com/aretw0/quill/pkg/persistence/middleware"
	"github.com/aretw0/quill/pkg/ports"
	"github.com/glebarez/sqlite"
)

// Backend is an opened checkpoint store plus the lock that guards it
// across processes, when the driver provides one.
type Backend struct {
	Store  ports.CheckpointStore
	Locker ports.DistributedLocker
	close  func() error
}

// Close releases the backend's connections.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenStore opens the store selected by cfg.Driver, with the encryption
// codec applied and the store middleware chain around it.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger, metrics *middleware.StoreMetrics) (*Backend, error) {
	codec, err := newCodec(cfg)
	if err != nil {
		return nil, err
	}

	b := &Backend{}
	switch cfg.Driver {
	case config.DriverMemory:
		if codec != nil {
			logger.Warn("Encryption key ignored by the memory store")
		}
		b.Store = memory.NewStore()

	case config.DriverFile:
		var opts []file.Option
		if codec != nil {
			opts = append(opts, file.WithCodec(codec))
		}
		b.Store = file.New(cfg.Path, opts...)

	case config.DriverRedis:
		opts := []redis.Option{redis.WithPrefix(cfg.Redis.Prefix), redis.WithTTL(cfg.Redis.TTL)}
		if codec != nil {
			opts = append(opts, redis.WithCodec(codec))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, opts...)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		b.Store = store
		b.Locker = redis.NewLocker(store.Client(), cfg.Redis.Prefix)
		b.close = store.Close

	case config.DriverSQL:
		if err := ensureDir(cfg.SQL.DSN); err != nil {
			return nil, err
		}
		var opts []sqlstore.Option
		if codec != nil {
			opts = append(opts, sqlstore.WithCodec(codec))
		}
		store, err := sqlstore.Open(sqlite.Open(cfg.SQL.DSN), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open sql store: %w", err)
		}
		b.Store = store
		b.close = store.Close

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	var mws []middleware.Middleware
	if metrics != nil {
		mws = append(mws, middleware.NewMetricsMiddleware(metrics))
	}
	mws = append(mws, middleware.NewLoggingMiddleware(logger))
	b.Store = middleware.Chain(b.Store, mws...)

	logger.Debug("Store opened", "driver", cfg.Driver, "encrypted", codec != nil)
	return b, nil
}

func newCodec(cfg config.StoreConfig) (persistence.Codec, error) {
	if cfg.EncryptionKey == "" {
		if len(cfg.FallbackKeys) > 0 {
			return nil, errors.New("fallback keys require an active encryption key")
		}
		return nil, nil
	}
	keys, err := persistence.ParseKeys(append([]string{cfg.EncryptionKey}, cfg.FallbackKeys...)...)
	if err != nil {
		return nil, err
	}
	codec, err := persistence.NewEncryptedCodec(keys, nil)
	if err != nil {
		return nil, err
	}
	return codec, nil
}

// ensureDir creates the parent directory of a file-backed sqlite DSN.
func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
