package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/quill/pkg/adapters/memory"
	"github.com/aretw0/quill/pkg/adapters/redis"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_DistributedLockSurvivesLongRun(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	const ttl = 300 * time.Millisecond
	mgr := NewManager(memory.NewStore(),
		WithLocker(redis.NewLocker(client, "q:")),
		WithLockTTL(ttl),
	)
	ctx := context.Background()

	err := mgr.WithLock(ctx, "t1", func(ctx context.Context) error {
		for range 4 {
			mr.FastForward(200 * time.Millisecond)
			time.Sleep(250 * time.Millisecond)
		}

		waitCtx, cancel := context.WithTimeout(ctx, ttl)
		defer cancel()
		_, err := redis.NewLocker(client, "q:").Lock(waitCtx, "t1", ttl)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "a second replica must not take the thread mid-run")
		return nil
	})
	require.NoError(t, err)

	assert.False(t, mr.Exists("q:lock:t1"), "the lock is released when the run ends")
}
