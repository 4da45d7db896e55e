package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/quill/pkg/adapters/memory"
	"github.com/aretw0/quill/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		tid := fmt.Sprintf("thread-%d", i)
		_ = mgr.WithLock(ctx, tid, func(ctx context.Context) error {
			return mgr.Store().Save(ctx, domain.Checkpoint{ThreadID: tid, State: domain.NewState("x", 1)})
		})
		_ = mgr.Delete(ctx, tid)
	}

	lockCount := len(mgr.locks)
	t.Logf("Threads Created: %d, Locks Leaked: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
