package redis_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/quill/pkg/adapters/redis"
	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/persistence"
	"github.com/aretw0/quill/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)

	store := redis.NewFromClient(client)
	ports.RunCheckpointStoreContract(t, store, redis.NewFromClient(client))
}

func TestRedisStore_EncryptedContract(t *testing.T) {
	_, client := newClient(t)

	key := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, key)
	require.NoError(t, err)
	codec, err := persistence.NewEncryptedCodec(persistence.EncryptionConfig{ActiveKey: key}, nil)
	require.NoError(t, err)

	ports.RunCheckpointStoreContract(t, redis.NewFromClient(client, redis.WithCodec(codec)))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	threadID := "thread-ttl"

	err := store.Save(ctx, domain.Checkpoint{ThreadID: threadID, Next: domain.StepPlanner, State: domain.NewState("x", 1)})
	assert.NoError(t, err)

	threads, err := store.Threads(ctx)
	assert.NoError(t, err)
	assert.Contains(t, threads, threadID)

	// Key expiration is driven by miniredis time.
	mr.FastForward(2 * time.Second)

	_, err = store.LoadLatest(ctx, threadID)
	assert.ErrorIs(t, err, domain.ErrNoCheckpoint)

	// Index pruning uses wall-clock time.
	time.Sleep(1200 * time.Millisecond)

	threads, err = store.Threads(ctx)
	assert.NoError(t, err)
	assert.Empty(t, threads)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	threadID := "my-thread"

	err := store.Save(ctx, domain.Checkpoint{ThreadID: threadID, State: domain.NewState("x", 1)})
	assert.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:thread:my-thread"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:threads"), "Expected index with custom prefix to exist")

	list, err := store.Threads(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, threadID)
}
