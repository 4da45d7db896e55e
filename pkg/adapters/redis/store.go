package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/persistence"
	backend "github.com/redis/go-redis/v9"
)

// farFuture is the index score of threads that never expire (2100-01-01).
const farFuture = 4102444800

// Store implements ports.CheckpointStore using Redis.
//
// Each thread is a hash keyed by step index. A sorted set indexes thread
// identifiers by expiry so listing can prune expired threads lazily.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	codec  persistence.Codec
}

type Option func(*Store)

// WithTTL sets the expiration for threads. Every save extends it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithCodec sets the snapshot codec. Defaults to persistence.JSONCodec.
func WithCodec(c persistence.Codec) Option {
	return func(s *Store) {
		s.codec = c
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "quill:",
		codec:  persistence.JSONCodec{},
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client returns the underlying client, for sharing with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(threadID string) string {
	return s.prefix + "thread:" + threadID
}

func (s *Store) indexKey() string {
	return s.prefix + "threads"
}

// Save writes the checkpoint with HSETNX, so an existing index is never overwritten.
func (s *Store) Save(ctx context.Context, cp domain.Checkpoint) error {
	data, err := s.codec.Encode(cp)
	if err != nil {
		return err
	}

	field := strconv.Itoa(cp.StepIndex)

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}

	pipe := s.client.TxPipeline()
	created := pipe.HSetNX(ctx, s.key(cp.ThreadID), field, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(cp.ThreadID), s.ttl)
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: cp.ThreadID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	if created.Val() {
		return nil
	}

	raw, err := s.client.HGet(ctx, s.key(cp.ThreadID), field).Bytes()
	if err != nil {
		return fmt.Errorf("failed to read existing checkpoint: %w", err)
	}
	existing, err := s.codec.Decode(raw)
	if err != nil {
		return err
	}
	if !existing.Equivalent(cp) {
		return fmt.Errorf("%w: thread %q index %d", domain.ErrCheckpointConflict, cp.ThreadID, cp.StepIndex)
	}
	return nil
}

// LoadLatest retrieves the highest-indexed checkpoint from Redis.
func (s *Store) LoadLatest(ctx context.Context, threadID string) (domain.Checkpoint, error) {
	fields, err := s.client.HKeys(ctx, s.key(threadID)).Result()
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	latest := -1
	for _, f := range fields {
		if idx, err := strconv.Atoi(f); err == nil && idx > latest {
			latest = idx
		}
	}
	if latest < 0 {
		return domain.Checkpoint{}, &domain.NoCheckpointError{ThreadID: threadID}
	}

	raw, err := s.client.HGet(ctx, s.key(threadID), strconv.Itoa(latest)).Bytes()
	if err != nil {
		if err == backend.Nil {
			// Expired between the two calls.
			return domain.Checkpoint{}, &domain.NoCheckpointError{ThreadID: threadID}
		}
		return domain.Checkpoint{}, fmt.Errorf("failed to get from redis: %w", err)
	}
	return s.codec.Decode(raw)
}

// List returns every checkpoint of the thread in step order.
func (s *Store) List(ctx context.Context, threadID string) ([]domain.Checkpoint, error) {
	all, err := s.client.HGetAll(ctx, s.key(threadID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	if len(all) == 0 {
		return nil, &domain.NoCheckpointError{ThreadID: threadID}
	}

	out := make([]domain.Checkpoint, 0, len(all))
	for _, raw := range all {
		cp, err := s.codec.Decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepIndex < out[j].StepIndex })
	return out, nil
}

// Delete removes the thread.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.key(threadID))
	pipe.ZRem(ctx, s.indexKey(), threadID)

	_, err := pipe.Exec(ctx)
	return err
}

// Threads returns known threads, pruning expired entries from the index first.
func (s *Store) Threads(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired threads: %w", err)
	}

	threads, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	return threads, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
