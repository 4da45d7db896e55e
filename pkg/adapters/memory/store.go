package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/quill/pkg/domain"
)

// Store implements ports.CheckpointStore in memory.
// Safe for concurrent use. Nothing survives the process.
type Store struct {
	data map[string][]domain.Checkpoint
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]domain.Checkpoint),
	}
}

// Save appends the checkpoint, keeping the thread log sorted by step index.
func (s *Store) Save(ctx context.Context, cp domain.Checkpoint) error {
	// Deep copy to ensure isolation, similar to serialization
	copied := cp.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.data[cp.ThreadID]
	i := sort.Search(len(log), func(i int) bool { return log[i].StepIndex >= cp.StepIndex })
	if i < len(log) && log[i].StepIndex == cp.StepIndex {
		if log[i].Equivalent(copied) {
			return nil
		}
		return domain.ErrCheckpointConflict
	}

	log = append(log, domain.Checkpoint{})
	copy(log[i+1:], log[i:])
	log[i] = copied
	s.data[cp.ThreadID] = log
	return nil
}

// LoadLatest retrieves the highest-indexed checkpoint from memory.
func (s *Store) LoadLatest(ctx context.Context, threadID string) (domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.data[threadID]
	if !ok || len(log) == 0 {
		return domain.Checkpoint{}, &domain.NoCheckpointError{ThreadID: threadID}
	}

	// Copy on read so the caller can't mutate the store's snapshot
	return log[len(log)-1].Clone(), nil
}

// List returns copies of every checkpoint of the thread.
func (s *Store) List(ctx context.Context, threadID string) ([]domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.data[threadID]
	if !ok || len(log) == 0 {
		return nil, &domain.NoCheckpointError{ThreadID: threadID}
	}

	out := make([]domain.Checkpoint, len(log))
	for i, cp := range log {
		out[i] = cp.Clone()
	}
	return out, nil
}

// Delete removes the thread history.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, threadID)
	return nil
}

// Threads returns known threads, sorted.
func (s *Store) Threads(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]string, 0, len(s.data))
	for id := range s.data {
		threads = append(threads, id)
	}
	sort.Strings(threads)
	return threads, nil
}
