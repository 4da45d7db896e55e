package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/quill/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractCheckpoint(threadID string, index int, next domain.StepID) domain.Checkpoint {
	state := domain.NewState("contract task", 2)
	cp := domain.Checkpoint{
		ThreadID:  threadID,
		StepIndex: index,
		Next:      next,
		State:     state,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if index > 0 {
		cp.Step = domain.StepPlanner
		cp.State.Plan = fmt.Sprintf("plan v%d", index)
		cp.State.Content = []string{fmt.Sprintf("snippet %d", index)}
	}
	return cp
}

// RunCheckpointStoreContract runs a suite of tests to verify that a CheckpointStore
// implementation adheres to the defined interface contract.
// An optional peer is a second instance over the same backing storage; racing
// saves go through both when it is given.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore, peer ...CheckpointStore) {
	ctx := context.Background()
	threadID := "contract-test-thread-" + time.Now().Format("20060102150405")

	other := store
	if len(peer) > 0 {
		other = peer[0]
	}

	t.Run("Save and LoadLatest", func(t *testing.T) {
		id := threadID + "-latest"
		defer func() { _ = store.Delete(ctx, id) }()

		require.NoError(t, store.Save(ctx, contractCheckpoint(id, 0, domain.StepPlanner)))
		require.NoError(t, store.Save(ctx, contractCheckpoint(id, 1, domain.StepResearchPlan)))

		latest, err := store.LoadLatest(ctx, id)
		require.NoError(t, err, "LoadLatest should not return error")
		assert.Equal(t, 1, latest.StepIndex)
		assert.Equal(t, domain.StepPlanner, latest.Step)
		assert.Equal(t, domain.StepResearchPlan, latest.Next)
		assert.Equal(t, "plan v1", latest.State.Plan)
		assert.Equal(t, []string{"snippet 1"}, latest.State.Content)
		assert.Equal(t, 2, latest.State.MaxRevisions)
	})

	t.Run("List Ordered", func(t *testing.T) {
		id := threadID + "-list"
		defer func() { _ = store.Delete(ctx, id) }()

		// Indexes above 9 catch lexicographic ordering bugs.
		for i := 0; i <= 11; i++ {
			require.NoError(t, store.Save(ctx, contractCheckpoint(id, i, domain.StepGenerate)))
		}

		cps, err := store.List(ctx, id)
		require.NoError(t, err)
		require.Len(t, cps, 12)
		for i, cp := range cps {
			assert.Equal(t, i, cp.StepIndex)
			assert.Equal(t, id, cp.ThreadID)
		}

		latest, err := store.LoadLatest(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 11, latest.StepIndex)
	})

	t.Run("Idempotent Re-Save", func(t *testing.T) {
		id := threadID + "-idempotent"
		defer func() { _ = store.Delete(ctx, id) }()

		cp := contractCheckpoint(id, 0, domain.StepPlanner)
		require.NoError(t, store.Save(ctx, cp))

		again := cp.Clone()
		again.CreatedAt = cp.CreatedAt.Add(time.Second)
		require.NoError(t, store.Save(ctx, again), "re-saving the same payload should succeed")

		cps, err := store.List(ctx, id)
		require.NoError(t, err)
		assert.Len(t, cps, 1)
	})

	t.Run("Conflicting Re-Save", func(t *testing.T) {
		id := threadID + "-conflict"
		defer func() { _ = store.Delete(ctx, id) }()

		cp := contractCheckpoint(id, 1, domain.StepGenerate)
		require.NoError(t, store.Save(ctx, cp))

		other := cp.Clone()
		other.State.Plan = "a different plan"
		assert.ErrorIs(t, store.Save(ctx, other), domain.ErrCheckpointConflict)

		latest, err := store.LoadLatest(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "plan v1", latest.State.Plan, "the first payload must win")
	})

	t.Run("Concurrent Conflicting Saves", func(t *testing.T) {
		for round := range 50 {
			id := fmt.Sprintf("%s-race-%d", threadID, round)

			first := contractCheckpoint(id, 1, domain.StepGenerate)
			second := first.Clone()
			second.State.Plan = "a rival plan"

			var (
				wg    sync.WaitGroup
				start = make(chan struct{})
				errs  = make([]error, 2)
			)
			wg.Add(2)
			go func() {
				defer wg.Done()
				<-start
				errs[0] = store.Save(ctx, first)
			}()
			go func() {
				defer wg.Done()
				<-start
				errs[1] = other.Save(ctx, second)
			}()
			close(start)
			wg.Wait()

			winners := 0
			for _, err := range errs {
				if err == nil {
					winners++
					continue
				}
				assert.ErrorIs(t, err, domain.ErrCheckpointConflict)
			}
			require.Equal(t, 1, winners, "round %d: exactly one conflicting save must succeed", round)

			latest, err := store.LoadLatest(ctx, id)
			require.NoError(t, err)
			want := first.State.Plan
			if errs[1] == nil {
				want = second.State.Plan
			}
			assert.Equal(t, want, latest.State.Plan, "round %d: the stored payload must be the winner's", round)

			require.NoError(t, store.Delete(ctx, id))
		}
	})

	t.Run("Unknown Thread", func(t *testing.T) {
		_, err := store.LoadLatest(ctx, "non-existent-"+threadID)
		assert.ErrorIs(t, err, domain.ErrNoCheckpoint)

		var nce *domain.NoCheckpointError
		assert.ErrorAs(t, err, &nce)

		_, err = store.List(ctx, "non-existent-"+threadID)
		assert.ErrorIs(t, err, domain.ErrNoCheckpoint)
	})

	t.Run("Delete", func(t *testing.T) {
		id := threadID + "-delete"
		require.NoError(t, store.Save(ctx, contractCheckpoint(id, 0, domain.StepPlanner)))

		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.LoadLatest(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNoCheckpoint, "LoadLatest after Delete should return ErrNoCheckpoint")

		threads, err := store.Threads(ctx)
		require.NoError(t, err)
		assert.NotContains(t, threads, id)

		assert.NoError(t, store.Delete(ctx, id), "deleting twice should not fail")
	})

	t.Run("Threads", func(t *testing.T) {
		id1 := threadID + "-1"
		id2 := threadID + "-2"
		require.NoError(t, store.Save(ctx, contractCheckpoint(id1, 0, domain.StepPlanner)))
		require.NoError(t, store.Save(ctx, contractCheckpoint(id2, 0, domain.StepPlanner)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		threads, err := store.Threads(ctx)
		require.NoError(t, err)
		assert.Contains(t, threads, id1)
		assert.Contains(t, threads, id2)
	})
}
