package ports

import (
	"context"

	"github.com/aretw0/quill/pkg/domain"
)

// CheckpointStore defines the interface for persisting checkpoints.
// This allows for durable execution, enabling "Stop & Resume" workflows.
type CheckpointStore interface {
	// Save appends a checkpoint. It must be durable when Save returns.
	// Saving an equivalent payload at an existing (thread, index) is a no-op;
	// a different payload fails with domain.ErrCheckpointConflict.
	Save(ctx context.Context, cp domain.Checkpoint) error

	// LoadLatest retrieves the highest-indexed checkpoint of a thread.
	// Returns *domain.NoCheckpointError if the thread is unknown.
	LoadLatest(ctx context.Context, threadID string) (domain.Checkpoint, error)

	// List returns every checkpoint of a thread ordered by step index.
	// Returns *domain.NoCheckpointError if the thread is unknown.
	List(ctx context.Context, threadID string) ([]domain.Checkpoint, error)

	// Threads enumerates known thread identifiers.
	Threads(ctx context.Context) ([]string, error)

	// Delete removes the whole checkpoint history of a thread.
	// Deleting an unknown thread is not an error.
	Delete(ctx context.Context, threadID string) error
}
