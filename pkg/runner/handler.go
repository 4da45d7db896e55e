package runner

import (
	"context"
	"iter"

	"github.com/aretw0/quill/pkg/domain"
)

// Handler presents the progress of a run.
// This allows switching between Text (CLI) and JSON (structured) modes.
type Handler interface {
	// Begin is called once before the first event.
	Begin(ctx context.Context, threadID string) error

	// Event presents one executed step.
	Event(ctx context.Context, event domain.Event) error

	// End is called once with the outcome of the run.
	End(ctx context.Context, result Result) error
}

// ContentRenderer transforms markdown before it is written, e.g. to ANSI.
type ContentRenderer func(string) (string, error)

// Execution is the part of a run the Runner consumes.
type Execution interface {
	ThreadID() string
	Events() iter.Seq2[domain.Event, error]
	State() domain.State
	Steps() int
	Finished() bool
}
