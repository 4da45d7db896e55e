package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/quill/pkg/domain"
)

// ListThreads prints every thread with its progress.
func (a *App) ListThreads(ctx context.Context, w io.Writer) error {
	threads, err := a.Engine.Threads(ctx)
	if err != nil {
		return fmt.Errorf("error listing threads: %w", err)
	}
	if len(threads) == 0 {
		fmt.Fprintln(w, "No threads found.")
		return nil
	}

	fmt.Fprintln(w, "Threads:")
	for _, id := range threads {
		cp, err := a.Engine.Latest(ctx, id)
		if err != nil {
			fmt.Fprintf(w, "- %s (unreadable: %v)\n", id, err)
			continue
		}
		status := "paused at " + string(cp.Next)
		if cp.Finished() {
			status = "finished"
		}
		fmt.Fprintf(w, "- %s  step %d, revision %d, %s\n", id, cp.StepIndex, cp.State.RevisionNumber, status)
	}
	return nil
}

// RemoveThreads deletes every listed thread, reporting each outcome.
func (a *App) RemoveThreads(ctx context.Context, ids []string, w io.Writer) error {
	var errs []error
	for _, id := range ids {
		if err := a.Engine.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("error removing %q: %w", id, err))
			continue
		}
		fmt.Fprintf(w, "Removed thread '%s'\n", id)
	}
	return errors.Join(errs...)
}

// Inspect prints a thread's checkpoints as indented JSON. With diff it
// prints the field changes between consecutive checkpoints instead.
func (a *App) Inspect(ctx context.Context, threadID string, diff bool, w io.Writer) error {
	cps, err := a.Engine.Inspect(ctx, threadID)
	if err != nil {
		return fmt.Errorf("error loading thread '%s': %w", threadID, err)
	}

	var v any = cps
	if diff {
		diffs := make([]*domain.StateDiff, 0, len(cps))
		for i := range cps {
			var prev *domain.Checkpoint
			if i > 0 {
				prev = &cps[i-1]
			}
			if d := domain.Diff(prev, &cps[i]); d != nil {
				diffs = append(diffs, d)
			}
		}
		v = diffs
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
