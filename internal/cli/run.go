package cli

import (
	"context"
	"io"
	"os"

	"github.com/aretw0/quill"
	"github.com/aretw0/quill/internal/presentation/tui"
	"github.com/aretw0/quill/pkg/runner"
)

// RunOptions controls how a run is presented.
type RunOptions struct {
	// JSON writes one NDJSON line per event instead of text.
	JSON bool
	// Verbose prints the plan and critiques as they are produced.
	Verbose bool
	// Banner prints the banner before a text run.
	Banner bool
	// Out receives the run output. Defaults to os.Stdout.
	Out io.Writer
}

// Run starts a new thread on task and drives it to completion or interruption.
func (a *App) Run(ctx context.Context, task string, maxRevisions int, opts RunOptions) (runner.Result, error) {
	clean, err := runner.SanitizeInput(task)
	if err != nil {
		return runner.Result{}, err
	}
	return a.drive(ctx, opts, func(ctx context.Context) *quill.Execution {
		return a.Engine.Stream(ctx, clean, maxRevisions)
	})
}

// Resume continues threadID from its latest checkpoint.
func (a *App) Resume(ctx context.Context, threadID string, opts RunOptions) (runner.Result, error) {
	return a.drive(ctx, opts, func(ctx context.Context) *quill.Execution {
		return a.Engine.ResumeStream(ctx, threadID)
	})
}

// drive runs the execution under a signal-aware context. SIGINT or SIGTERM
// pause the run after the step in flight has been checkpointed.
func (a *App) drive(ctx context.Context, opts RunOptions, start func(context.Context) *quill.Execution) (runner.Result, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	sm := runner.NewSignalManager(ctx)
	defer sm.Stop()

	if opts.Banner && !opts.JSON {
		tui.PrintBanner(out)
	}

	rn := runner.NewRunner(
		runner.WithHandler(a.handler(out, opts)),
		runner.WithLogger(a.Logger),
	)
	x := start(sm.Context())
	result, err := rn.Run(sm.Context(), x)

	if sm.Interrupted() {
		a.Logger.Info("Run interrupted", "thread_id", result.ThreadID, "steps", result.Steps)
		if !opts.JSON {
			printSystemMessage(out, "Interrupted. Thread %s is paused.", result.ThreadID)
		}
	}
	return result, handleExecutionError(result.ThreadID, err)
}

func (a *App) handler(out io.Writer, opts RunOptions) runner.Handler {
	if opts.JSON {
		return runner.NewJSONHandler(out)
	}
	hopts := []runner.TextHandlerOption{runner.WithVerbose(opts.Verbose)}
	if f, ok := out.(*os.File); ok {
		if render := tui.RendererFor(f); render != nil {
			hopts = append(hopts, runner.WithTextHandlerRenderer(render))
		}
	}
	return runner.NewTextHandler(out, hopts...)
}
