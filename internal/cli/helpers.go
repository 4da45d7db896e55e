package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/quill/internal/config"
	"github.com/aretw0/quill/internal/logging"
	"github.com/aretw0/quill/pkg/domain"
)

// CreateLogger configures the application logger. Logs always go to
// stderr so stdout carries only the essay or NDJSON stream. Debug forces
// the debug level; otherwise cfg.Level applies.
func CreateLogger(cfg config.LogConfig, debug bool) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	if cfg.Format == "json" {
		return logging.NewJSON(level), nil
	}
	return logging.New(level), nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

// handleExecutionError turns an interruption into a clean exit; the thread
// is paused, not failed. Any other error is returned with a resume hint
// when the failure was a step.
func handleExecutionError(threadID string, err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	var stepErr *domain.StepExecutionError
	if errors.As(err, &stepErr) && threadID != "" {
		return fmt.Errorf("%w (resume with: quill resume %s)", err, threadID)
	}
	return err
}
