package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/quill/pkg/domain"
)

// TextHandler writes human-readable progress.
type TextHandler struct {
	Writer   io.Writer
	Renderer ContentRenderer

	// Verbose also prints the plan and every critique, not only the final draft.
	Verbose bool
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithVerbose prints intermediate artifacts.
func WithVerbose(verbose bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Verbose = verbose
	}
}

// NewTextHandler creates a handler writing to w (stdout when nil).
func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Writer: w}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) Begin(ctx context.Context, threadID string) error {
	_, err := fmt.Fprintf(h.Writer, "Thread %s\n", threadID)
	return err
}

func (h *TextHandler) Event(ctx context.Context, ev domain.Event) error {
	if _, err := fmt.Fprintf(h.Writer, "  [%d] %-18s %s\n", ev.StepIndex, ev.Step, Summarize(ev.Delta)); err != nil {
		return err
	}
	if !h.Verbose {
		return nil
	}
	switch {
	case ev.Delta.Plan != nil:
		return h.markdown(*ev.Delta.Plan)
	case ev.Delta.Critique != nil:
		return h.markdown(*ev.Delta.Critique)
	}
	return nil
}

func (h *TextHandler) End(ctx context.Context, r Result) error {
	switch {
	case r.Finished:
		if err := h.markdown(r.State.Draft); err != nil {
			return err
		}
		_, err := fmt.Fprintf(h.Writer, "Finished after %d steps (revision %d).\n", r.Steps, r.State.RevisionNumber-1)
		return err
	case r.Paused():
		_, err := fmt.Fprintf(h.Writer, "\n[System] Paused. Resume with: quill resume %s\n", r.ThreadID)
		return err
	default:
		_, err := fmt.Fprintf(h.Writer, "\n[System] Run failed: %v\n", r.Err)
		return err
	}
}

func (h *TextHandler) markdown(md string) error {
	output := md
	if h.Renderer != nil {
		if rendered, err := h.Renderer(md); err == nil {
			output = rendered
		}
	}
	_, err := fmt.Fprintf(h.Writer, "\n%s\n\n", strings.TrimSpace(output))
	return err
}

// Summarize describes an update in one short line.
func Summarize(u domain.Update) string {
	var parts []string
	if u.Plan != nil {
		parts = append(parts, fmt.Sprintf("plan (%d chars)", len(*u.Plan)))
	}
	if len(u.Content) > 0 {
		parts = append(parts, fmt.Sprintf("+%d snippets", len(u.Content)))
	}
	if u.Draft != nil {
		parts = append(parts, fmt.Sprintf("draft (%d chars)", len(*u.Draft)))
	}
	if u.RevisionNumber != nil {
		parts = append(parts, fmt.Sprintf("revision -> %d", *u.RevisionNumber))
	}
	if u.Critique != nil {
		parts = append(parts, fmt.Sprintf("critique (%d chars)", len(*u.Critique)))
	}
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}
