package runner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/aretw0/quill/pkg/domain"
)

// Line types emitted by JSONHandler.
const (
	LineBegin = "begin"
	LineEvent = "event"
	LineEnd   = "end"
)

// Line is one NDJSON record. Fields irrelevant to the Type are omitted.
type Line struct {
	Type     string        `json:"type"`
	ThreadID string        `json:"thread_id"`
	Event    *domain.Event `json:"event,omitempty"`
	Result   *Result       `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// JSONHandler writes JSON-Lines records, flushing after each when the writer supports it.
type JSONHandler struct {
	mu      sync.Mutex
	Writer  io.Writer
	Encoder *json.Encoder
}

// NewJSONHandler creates a handler writing to w (stdout when nil).
func NewJSONHandler(w io.Writer) *JSONHandler {
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Begin(ctx context.Context, threadID string) error {
	return h.emit(Line{Type: LineBegin, ThreadID: threadID})
}

func (h *JSONHandler) Event(ctx context.Context, ev domain.Event) error {
	return h.emit(Line{Type: LineEvent, ThreadID: ev.ThreadID, Event: &ev})
}

func (h *JSONHandler) End(ctx context.Context, r Result) error {
	line := Line{Type: LineEnd, ThreadID: r.ThreadID, Result: &r}
	if r.Err != nil {
		line.Error = r.Err.Error()
	}
	return h.emit(line)
}

func (h *JSONHandler) emit(line Line) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Encoder.Encode(line); err != nil {
		return err
	}
	if f, ok := h.Writer.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
