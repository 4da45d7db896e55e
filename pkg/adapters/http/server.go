package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/quill"
	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/dsl"
	"github.com/aretw0/quill/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine is the part of quill.Engine served over HTTP.
type Engine interface {
	Stream(ctx context.Context, task string, maxRevisions int) *quill.Execution
	ResumeStream(ctx context.Context, threadID string) *quill.Execution
	Inspect(ctx context.Context, threadID string) ([]domain.Checkpoint, error)
	Threads(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, threadID string) error
	Graph() *dsl.Graph
}

var _ Engine = (*quill.Engine)(nil)

// Server serves the run entry points.
type Server struct {
	Engine  Engine
	Streams *StreamManager
	Logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// StartRequest is the body of POST /threads.
type StartRequest struct {
	Task         string `json:"task"`
	MaxRevisions *int   `json:"max_revisions,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error    string `json:"error"`
	ThreadID string `json:"thread_id,omitempty"`
	Step     string `json:"step,omitempty"`
}

// GraphResponse describes the compiled workflow.
type GraphResponse struct {
	Entry domain.StepID   `json:"entry"`
	Steps []domain.StepID `json:"steps"`
	Edges []dsl.Edge      `json:"edges"`
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		Logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)

	r.Route("/threads", func(r chi.Router) {
		r.Get("/", s.ListThreads)
		r.Post("/", s.StartThread)
		r.Route("/{threadID}", func(r chi.Router) {
			r.Delete("/", s.DeleteThread)
			r.Post("/resume", s.ResumeThread)
			r.Get("/checkpoints", s.GetCheckpoints)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartThread handles POST /threads.
func (s *Server) StartThread(w http.ResponseWriter, r *http.Request) {
	var body StartRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		s.Logger.Warn("StartThread: Invalid request body", "err", err)
		return
	}

	task, err := runner.SanitizeInput(body.Task)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid task: %v", err)})
		s.Logger.Warn("StartThread: Task rejected", "err", err, "size", len(body.Task))
		return
	}

	maxRevisions := quill.DefaultMaxRevisions
	if body.MaxRevisions != nil {
		maxRevisions = *body.MaxRevisions
	}

	s.run(w, r, s.Engine.Stream(r.Context(), task, maxRevisions), http.StatusCreated)
}

// ResumeThread handles POST /threads/{threadID}/resume.
func (s *Server) ResumeThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	s.run(w, r, s.Engine.ResumeStream(r.Context(), threadID), http.StatusOK)
}

// run drives x. With ?stream=1 every event is written as an NDJSON line;
// otherwise the final Result is returned once the run stops.
func (s *Server) run(w http.ResponseWriter, r *http.Request, x *quill.Execution, okStatus int) {
	broadcast := &broadcaster{streams: s.Streams}

	if streaming(r) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)

		rn := runner.NewRunner(
			runner.WithHandler(runner.MultiHandler(runner.NewJSONHandler(w), broadcast)),
			runner.WithLogger(s.Logger),
		)
		if _, err := rn.Run(r.Context(), x); err != nil {
			s.Logger.Warn("Run stopped with error", "thread_id", x.ThreadID(), "err", err)
		}
		return
	}

	rn := runner.NewRunner(runner.WithHandler(broadcast), runner.WithLogger(s.Logger))
	result, err := rn.Run(r.Context(), x)
	if err != nil {
		s.writeRunError(w, x.ThreadID(), err)
		return
	}
	s.writeJSON(w, okStatus, result)
}

func streaming(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("stream"))
	return err == nil && v
}

// ListThreads handles GET /threads.
func (s *Server) ListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.Engine.Threads(r.Context())
	if err != nil {
		s.writeRunError(w, "", err)
		return
	}
	if threads == nil {
		threads = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"threads": threads})
}

// GetCheckpoints handles GET /threads/{threadID}/checkpoints.
func (s *Server) GetCheckpoints(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	cps, err := s.Engine.Inspect(r.Context(), threadID)
	if err != nil {
		s.writeRunError(w, threadID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cps)
}

// DeleteThread handles DELETE /threads/{threadID}.
func (s *Server) DeleteThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	if err := s.Engine.Delete(r.Context(), threadID); err != nil {
		s.writeRunError(w, threadID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	g := s.Engine.Graph()
	s.writeJSON(w, http.StatusOK, GraphResponse{
		Entry: g.Entry(),
		Steps: g.Steps(),
		Edges: g.Edges(),
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "quill-http",
		"version": strings.TrimSpace(quill.Version),
	})
}

// SubscribeEvents handles GET /threads/{threadID}/events (SSE).
// Subscribers receive the events of runs on the thread driven by this server.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "streaming not supported"})
		return
	}

	threadID := chi.URLParam(r, "threadID")
	ch, cancel := s.Streams.Subscribe(threadID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Debug("SSE client disconnected", "thread_id", threadID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// writeRunError maps engine errors to status codes.
func (s *Server) writeRunError(w http.ResponseWriter, threadID string, err error) {
	resp := ErrorResponse{Error: err.Error(), ThreadID: threadID}

	var stepErr *domain.StepExecutionError
	switch {
	case errors.Is(err, domain.ErrNoCheckpoint):
		s.writeError(w, http.StatusNotFound, resp)
	case errors.Is(err, domain.ErrThreadExists):
		s.writeError(w, http.StatusConflict, resp)
	case errors.As(err, &stepErr):
		resp.Step = string(stepErr.Step)
		s.writeError(w, http.StatusBadGateway, resp)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusServiceUnavailable, resp)
	default:
		s.Logger.Error("Request failed", "thread_id", threadID, "err", err)
		s.writeError(w, http.StatusInternalServerError, resp)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("Response encode failed", "err", err)
	}
}
