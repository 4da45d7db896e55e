package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/quill"
	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/dsl"
	"github.com/aretw0/quill/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/sync/errgroup"
)

// GraphURI is the resource exposing the compiled workflow.
const GraphURI = "quill://graph"

// Engine is the part of quill.Engine exposed as MCP tools.
type Engine interface {
	Stream(ctx context.Context, task string, maxRevisions int) *quill.Execution
	ResumeStream(ctx context.Context, threadID string) *quill.Execution
	Inspect(ctx context.Context, threadID string) ([]domain.Checkpoint, error)
	Threads(ctx context.Context) ([]string, error)
	Graph() *dsl.Graph
}

var _ Engine = (*quill.Engine)(nil)

// RunResponse is returned by start_essay and resume_thread.
type RunResponse struct {
	ThreadID       string `json:"thread_id" jsonschema_description:"Thread holding the run's checkpoints"`
	Finished       bool   `json:"finished" jsonschema_description:"Whether the run reached the end of the workflow"`
	Steps          int    `json:"steps" jsonschema_description:"Steps executed by this call"`
	RevisionNumber int    `json:"revision_number"`
	Plan           string `json:"plan,omitempty"`
	Draft          string `json:"draft,omitempty"`
	Critique       string `json:"critique,omitempty"`
}

// InspectResponse is returned by inspect_thread.
type InspectResponse struct {
	ThreadID    string              `json:"thread_id"`
	Checkpoints []domain.Checkpoint `json:"checkpoints"`
	Diffs       []domain.StateDiff  `json:"diffs,omitempty" jsonschema_description:"Field changes between consecutive checkpoints"`
}

// ThreadsResponse is returned by list_threads.
type ThreadsResponse struct {
	Threads []string `json:"threads"`
}

type startArgs struct {
	Task         string `mapstructure:"task"`
	MaxRevisions *int   `mapstructure:"max_revisions"`
}

type threadArgs struct {
	ThreadID string `mapstructure:"thread_id"`
	Diff     bool   `mapstructure:"diff"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger. Stdio mode must never log to stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server for engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("quill-mcp", strings.TrimSpace(quill.Version)),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop MCP server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("start_essay",
		mcp.WithDescription("Plan, research, draft and revise an essay on a topic. Returns the thread ID and the final draft."),
		mcp.WithString("task", mcp.Required(), mcp.Description("The essay topic")),
		mcp.WithNumber("max_revisions", mcp.Description("Reflect-and-redraft rounds after the first draft (default 2, below 1 means a single draft)")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("resume_thread",
		mcp.WithDescription("Continue an interrupted thread from its latest checkpoint."),
		mcp.WithString("thread_id", mcp.Required(), mcp.Description("Thread to resume")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleResume))

	s.mcpServer.AddTool(mcp.NewTool("inspect_thread",
		mcp.WithDescription("List every checkpoint of a thread, ordered by step index."),
		mcp.WithString("thread_id", mcp.Required(), mcp.Description("Thread to inspect")),
		mcp.WithBoolean("diff", mcp.Description("Also return the field changes between consecutive checkpoints")),
		mcp.WithOutputSchema[InspectResponse](),
	), mcp.NewStructuredToolHandler(s.handleInspect))

	s.mcpServer.AddTool(mcp.NewTool("list_threads",
		mcp.WithDescription("List the threads that have checkpoints."),
		mcp.WithOutputSchema[ThreadsResponse](),
	), mcp.NewStructuredToolHandler(s.handleListThreads))
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (RunResponse, error) {
	var in startArgs
	if err := decodeArgs(args, &in); err != nil {
		return RunResponse{}, err
	}

	task, err := runner.SanitizeInput(in.Task)
	if err != nil {
		s.logger.Warn("MCP start_essay: task rejected", "err", err, "size", len(in.Task))
		return RunResponse{}, fmt.Errorf("task rejected: %w", err)
	}

	maxRevisions := quill.DefaultMaxRevisions
	if in.MaxRevisions != nil {
		maxRevisions = *in.MaxRevisions
	}

	return s.drive(s.engine.Stream(ctx, task, maxRevisions))
}

func (s *Server) handleResume(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (RunResponse, error) {
	var in threadArgs
	if err := decodeArgs(args, &in); err != nil {
		return RunResponse{}, err
	}
	if in.ThreadID == "" {
		return RunResponse{}, errors.New("thread_id is required")
	}
	return s.drive(s.engine.ResumeStream(ctx, in.ThreadID))
}

// drive runs x to completion. A failed run reports the thread so the
// caller can resume it.
func (s *Server) drive(x *quill.Execution) (RunResponse, error) {
	_, err := x.Wait()
	res := runner.NewResult(x, err)
	if err != nil {
		s.logger.Warn("MCP run stopped", "thread_id", res.ThreadID, "steps", res.Steps, "err", err)
		return RunResponse{}, fmt.Errorf("thread %s: %w", res.ThreadID, err)
	}
	return RunResponse{
		ThreadID:       res.ThreadID,
		Finished:       res.Finished,
		Steps:          res.Steps,
		RevisionNumber: res.State.RevisionNumber,
		Plan:           res.State.Plan,
		Draft:          res.State.Draft,
		Critique:       res.State.Critique,
	}, nil
}

func (s *Server) handleInspect(ctx context.Context, _ mcp.CallToolRequest, args map[string]any) (InspectResponse, error) {
	var in threadArgs
	if err := decodeArgs(args, &in); err != nil {
		return InspectResponse{}, err
	}

	cps, err := s.engine.Inspect(ctx, in.ThreadID)
	if err != nil {
		return InspectResponse{}, err
	}

	resp := InspectResponse{ThreadID: in.ThreadID, Checkpoints: cps}
	if in.Diff {
		for i := 1; i < len(cps); i++ {
			if d := domain.Diff(&cps[i-1], &cps[i]); d != nil {
				resp.Diffs = append(resp.Diffs, *d)
			}
		}
	}
	return resp, nil
}

func (s *Server) handleListThreads(ctx context.Context, _ mcp.CallToolRequest, _ map[string]any) (ThreadsResponse, error) {
	threads, err := s.engine.Threads(ctx)
	if err != nil {
		return ThreadsResponse{}, err
	}
	if threads == nil {
		threads = []string{}
	}
	return ThreadsResponse{Threads: threads}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Essay workflow graph",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		g := s.engine.Graph()
		data, err := json.Marshal(map[string]any{
			"entry": g.Entry(),
			"steps": g.Steps(),
			"edges": g.Edges(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode graph: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

// decodeArgs decodes loosely-typed tool arguments. JSON numbers arrive as
// float64 and are narrowed to the target field type.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
