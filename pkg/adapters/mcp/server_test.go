package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/quill"
	"github.com/aretw0/quill/pkg/adapters/stub"
	"github.com/aretw0/quill/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*quill.Engine, *Server) {
	t.Helper()
	eng, err := quill.NewEssayEngine(stub.Completer{}, stub.Searcher{},
		quill.WithThreadIDGenerator(func() string { return "mcp-1" }))
	require.NoError(t, err)
	return eng, NewServer(eng)
}

func TestStartEssay(t *testing.T) {
	_, s := newTestServer(t)

	resp, err := s.handleStart(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"task":          "the history of tides",
		"max_revisions": float64(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "mcp-1", resp.ThreadID)
	assert.True(t, resp.Finished)
	assert.Equal(t, 6, resp.Steps)
	assert.Equal(t, 3, resp.RevisionNumber)
	assert.NotEmpty(t, resp.Draft)
}

func TestStartEssay_InvalidArguments(t *testing.T) {
	_, s := newTestServer(t)
	ctx := context.Background()

	cases := map[string]map[string]any{
		"empty task":       {"task": "   "},
		"unknown argument": {"task": "tides", "temperature": 0.3},
		"wrong type":       {"task": "tides", "max_revisions": "many"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.handleStart(ctx, mcp.CallToolRequest{}, args)
			assert.Error(t, err)
		})
	}
}

func TestStartEssay_NegativeRevisionsDraftOnce(t *testing.T) {
	_, s := newTestServer(t)

	resp, err := s.handleStart(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"task":          "tides",
		"max_revisions": float64(-1),
	})
	require.NoError(t, err)
	assert.True(t, resp.Finished)
	assert.Equal(t, 3, resp.Steps)
	assert.Equal(t, 2, resp.RevisionNumber)
}

func TestResumeThread(t *testing.T) {
	eng, s := newTestServer(t)
	ctx := context.Background()

	x := eng.Stream(ctx, "tides", 0)
	for range x.Events() {
		break
	}

	resp, err := s.handleResume(ctx, mcp.CallToolRequest{}, map[string]any{"thread_id": "mcp-1"})
	require.NoError(t, err)
	assert.True(t, resp.Finished)
	assert.Equal(t, 2, resp.Steps)
}

func TestResumeThread_Unknown(t *testing.T) {
	_, s := newTestServer(t)

	_, err := s.handleResume(context.Background(), mcp.CallToolRequest{}, map[string]any{"thread_id": "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoCheckpoint)
	assert.Contains(t, err.Error(), "ghost")

	_, err = s.handleResume(context.Background(), mcp.CallToolRequest{}, map[string]any{})
	assert.Error(t, err)
}

func TestInspectAndList(t *testing.T) {
	_, s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]any{"task": "tides", "max_revisions": float64(0)})
	require.NoError(t, err)

	list, err := s.handleListThreads(ctx, mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mcp-1"}, list.Threads)

	insp, err := s.handleInspect(ctx, mcp.CallToolRequest{}, map[string]any{"thread_id": "mcp-1", "diff": true})
	require.NoError(t, err)
	require.Len(t, insp.Checkpoints, 4)
	require.Len(t, insp.Diffs, 3)
	assert.Equal(t, domain.StepPlanner, insp.Diffs[0].Step)
	assert.NotNil(t, insp.Diffs[0].Changed.Plan)

	_, err = s.handleInspect(ctx, mcp.CallToolRequest{}, map[string]any{"thread_id": "ghost"})
	assert.ErrorIs(t, err, domain.ErrNoCheckpoint)
}

func TestListThreads_Empty(t *testing.T) {
	_, s := newTestServer(t)

	list, err := s.handleListThreads(context.Background(), mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, list.Threads)
	assert.Empty(t, list.Threads)
}

func TestToolsAreRegistered(t *testing.T) {
	_, s := newTestServer(t)

	msg := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(
		`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	for _, name := range []string{"start_essay", "resume_thread", "inspect_thread", "list_threads"} {
		assert.Contains(t, string(data), `"name":"`+name+`"`)
	}
}
