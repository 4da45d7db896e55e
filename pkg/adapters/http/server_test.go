package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/quill"
	"github.com/aretw0/quill/pkg/adapters/stub"
	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/essay"
	"github.com/aretw0/quill/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...quill.Option) (*quill.Engine, http.Handler) {
	t.Helper()
	eng, err := quill.NewEssayEngine(stub.Completer{}, stub.Searcher{}, opts...)
	require.NoError(t, err)
	return eng, NewHandler(eng)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestStartThread(t *testing.T) {
	_, h := newTestServer(t, quill.WithThreadIDGenerator(func() string { return "t1" }))

	w := do(t, h, http.MethodPost, "/threads", `{"task":"tides","max_revisions":1}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result runner.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "t1", result.ThreadID)
	assert.True(t, result.Finished)
	assert.Equal(t, 6, result.Steps)
	assert.Equal(t, 3, result.State.RevisionNumber)
}

func TestStartThread_DefaultRevisions(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/threads", `{"task":"tides"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var result runner.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, quill.DefaultMaxRevisions, result.State.MaxRevisions)
}

func TestStartThread_BadInput(t *testing.T) {
	_, h := newTestServer(t)

	for _, body := range []string{`not json`, `{"task":""}`, `{"task":"x","max_revisions":"two"}`} {
		w := do(t, h, http.MethodPost, "/threads", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestStartThread_NegativeRevisionsDraftOnce(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/threads", `{"task":"tides","max_revisions":-1}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var result runner.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.True(t, result.Finished)
	assert.Equal(t, 3, result.Steps, "plan, research and a single draft")
	assert.Equal(t, 2, result.State.RevisionNumber)
}

func TestStartThread_Stream(t *testing.T) {
	_, h := newTestServer(t, quill.WithThreadIDGenerator(func() string { return "s1" }))

	w := do(t, h, http.MethodPost, "/threads?stream=1", `{"task":"tides","max_revisions":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

	var lines []runner.Line
	sc := bufio.NewScanner(w.Body)
	for sc.Scan() {
		var l runner.Line
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		lines = append(lines, l)
	}
	require.Len(t, lines, 5)
	assert.Equal(t, runner.LineBegin, lines[0].Type)
	assert.Equal(t, domain.StepPlanner, lines[1].Event.Step)
	assert.Equal(t, domain.StepGenerate, lines[3].Event.Step)
	assert.Equal(t, runner.LineEnd, lines[4].Type)
	assert.True(t, lines[4].Result.Finished)
}

func TestResumeThread_Unknown(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/threads/ghost/resume", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ghost", resp.ThreadID)
}

func TestResumeThread_AfterPause(t *testing.T) {
	eng, h := newTestServer(t)
	ctx := context.Background()

	x := eng.Stream(ctx, "tides", 0)
	for range x.Events() {
		break
	}

	w := do(t, h, http.MethodPost, "/threads/"+x.ThreadID()+"/resume", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result runner.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.True(t, result.Finished)
	assert.Equal(t, 2, result.Steps)
}

type failingCompleter struct{ stub.Completer }

func (failingCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	if system == essay.PlanPrompt {
		return "", errors.New("quota exceeded")
	}
	return stub.Completer{}.Complete(ctx, system, user)
}

func TestStartThread_StepFailure(t *testing.T) {
	eng, err := quill.NewEssayEngine(failingCompleter{}, stub.Searcher{})
	require.NoError(t, err)
	h := NewHandler(eng)

	w := do(t, h, http.MethodPost, "/threads", `{"task":"tides"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "planner", resp.Step)
	assert.NotEmpty(t, resp.ThreadID)
	assert.Contains(t, resp.Error, "quota exceeded")
}

func TestThreadsCheckpointsDelete(t *testing.T) {
	_, h := newTestServer(t, quill.WithThreadIDGenerator(func() string { return "t1" }))

	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/threads", `{"task":"tides","max_revisions":0}`).Code)

	w := do(t, h, http.MethodGet, "/threads", "")
	assert.JSONEq(t, `{"threads":["t1"]}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/threads/t1/checkpoints", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cps []domain.Checkpoint
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cps))
	assert.Len(t, cps, 4)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/threads/t1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/threads/t1/checkpoints", "").Code)
	assert.JSONEq(t, `{"threads":[]}`, do(t, h, http.MethodGet, "/threads", "").Body.String())
}

func TestGetGraph(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/graph", "")
	require.Equal(t, http.StatusOK, w.Code)

	var g GraphResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&g))
	assert.Equal(t, domain.StepPlanner, g.Entry)
	assert.Len(t, g.Steps, 5)
	assert.Len(t, g.Edges, 6)
}

func TestHealthAndInfo(t *testing.T) {
	_, h := newTestServer(t)

	assert.JSONEq(t, `{"status":"ok"}`, do(t, h, http.MethodGet, "/health", "").Body.String())
	assert.Contains(t, do(t, h, http.MethodGet, "/info", "").Body.String(), quill.Version)
}

func TestSubscribeEvents(t *testing.T) {
	_, h := newTestServer(t, quill.WithThreadIDGenerator(func() string { return "live" }))
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/threads/live/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)
	_, _ = reader.ReadString('\n') // data: connected
	_, _ = reader.ReadString('\n') // blank

	go func() {
		_, _ = http.Post(srv.URL+"/threads", "application/json", bytes.NewBufferString(`{"task":"tides","max_revisions":0}`))
	}()

	got := make(chan string, 1)
	go func() {
		line, _ := reader.ReadString('\n')
		got <- line
	}()

	select {
	case line := <-got:
		assert.True(t, strings.HasPrefix(line, "data: "), line)
		assert.Contains(t, line, `"type":"event"`)
		assert.Contains(t, line, `"step":"planner"`)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}

func TestStreamManager_UnsubscribeTwice(t *testing.T) {
	sm := NewStreamManager()
	_, cancel := sm.Subscribe("t")
	cancel()
	assert.NotPanics(t, cancel)
	sm.Broadcast("t", "nobody listens")
}
