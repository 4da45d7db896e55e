package runner_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/quill/internal/runtime"
	"github.com/aretw0/quill/pkg/adapters/memory"
	"github.com/aretw0/quill/pkg/adapters/stub"
	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/essay"
	"github.com/aretw0/quill/pkg/runner"
	"github.com/aretw0/quill/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_EssayEndToEnd(t *testing.T) {
	g, err := essay.BuildGraph(stub.Completer{}, stub.Searcher{})
	require.NoError(t, err)
	sched := runtime.NewScheduler(g, session.NewManager(memory.NewStore()))

	var buf bytes.Buffer
	r := runner.NewRunner(runner.WithHandler(runner.NewJSONHandler(&buf)))

	result, err := r.Run(context.Background(), sched.Start(context.Background(), "t1", domain.NewState("tides", 1)))
	require.NoError(t, err)
	assert.True(t, result.Finished)

	// begin + 6 steps (planner, research_plan, generate, reflect, research_critique, generate) + end
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 8)
	assert.Equal(t, 6, result.Steps)
}
