package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/quill/internal/presentation/graph"
	"github.com/aretw0/quill/pkg/adapters/stub"
	"github.com/aretw0/quill/pkg/domain"
	"github.com/aretw0/quill/pkg/essay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMermaid(t *testing.T) {
	g, err := essay.BuildGraph(stub.Completer{}, stub.Searcher{})
	require.NoError(t, err)

	out := graph.GenerateMermaid(g, nil)

	for _, want := range []string{
		"graph TD\n",
		`planner(("planner"))`,
		`reflect["reflect"]`,
		"planner --> research_plan",
		"research_critique --> generate",
		`generate -. "continue" .-> reflect`,
		`generate -. "done" .-> END`,
		`END(["end"])`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	g, err := essay.BuildGraph(stub.Completer{}, stub.Searcher{})
	require.NoError(t, err)

	cps := []domain.Checkpoint{
		{StepIndex: 0, Next: domain.StepPlanner},
		{StepIndex: 1, Step: domain.StepPlanner, Next: domain.StepResearchPlan},
		{StepIndex: 2, Step: domain.StepResearchPlan, Next: domain.StepGenerate},
	}
	out := graph.GenerateMermaid(g, graph.NewOverlay(cps))

	assert.Contains(t, out, "class planner visited;")
	assert.Contains(t, out, "class research_plan visited;")
	assert.Contains(t, out, "class generate current;")
	assert.Equal(t, 1, strings.Count(out, "class planner visited;"))
}

func TestNewOverlay_Empty(t *testing.T) {
	assert.Nil(t, graph.NewOverlay(nil))
}
