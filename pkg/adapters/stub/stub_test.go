package stub_test

import (
	"context"
	"testing"

	"github.com/aretw0/quill/pkg/adapters/stub"
	"github.com/aretw0/quill/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.Completer = stub.Completer{}
	_ ports.Searcher  = stub.Searcher{}
)

func TestCompleter_Deterministic(t *testing.T) {
	ctx := context.Background()
	a, err := stub.Completer{}.Complete(ctx, "You are a writer. Be brief.", "tides   and\nmoons")
	require.NoError(t, err)
	b, err := stub.Completer{}.Complete(ctx, "You are a writer. Be brief.", "tides   and\nmoons")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "## You are a writer\n\ntides and moons\n", a)
}

func TestCompleter_Structured(t *testing.T) {
	schema := ports.Schema{Name: "queries", Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"queries": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "maxItems": 3},
		},
	}}

	var out struct {
		Queries []string `json:"queries"`
	}
	require.NoError(t, stub.Completer{}.CompleteStructured(context.Background(), "sys", "tides", schema, &out))

	assert.Equal(t, []string{"tides overview", "tides history", "tides criticism"}, out.Queries)
}

func TestSearcher(t *testing.T) {
	got, err := stub.Searcher{}.Search(context.Background(), "tides", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = stub.Searcher{}.Search(ctx, "tides", 2)
	assert.ErrorIs(t, err, context.Canceled)
}
