// Package stub provides deterministic offline collaborators. The same input
// always produces the same output, so runs are reproducible and resumable.
package stub

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/quill/pkg/ports"
)

// Completer answers every prompt with text derived from its inputs.
type Completer struct{}

// Complete echoes the gist of the request as markdown.
func (Completer) Complete(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("## %s\n\n%s\n", firstSentence(system), excerpt(user, 280)), nil
}

// CompleteStructured fills every property of an object schema: string
// arrays get up to maxItems derived queries, strings get an excerpt.
func (Completer) CompleteStructured(ctx context.Context, system, user string, schema ports.Schema, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	props, _ := schema.Definition["properties"].(map[string]any)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	value := make(map[string]any, len(props))
	for _, name := range names {
		prop, _ := props[name].(map[string]any)
		switch prop["type"] {
		case "array":
			value[name] = queries(user, maxItems(prop))
		case "string":
			value[name] = excerpt(user, 80)
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// Searcher returns maxResults canned snippets per query.
type Searcher struct{}

func (Searcher) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, 0, maxResults)
	for i := 1; i <= maxResults; i++ {
		out = append(out, fmt.Sprintf("[%d] Offline result for %q.", i, query))
	}
	return out, nil
}

var facets = []string{"overview", "history", "criticism", "examples", "statistics"}

func queries(topic string, n int) []string {
	topic = excerpt(topic, 60)
	if n <= 0 || n > len(facets) {
		n = len(facets)
	}
	out := make([]string, 0, n)
	for _, f := range facets[:n] {
		out = append(out, topic+" "+f)
	}
	return out
}

func maxItems(prop map[string]any) int {
	switch v := prop["maxItems"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".\n"); i > 0 {
		s = s[:i]
	}
	return s
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
