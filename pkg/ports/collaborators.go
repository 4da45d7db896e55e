package ports

import "context"

// Schema describes the JSON shape a structured completion must match.
type Schema struct {
	Name       string
	Definition map[string]any
}

// Completer is the language-model completion service.
type Completer interface {
	// Complete returns unstructured text for a system prompt and user content.
	Complete(ctx context.Context, system, user string) (string, error)

	// CompleteStructured decodes a completion matching schema into out.
	CompleteStructured(ctx context.Context, system, user string, schema Schema, out any) error
}

// Searcher is the web search service.
type Searcher interface {
	// Search returns at most maxResults snippets, best first.
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
}
